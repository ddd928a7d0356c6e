package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/util/memzero"
)

// Registry is a mutex-guarded cache of unlocked nodes keyed by node id, with
// a parent->children index for subtree eviction.
type Registry struct {
	mu       sync.Mutex
	nodes    map[string]*domain.UnlockedNode
	children map[string]map[string]struct{}
	log      zerolog.Logger
}

// New returns an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		nodes:    make(map[string]*domain.UnlockedNode),
		children: make(map[string]map[string]struct{}),
		log:      log,
	}
}

// Put stores or replaces a node. A replaced entry is wiped first.
func (r *Registry) Put(n *domain.UnlockedNode) {
	if n == nil || n.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.nodes[n.ID]; ok && old != n {
		r.unlink(old)
		wipe(old)
	}
	r.nodes[n.ID] = n
	if n.ParentID != "" {
		set, ok := r.children[n.ParentID]
		if !ok {
			set = make(map[string]struct{})
			r.children[n.ParentID] = set
		}
		set[n.ID] = struct{}{}
	}
}

// Get returns the cached node for id.
func (r *Registry) Get(id string) (*domain.UnlockedNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Evict wipes and removes a single node. Its descendants stay cached; use
// EvictSubtree to drop them too.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked(id)
}

// EvictSubtree wipes and removes the node and every cached descendant.
func (r *Registry) EvictSubtree(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for child := range r.children[cur] {
			stack = append(stack, child)
		}
		r.evictLocked(cur)
	}
}

// Reset wipes and drops every cached node, for logout.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.nodes {
		wipe(n)
	}
	r.nodes = make(map[string]*domain.UnlockedNode)
	r.children = make(map[string]map[string]struct{})
	r.log.Debug().Msg("registry reset")
}

func (r *Registry) evictLocked(id string) {
	n, ok := r.nodes[id]
	if !ok {
		return
	}
	r.unlink(n)
	delete(r.nodes, id)
	delete(r.children, id)
	wipe(n)
}

func (r *Registry) unlink(n *domain.UnlockedNode) {
	if n.ParentID == "" {
		return
	}
	if set, ok := r.children[n.ParentID]; ok {
		delete(set, n.ID)
		if len(set) == 0 {
			delete(r.children, n.ParentID)
		}
	}
}

// wipe scrubs decrypted key material. The crypto.Key keeps its public half;
// only private parameters are cleared.
func wipe(n *domain.UnlockedNode) {
	memzero.Zero(n.SessionKey)
	n.SessionKey = nil
	if n.Key != nil {
		n.Key.ClearPrivateParams()
		n.Key = nil
	}
	n.KeyRing = nil
	n.State = domain.StateLocked
}

// Compile-time assertion that Registry implements domain.NodeRegistry.
var _ domain.NodeRegistry = (*Registry)(nil)
