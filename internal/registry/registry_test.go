package registry_test

import (
	"testing"

	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/registry"
)

func node(id, parent string) *domain.UnlockedNode {
	return &domain.UnlockedNode{
		ID:         id,
		ParentID:   parent,
		Type:       domain.NodeTypeFolder,
		SessionKey: []byte("secret-" + id),
		State:      domain.StateUnlocked,
	}
}

func TestPutGet(t *testing.T) {
	r := registry.New(zerolog.Nop())

	n := node("a", "")
	r.Put(n)

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("expected node to be cached")
	}
	if got != n {
		t.Fatal("expected the same node back")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("unexpected hit for unknown id")
	}
}

func TestEvictWipes(t *testing.T) {
	r := registry.New(zerolog.Nop())

	n := node("a", "")
	r.Put(n)
	r.Evict("a")

	if _, ok := r.Get("a"); ok {
		t.Fatal("node still cached after eviction")
	}
	if n.SessionKey != nil {
		t.Fatal("session key not wiped on eviction")
	}
	if n.State != domain.StateLocked {
		t.Fatalf("state = %v, want locked", n.State)
	}
}

func TestEvictSubtree(t *testing.T) {
	r := registry.New(zerolog.Nop())

	root := node("root", "")
	share := node("share", "root")
	folder := node("folder", "share")
	file := node("file", "folder")
	sibling := node("sibling", "root")
	for _, n := range []*domain.UnlockedNode{root, share, folder, file, sibling} {
		r.Put(n)
	}

	r.EvictSubtree("share")

	for _, id := range []string{"share", "folder", "file"} {
		if _, ok := r.Get(id); ok {
			t.Fatalf("node %s still cached after subtree eviction", id)
		}
	}
	for _, id := range []string{"root", "sibling"} {
		if _, ok := r.Get(id); !ok {
			t.Fatalf("node %s evicted but is outside the subtree", id)
		}
	}
	if folder.SessionKey != nil || file.SessionKey != nil {
		t.Fatal("descendant session keys not wiped")
	}
}

func TestReset(t *testing.T) {
	r := registry.New(zerolog.Nop())

	a := node("a", "")
	b := node("b", "a")
	r.Put(a)
	r.Put(b)

	r.Reset()

	if _, ok := r.Get("a"); ok {
		t.Fatal("node survived reset")
	}
	if a.SessionKey != nil || b.SessionKey != nil {
		t.Fatal("reset did not wipe session keys")
	}

	// Registry stays usable after reset.
	r.Put(node("c", ""))
	if _, ok := r.Get("c"); !ok {
		t.Fatal("registry unusable after reset")
	}
}

func TestPutReplaceWipesOldEntry(t *testing.T) {
	r := registry.New(zerolog.Nop())

	old := node("a", "")
	r.Put(old)

	fresh := node("a", "")
	r.Put(fresh)

	if old.SessionKey != nil {
		t.Fatal("replaced entry not wiped")
	}
	got, _ := r.Get("a")
	if got != fresh {
		t.Fatal("expected the replacement entry")
	}
}
