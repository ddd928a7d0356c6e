package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
)

// DefaultBlockSize is the plaintext block size for uploads.
const DefaultBlockSize = 4 * 1024 * 1024

// speedWindow is how many block samples feed the moving speed average.
const speedWindow = 5

// Config tunes a Queue.
type Config struct {
	// OwnerIdentity is the identity new node keys are bound to.
	OwnerIdentity string
	// BlockSize overrides DefaultBlockSize when positive.
	BlockSize int
	// OnProgress receives per-file progress reports; may be nil.
	OnProgress ProgressFunc
}

// Queue runs encrypted uploads in enqueue order, folders before the children
// found inside them.
type Queue struct {
	client   Client
	uploader domain.BlockUploader
	keygen   domain.KeyGenerator
	cfg      Config
	log      zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	items   map[string]*Item
	pending []string
	seen    map[string]struct{}
	parents map[string]*domain.UnlockedNode
	paused  bool
	closed  bool
}

// NewQueue returns an idle queue; call Run to start processing.
func NewQueue(client Client, uploader domain.BlockUploader, keygen domain.KeyGenerator, cfg Config, log zerolog.Logger) *Queue {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	q := &Queue{
		client:   client,
		uploader: uploader,
		keygen:   keygen,
		cfg:      cfg,
		log:      log,
		items:    make(map[string]*Item),
		seen:     make(map[string]struct{}),
		parents:  make(map[string]*domain.UnlockedNode),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// EnqueueFile queues one local file for upload under an unlocked parent.
// Duplicate paths and empty files are rejected.
func (q *Queue) EnqueueFile(parent *domain.UnlockedNode, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory; use EnqueueFolder", path)
	}
	if info.Size() == 0 {
		return "", ErrEmptyFile
	}
	return q.enqueue(parent, path, ItemFile, info.Size())
}

// EnqueueFolder queues a local directory tree. The folder itself is created
// first; its contents are discovered and enqueued when it is processed, so
// children always find their parent's node keys ready.
func (q *Queue) EnqueueFolder(parent *domain.UnlockedNode, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory; use EnqueueFile", path)
	}
	return q.enqueue(parent, path, ItemFolder, 0)
}

func (q *Queue) enqueue(parent *domain.UnlockedNode, path string, typ ItemType, size int64) (string, error) {
	if parent == nil || parent.KeyRing == nil {
		return "", fmt.Errorf("parent node is not unlocked")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", fmt.Errorf("queue is closed")
	}
	if _, dup := q.seen[abs]; dup {
		return "", fmt.Errorf("%s is already queued", abs)
	}
	q.seen[abs] = struct{}{}
	q.parents[parent.ID] = parent

	item := &Item{
		ID:       uuid.NewString(),
		Type:     typ,
		Path:     abs,
		Name:     filepath.Base(abs),
		ParentID: parent.ID,
		Size:     size,
		Status:   StatusQueued,
	}
	q.items[item.ID] = item
	q.pending = append(q.pending, item.ID)
	q.cond.Broadcast()
	return item.ID, nil
}

// Pause stops the queue after the current block; queued items stay queued.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume continues a paused queue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Cancel aborts one item. An active file stops at the next block boundary.
func (q *Queue) Cancel(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if item, ok := q.items[id]; ok && (item.Status == StatusQueued || item.Status == StatusActive) {
		item.Status = StatusCancelled
	}
	q.cond.Broadcast()
}

// CancelAll aborts every queued and active item.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.Status == StatusQueued || item.Status == StatusActive {
			item.Status = StatusCancelled
		}
	}
	q.cond.Broadcast()
}

// Close stops accepting work; Run returns once the backlog is drained.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Status returns a snapshot of every known item.
func (q *Queue) Status() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Run processes the queue until Close is called and the backlog drains, or
// ctx is cancelled. Item failures are recorded on the item, not returned.
func (q *Queue) Run(ctx context.Context) error {
	// The cond has no ctx awareness; a watcher wakes waiters on cancel.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	for {
		item, ok := q.next(ctx)
		if !ok {
			return ctx.Err()
		}

		var err error
		switch item.Type {
		case ItemFolder:
			err = q.processFolder(ctx, item)
		default:
			err = q.processFile(ctx, item)
		}

		q.mu.Lock()
		switch {
		case item.Status == StatusCancelled:
			// keep it
		case err != nil:
			item.Status = StatusFailed
			item.Err = err
			q.log.Warn().Str("item", item.Name).Err(err).Msg("upload failed")
		default:
			item.Status = StatusCompleted
		}
		q.mu.Unlock()
	}
}

// next blocks until an item is runnable. ok is false when the queue is done.
func (q *Queue) next(ctx context.Context) (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return nil, false
		}
		if !q.paused {
			for len(q.pending) > 0 {
				id := q.pending[0]
				q.pending = q.pending[1:]
				item := q.items[id]
				if item.Status != StatusQueued {
					continue
				}
				item.Status = StatusActive
				return item, true
			}
			if q.closed {
				return nil, false
			}
		}
		q.cond.Wait()
	}
}

func (q *Queue) processFolder(ctx context.Context, item *Item) error {
	parent, err := q.parentFor(item)
	if err != nil {
		return err
	}

	keys, err := q.keygen.GenerateFolderKeys(domain.NewNodeParams{
		Name:          item.Name,
		OwnerIdentity: q.cfg.OwnerIdentity,
		Parent:        parent,
	})
	if err != nil {
		return err
	}
	folderID, err := q.client.CreateFolder(ctx, item.ParentID, keys)
	if err != nil {
		return err
	}
	keys.Node.ID = folderID

	entries, err := os.ReadDir(item.Path)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	q.mu.Lock()
	q.parents[folderID] = keys.Node
	q.mu.Unlock()

	for _, entry := range entries {
		child := filepath.Join(item.Path, entry.Name())
		if entry.IsDir() {
			if _, err := q.EnqueueFolder(keys.Node, child); err != nil {
				q.log.Warn().Str("path", child).Err(err).Msg("skipping folder")
			}
			continue
		}
		if _, err := q.EnqueueFile(keys.Node, child); err != nil {
			q.log.Warn().Str("path", child).Err(err).Msg("skipping file")
		}
	}
	return nil
}

func (q *Queue) processFile(ctx context.Context, item *Item) error {
	parent, err := q.parentFor(item)
	if err != nil {
		return err
	}

	keys, err := q.keygen.GenerateFileKeys(domain.NewNodeParams{
		Name:          item.Name,
		OwnerIdentity: q.cfg.OwnerIdentity,
		Parent:        parent,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(item.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	blocks := int((item.Size + int64(q.cfg.BlockSize) - 1) / int64(q.cfg.BlockSize))
	fileID, slots, err := q.client.InitFileUpload(ctx, item.ParentID, keys, blocks)
	if err != nil {
		return err
	}
	if len(slots) != blocks {
		return fmt.Errorf("got %d upload slots for %d blocks", len(slots), blocks)
	}
	slotByIndex := make(map[int]BlockSlot, len(slots))
	for _, slot := range slots {
		slotByIndex[slot.Index] = slot
	}

	contentHash := sha256.New()
	var done int64
	speed := newSpeedMeter()
	buf := make([]byte, q.cfg.BlockSize)

	for i := 0; i < blocks; i++ {
		if err := q.waitRunnable(ctx, item); err != nil {
			return err
		}

		n, err := io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return err
		}
		chunk := buf[:n]

		start := time.Now()
		sealed, err := pgp.EncryptPayload(keys.ContentKey, chunk)
		if err != nil {
			return err
		}
		slot, ok := slotByIndex[i]
		if !ok {
			return fmt.Errorf("no upload slot for block %d", i)
		}
		if err := q.uploader.UploadBlock(ctx, slot.URL, sealed); err != nil {
			return err
		}
		digest := sha256.Sum256(sealed)
		if err := q.client.CompleteBlock(ctx, fileID, i, hex.EncodeToString(digest[:])); err != nil {
			return err
		}

		contentHash.Write(chunk)
		done += int64(n)
		speed.sample(int64(len(sealed)), time.Since(start))
		q.report(item, done, speed.average())
	}

	return q.client.FinalizeFile(ctx, fileID, hex.EncodeToString(contentHash.Sum(nil)))
}

// waitRunnable blocks while the queue is paused and aborts on cancellation.
func (q *Queue) waitRunnable(ctx context.Context, item *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if item.Status == StatusCancelled {
			return context.Canceled
		}
		if !q.paused {
			return nil
		}
		q.cond.Wait()
	}
}

func (q *Queue) parentFor(item *Item) (*domain.UnlockedNode, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	parent, ok := q.parents[item.ParentID]
	if !ok {
		return nil, fmt.Errorf("no unlocked parent %s", item.ParentID)
	}
	return parent, nil
}

func (q *Queue) report(item *Item, done int64, speed float64) {
	if q.cfg.OnProgress == nil {
		return
	}
	q.cfg.OnProgress(Progress{
		ItemID:     item.ID,
		Name:       item.Name,
		BytesDone:  done,
		BytesTotal: item.Size,
		Speed:      speed,
	})
}

// speedMeter averages upload speed over the last speedWindow blocks.
type speedMeter struct {
	bytes []int64
	durs  []time.Duration
}

func newSpeedMeter() *speedMeter { return &speedMeter{} }

func (m *speedMeter) sample(n int64, d time.Duration) {
	m.bytes = append(m.bytes, n)
	m.durs = append(m.durs, d)
	if len(m.bytes) > speedWindow {
		m.bytes = m.bytes[1:]
		m.durs = m.durs[1:]
	}
}

func (m *speedMeter) average() float64 {
	var b int64
	var d time.Duration
	for i := range m.bytes {
		b += m.bytes[i]
		d += m.durs[i]
	}
	if d <= 0 {
		return 0
	}
	return float64(b) / d.Seconds()
}
