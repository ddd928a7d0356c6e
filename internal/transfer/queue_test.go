package transfer_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
	"nimbus/internal/services/keygen"
	"nimbus/internal/transfer"
)

// fakeClient records calls and hands out slot URLs understood by fakeUploader.
type fakeClient struct {
	mu       sync.Mutex
	events   []string
	nextID   int
	files    map[string]*fakeFile
	folders  map[string]string // folder id -> name hash
	finalErr error
}

type fakeFile struct {
	keys    domain.NodeKeys
	blocks  map[int]string // index -> ciphertext digest
	content string         // plaintext digest after finalize
}

func newFakeClient() *fakeClient {
	return &fakeClient{files: make(map[string]*fakeFile), folders: make(map[string]string)}
}

func (c *fakeClient) CreateFolder(_ context.Context, parentID string, keys domain.NodeKeys) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("folder-%d", c.nextID)
	c.folders[id] = keys.NameHash
	c.events = append(c.events, "folder:"+keys.NameHash)
	return id, nil
}

func (c *fakeClient) InitFileUpload(_ context.Context, parentID string, keys domain.NodeKeys, blocks int) (string, []transfer.BlockSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("file-%d", c.nextID)
	c.files[id] = &fakeFile{keys: keys, blocks: make(map[int]string)}
	c.events = append(c.events, "file:"+keys.NameHash)
	slots := make([]transfer.BlockSlot, blocks)
	for i := range slots {
		slots[i] = transfer.BlockSlot{Index: i, URL: fmt.Sprintf("mem://%s/%d", id, i)}
	}
	return id, slots, nil
}

func (c *fakeClient) CompleteBlock(_ context.Context, fileID string, index int, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[fileID].blocks[index] = digest
	return nil
}

func (c *fakeClient) FinalizeFile(_ context.Context, fileID string, contentDigest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalErr != nil {
		return c.finalErr
	}
	c.files[fileID].content = contentDigest
	return nil
}

// fakeUploader stores uploaded bodies by URL.
type fakeUploader struct {
	mu     sync.Mutex
	bodies map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{bodies: make(map[string][]byte)}
}

func (u *fakeUploader) UploadBlock(_ context.Context, url string, body []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[url] = append([]byte(nil), body...)
	return nil
}

func unlockedParent(t *testing.T) *domain.UnlockedNode {
	t.Helper()
	key, err := pgp.GenerateNodeKey("owner", "owner@example.com")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kr, err := crypto.NewKeyRing(key)
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	return &domain.UnlockedNode{
		ID:         "root",
		Type:       domain.NodeTypeFolder,
		PacketID:   "root-packet",
		SessionKey: []byte("root-session-key-0123456789abcde"),
		Key:        key,
		KeyRing:    kr,
		State:      domain.StateUnlocked,
	}
}

func newQueue(t *testing.T, client transfer.Client, uploader domain.BlockUploader, cfg transfer.Config) *transfer.Queue {
	t.Helper()
	if cfg.OwnerIdentity == "" {
		cfg.OwnerIdentity = "owner@example.com"
	}
	gen := keygen.New(zerolog.Nop())
	return transfer.NewQueue(client, uploader, gen, cfg, zerolog.Nop())
}

// drain runs the queue to completion in the background.
func drain(t *testing.T, q *transfer.Queue) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- q.Run(context.Background()) }()
	q.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("queue did not drain")
	}
}

func TestUploadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789abcdef"), 100)
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	client := newFakeClient()
	uploader := newFakeUploader()
	q := newQueue(t, client, uploader, transfer.Config{BlockSize: 512})

	id, err := q.EnqueueFile(unlockedParent(t), path)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	drain(t, q)

	var item transfer.Item
	for _, it := range q.Status() {
		if it.ID == id {
			item = it
		}
	}
	if item.Status != transfer.StatusCompleted {
		t.Fatalf("status = %s (%v), want completed", item.Status, item.Err)
	}

	if len(client.files) != 1 {
		t.Fatalf("files registered = %d, want 1", len(client.files))
	}
	for fileID, f := range client.files {
		wantBlocks := (len(content) + 511) / 512
		if len(f.blocks) != wantBlocks {
			t.Fatalf("blocks = %d, want %d", len(f.blocks), wantBlocks)
		}

		// Decrypt every uploaded block with the content key the client
		// received and reassemble the plaintext.
		var plain []byte
		for i := 0; i < wantBlocks; i++ {
			body, ok := uploader.bodies[fmt.Sprintf("mem://%s/%d", fileID, i)]
			if !ok {
				t.Fatalf("block %d never uploaded", i)
			}
			if bytes.Contains(body, []byte("0123456789abcdef")) {
				t.Fatal("uploaded block contains plaintext")
			}
			digest := sha256.Sum256(body)
			if f.blocks[i] != hex.EncodeToString(digest[:]) {
				t.Fatalf("block %d digest mismatch", i)
			}
			chunk, err := pgp.DecryptPayload(f.keys.ContentKey, body)
			if err != nil {
				t.Fatalf("decrypt block %d: %v", i, err)
			}
			plain = append(plain, chunk...)
		}
		if !bytes.Equal(plain, content) {
			t.Fatal("reassembled plaintext differs from the source file")
		}

		want := sha256.Sum256(content)
		if f.content != hex.EncodeToString(want[:]) {
			t.Fatal("finalized content digest mismatch")
		}
	}
}

func TestUploadFolderTreeOrdersParentsFirst(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "photos")
	nested := filepath.Join(root, "2026")
	if err := os.MkdirAll(nested, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("aaa"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "b.txt"), []byte("bbb"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := newFakeClient()
	q := newQueue(t, client, newFakeUploader(), transfer.Config{BlockSize: 512})

	if _, err := q.EnqueueFolder(unlockedParent(t), root); err != nil {
		t.Fatalf("enqueue folder: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Run(context.Background()) }()

	// Folder scans enqueue work after Run starts; close once everything
	// known has settled.
	deadline := time.After(30 * time.Second)
	for {
		st := q.Status()
		settled := len(st) == 4
		for _, it := range st {
			if it.Status == transfer.StatusQueued || it.Status == transfer.StatusActive {
				settled = false
			}
		}
		if settled {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("queue never settled: %+v", st)
		case <-time.After(10 * time.Millisecond):
		}
	}
	q.Close()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	pos := make(map[string]int)
	for i, ev := range client.events {
		pos[ev] = i
	}
	order := []struct{ first, second string }{
		{"folder:" + pgp.NameHash("photos"), "folder:" + pgp.NameHash("2026")},
		{"folder:" + pgp.NameHash("photos"), "file:" + pgp.NameHash("a.txt")},
		{"folder:" + pgp.NameHash("2026"), "file:" + pgp.NameHash("b.txt")},
	}
	for _, o := range order {
		fi, ok1 := pos[o.first]
		si, ok2 := pos[o.second]
		if !ok1 || !ok2 {
			t.Fatalf("missing events %q/%q in %v", o.first, o.second, client.events)
		}
		if fi > si {
			t.Fatalf("%q processed after %q", o.first, o.second)
		}
	}
}

func TestEnqueueRejectsEmptyFileAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	full := filepath.Join(dir, "full.txt")
	if err := os.WriteFile(full, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	q := newQueue(t, newFakeClient(), newFakeUploader(), transfer.Config{})
	parent := unlockedParent(t)

	if _, err := q.EnqueueFile(parent, empty); !errors.Is(err, transfer.ErrEmptyFile) {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
	if _, err := q.EnqueueFile(parent, full); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.EnqueueFile(parent, full); err == nil {
		t.Fatal("duplicate path accepted")
	}
}

func TestCancelQueuedItem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := newFakeClient()
	q := newQueue(t, client, newFakeUploader(), transfer.Config{})

	id, err := q.EnqueueFile(unlockedParent(t), path)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Cancel(id)
	drain(t, q)

	for _, it := range q.Status() {
		if it.ID == id && it.Status != transfer.StatusCancelled {
			t.Fatalf("status = %s, want cancelled", it.Status)
		}
	}
	if len(client.files) != 0 {
		t.Fatal("cancelled file still reached the client")
	}
}

func TestFailedFinalizeMarksItemFailed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := newFakeClient()
	client.finalErr = errors.New("server said no")
	q := newQueue(t, client, newFakeUploader(), transfer.Config{})

	id, err := q.EnqueueFile(unlockedParent(t), path)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	drain(t, q)

	for _, it := range q.Status() {
		if it.ID == id {
			if it.Status != transfer.StatusFailed {
				t.Fatalf("status = %s, want failed", it.Status)
			}
			if it.Err == nil {
				t.Fatal("failed item carries no error")
			}
		}
	}
}

func TestProgressReports(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("p"), 2048)
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var mu sync.Mutex
	var reports []transfer.Progress
	q := newQueue(t, newFakeClient(), newFakeUploader(), transfer.Config{
		BlockSize: 512,
		OnProgress: func(p transfer.Progress) {
			mu.Lock()
			reports = append(reports, p)
			mu.Unlock()
		},
	})

	if _, err := q.EnqueueFile(unlockedParent(t), path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	drain(t, q)

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 4 {
		t.Fatalf("reports = %d, want one per block (4)", len(reports))
	}
	last := reports[len(reports)-1]
	if last.BytesDone != int64(len(content)) || last.BytesTotal != int64(len(content)) {
		t.Fatalf("final report %+v does not cover the whole file", last)
	}
}
