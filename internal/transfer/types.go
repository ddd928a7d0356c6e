package transfer

import (
	"context"
	"errors"

	"nimbus/internal/domain"
)

// ItemType discriminates queue entries.
type ItemType string

const (
	ItemFile   ItemType = "file"
	ItemFolder ItemType = "folder"
)

// Status is the lifecycle of a queue item.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrEmptyFile rejects zero-byte uploads; the block protocol has no
// representation for an empty body.
var ErrEmptyFile = errors.New("empty files cannot be uploaded")

// Item is one queued upload.
type Item struct {
	ID       string
	Type     ItemType
	Path     string
	Name     string
	ParentID string
	Size     int64
	Status   Status
	Err      error
}

// Progress is a point-in-time report for one active file.
type Progress struct {
	ItemID     string
	Name       string
	BytesDone  int64
	BytesTotal int64
	// Speed is bytes per second averaged over the last few blocks.
	Speed float64
}

// ProgressFunc receives progress reports. Called from the queue's goroutine;
// implementations must not block.
type ProgressFunc func(Progress)

// BlockSlot is one presigned upload target.
type BlockSlot struct {
	Index int
	URL   string
}

// Client is the metadata API surface the queue needs. Implementations send
// only sealed key material; plaintext never crosses this interface.
type Client interface {
	// CreateFolder registers a folder's sealed keys and returns its server id.
	CreateFolder(ctx context.Context, parentID string, keys domain.NodeKeys) (string, error)
	// InitFileUpload registers a file's sealed keys and returns its server id
	// plus one presigned slot per block.
	InitFileUpload(ctx context.Context, parentID string, keys domain.NodeKeys, blocks int) (string, []BlockSlot, error)
	// CompleteBlock confirms one uploaded block with its ciphertext digest.
	CompleteBlock(ctx context.Context, fileID string, index int, digest string) error
	// FinalizeFile commits the upload with the plaintext content digest.
	FinalizeFile(ctx context.Context, fileID string, contentDigest string) error
}
