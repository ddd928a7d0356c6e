package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TaskType names a registered crypto operation.
type TaskType string

const (
	TaskUnlockRoot         TaskType = "unlock_root"
	TaskUnlockNode         TaskType = "unlock_node"
	TaskVerifyIntegrity    TaskType = "verify_integrity"
	TaskDecryptName        TaskType = "decrypt_name"
	TaskUnsealContentKey   TaskType = "unseal_content_key"
	TaskDecryptPayload     TaskType = "decrypt_payload"
	TaskEncryptPayload     TaskType = "encrypt_payload"
	TaskGenerateFileKeys   TaskType = "generate_file_keys"
	TaskGenerateFolderKeys TaskType = "generate_folder_keys"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("executor is closed")

// ErrUnknownTask is returned for a type with no registered handler.
var ErrUnknownTask = errors.New("no handler registered for task type")

// Request is one unit of work. ID is filled in when left empty.
type Request struct {
	ID      string
	Type    TaskType
	Payload any
}

// Result pairs a request id with its outcome.
type Result struct {
	RequestID string
	Value     any
	Err       error
}

// Handler executes one task type.
type Handler func(ctx context.Context, payload any) (any, error)

// Future is the pending result of a submitted request.
type Future struct {
	id string
	ch chan Result
}

// ID returns the request id the future correlates to.
func (f *Future) ID() string { return f.id }

// Wait blocks until the result arrives or ctx is done. Cancelling the wait
// abandons the result; the underlying work still runs to completion.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-f.ch:
		return res, res.Err
	case <-ctx.Done():
		return Result{RequestID: f.id}, ctx.Err()
	}
}

type task struct {
	req Request
	h   Handler
	out chan Result
}

// Pool is a fixed-size worker pool with a handler per task type.
type Pool struct {
	mu       sync.RWMutex
	handlers map[TaskType]Handler
	tasks    chan task
	stopped  bool
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// queueDepth bounds how many requests may sit unprocessed before Submit
// blocks. Workers drain the queue, so a blocked Submit always makes progress.
const queueDepth = 128

// NewPool starts workers goroutines. Handlers are registered before the
// first Submit.
func NewPool(workers int, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		handlers: make(map[TaskType]Handler),
		tasks:    make(chan task, queueDepth),
		log:      log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Register installs the handler for a task type, replacing any previous one.
// Already-queued tasks keep the handler they were submitted with.
func (p *Pool) Register(t TaskType, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[t] = h
}

// Submit enqueues a request and returns its future. The request id is
// generated when the caller leaves it empty.
func (p *Pool) Submit(ctx context.Context, req Request) (*Future, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	// The read lock is held across the send: Close takes the write lock
	// before closing the task channel, so it cannot close under a pending
	// send. Workers never touch the lock, so a Submit blocked on a full
	// queue still drains and the write lock is never starved.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrClosed
	}
	h, known := p.handlers[req.Type]
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, req.Type)
	}

	// Capacity one so the worker's send never blocks on an abandoned future.
	out := make(chan Result, 1)
	select {
	case p.tasks <- task{req: req, h: h, out: out}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Future{id: req.ID, ch: out}, nil
}

// Close stops accepting work and waits for in-flight tasks to finish.
// Submits blocked on a full queue complete before the channel closes.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		// The handler was snapshotted at submit time; the worker stays off
		// the pool lock entirely.
		res := Result{RequestID: t.req.ID}
		res.Value, res.Err = t.h(context.Background(), t.req.Payload)
		if res.Err != nil {
			p.log.Debug().
				Str("request", t.req.ID).
				Str("type", string(t.req.Type)).
				Err(res.Err).
				Msg("task failed")
		}
		t.out <- res
	}
}
