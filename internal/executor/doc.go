// Package executor runs crypto operations on a worker pool.
//
// Callers submit typed requests and receive a future for the result, so slow
// operations (key generation, subtree unlocks) never block the caller's
// goroutine. Results are delivered exactly once into a buffered channel; an
// abandoned future discards its result, but the work itself still completes.
package executor
