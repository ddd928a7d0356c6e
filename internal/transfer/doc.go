// Package transfer queues and runs encrypted uploads.
//
// Files are read locally, encrypted block by block with the file's content
// key, and put to presigned URLs; the server only ever receives ciphertext
// and block digests. Folders are created before their children so every
// child can seal its keys under an unlocked parent. The queue supports
// pause, resume and cancellation, deduplicates paths, and reports progress
// with a short moving average of upload speed.
package transfer
