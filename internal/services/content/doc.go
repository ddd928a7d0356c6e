// Package content unseals file content keys and encrypts and decrypts
// payload blocks. Content keys are wrapped under the file's own node key and
// optionally signed, so a swapped content key is detectable before any block
// is touched.
package content
