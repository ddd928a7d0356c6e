// Package keygen produces the sealed key material for new folders and files.
//
// Everything the server receives is ciphertext: the locked node key, the
// sealed passphrase packet, the parent's signature over it, the encrypted
// name with its lookup hash, and for files a wrapped content key. The live
// content key and the already-unlocked node stay client-side so callers can
// start encrypting blocks or creating children immediately.
package keygen
