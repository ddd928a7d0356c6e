package domain

import "errors"

// Error taxonomy for the key-management core. Callers classify failures with
// errors.Is; wrapping sites add node and operation context.
var (
	// ErrDecryption indicates a ciphertext could not be opened: wrong key,
	// wrong parent secret, or tampered data. Fatal for key material.
	ErrDecryption = errors.New("decryption failed")

	// ErrSignatureInvalid indicates a signature is present but fails the
	// cryptographic check.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrIdentityMismatch indicates a signature verified mathematically but
	// the signer key or bound identity is not the expected one.
	ErrIdentityMismatch = errors.New("signer identity mismatch")

	// ErrPacketChainMismatch indicates a key packet records a different
	// parent packet than the one actually used to unseal it.
	ErrPacketChainMismatch = errors.New("key packet chain mismatch")

	// ErrMalformedInput indicates a structurally invalid packet, armor or
	// ciphertext.
	ErrMalformedInput = errors.New("malformed input")
)
