// Package pgp exposes the OpenPGP primitives used by nimbus.
//
// Contents
//
//   - Key packet sealing/unsealing: symmetric armored messages carrying a
//     session key plus chain metadata (SealKeyPacket, UnsealKeyPacket)
//   - Detached signatures with signer and identity binding (SignDetached,
//     Verify)
//   - Node key generation, locking and unlocking (GenerateNodeKey, LockKey,
//     UnlockKey)
//   - Name encryption and the deterministic lookup hash (EncryptName,
//     DecryptName, NameHash)
//   - Content session keys and payload transforms (GenerateContentKey,
//     SealContentKey, UnsealContentKey, EncryptPayload, DecryptPayload)
//
// # Notes
//
// Everything crossing the wire is OpenPGP armor (or base64 for bare key
// packets) for interoperability with the server and other clients. Failures
// map onto the domain error taxonomy; callers classify with errors.Is.
package pgp
