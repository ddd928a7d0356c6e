// Package recovery derives account recovery material.
//
// Two independent mechanisms are supported: a password-derived seed
// (Argon2id over the account password with a per-account salt) and a
// twelve-word mnemonic recovery phrase whose seed can restore access when
// the password is lost. Both produce hex strings so they survive transport
// through JSON and QR codes unchanged.
package recovery
