// Package store provides file-based persistence under the config home.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking.
//
// The package includes:
//   - A plain JSON key-value store for non-secret state (AuthFileStore)
//   - A keychain-like store whose entries are sealed with a passphrase-derived
//     key before they touch disk (CredentialFileStore)
package store
