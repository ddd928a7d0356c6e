package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nimbus/internal/domain"
)

// ErrSecretNotFound is returned when no secret exists for (service, account).
var ErrSecretNotFound = errors.New("secret not found")

// CredentialFileStore is a keychain-like store: one sealed file per
// (service, account) pair under <dir>/secure, encrypted with a
// passphrase-derived key so secrets never touch disk in the clear.
type CredentialFileStore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewCredentialFileStore returns a CredentialFileStore rooted at dir,
// creating the backing directory when missing.
func NewCredentialFileStore(dir, passphrase string) (*CredentialFileStore, error) {
	root := filepath.Join(dir, "secure")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &CredentialFileStore{dir: root, passphrase: passphrase}, nil
}

// SetSecret stores or replaces the secret for (service, account).
func (s *CredentialFileStore) SetSecret(service, account, secret string) error {
	path, err := s.pathFor(service, account)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	sealed, err := encrypt(s.passphrase, []byte(secret), N, r, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(path, sealed, 0o600)
}

// GetSecret retrieves and opens the secret for (service, account).
func (s *CredentialFileStore) GetSecret(service, account string) (string, error) {
	path, err := s.pathFor(service, account)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	sealed, err := readFile(path)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if sealed == nil {
		return "", ErrSecretNotFound
	}
	raw, err := decrypt(s.passphrase, sealed)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DeleteSecret removes the secret for (service, account). Deleting a missing
// secret is not an error.
func (s *CredentialFileStore) DeleteSecret(service, account string) error {
	path, err := s.pathFor(service, account)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *CredentialFileStore) pathFor(service, account string) (string, error) {
	for _, part := range []string{service, account} {
		if part == "" || strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return "", fmt.Errorf("invalid secret name %q", part)
		}
	}
	return filepath.Join(s.dir, service+"_"+account+".secure"), nil
}

// Compile-time assertion that CredentialFileStore implements domain.CredentialStore.
var _ domain.CredentialStore = (*CredentialFileStore)(nil)
