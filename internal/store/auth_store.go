package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nimbus/internal/domain"
)

// AuthFileStore persists non-secret client state as one JSON file per key
// under <dir>/store. Session tokens and anything else worth hiding belong in
// the credential store instead.
type AuthFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAuthFileStore returns an AuthFileStore rooted at dir, creating the
// backing directory when missing.
func NewAuthFileStore(dir string) (*AuthFileStore, error) {
	root := filepath.Join(dir, "store")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &AuthFileStore{dir: root}, nil
}

// Set stores or replaces the value for key.
func (s *AuthFileStore) Set(key, value string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(path, value, 0o600)
}

// Get retrieves the value for key; the boolean reports presence.
func (s *AuthFileStore) Get(key string) (string, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(path)
	if err != nil {
		return "", false, err
	}
	if b == nil {
		return "", false, nil
	}
	var value string
	if err := readJSON(path, &value); err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Delete removes the value for key. Deleting a missing key is not an error.
func (s *AuthFileStore) Delete(key string) error {
	path, err := s.pathFor(key)
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

// pathFor rejects keys that would escape the store directory.
func (s *AuthFileStore) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Compile-time assertion that AuthFileStore implements domain.AuthStore.
var _ domain.AuthStore = (*AuthFileStore)(nil)
