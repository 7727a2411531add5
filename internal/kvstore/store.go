// Package kvstore provides file-based JSON key/value storage for client state.
//
// It is the persistence layer behind cached credentials, the chat transcript,
// and the advisory last-session marker. Each key maps to one JSON file under
// the base directory.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("not found")

// Store is a file-per-key JSON store.
type Store struct {
	fs      afero.Fs
	baseDir string
	mu      sync.Mutex
}

// New creates a Store rooted at baseDir on the real filesystem.
func New(baseDir string) *Store {
	return NewWithFs(afero.NewOsFs(), baseDir)
}

// NewWithFs creates a Store on the given filesystem. Tests pass an in-memory fs.
func NewWithFs(fs afero.Fs, baseDir string) *Store {
	return &Store{fs: fs, baseDir: baseDir}
}

func (s *Store) keyToFile(key string) string {
	return filepath.Join(s.baseDir, key+".json")
}

// Get retrieves the value stored under key into v.
// Returns ErrNotFound when the key does not exist.
func (s *Store) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.keyToFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return nil
}

// Set stores v under key, creating the base directory as needed.
func (s *Store) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyToFile(key)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := afero.WriteFile(s.fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// Remove deletes the value stored under key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.keyToFile(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
