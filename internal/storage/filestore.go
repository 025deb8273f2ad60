package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chasqui-chat/chasqui/internal/errs"
)

// FileStore keeps all keys in one JSON file, written with owner-only
// permissions. The whole map is rewritten on every Set/Delete; the store holds
// a handful of small records, so that is cheap.
type FileStore struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

// DefaultDir returns the per-user config directory for the client.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "chasqui")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "chasqui")
}

// NewFileStore opens (or creates) the JSON store at path. A missing file is an
// empty store; an unreadable or malformed file is a storage failure.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, m: make(map[string]string)}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrStorage, path, err)
	}
	if err := json.Unmarshal(b, &s.m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", errs.ErrStorage, path, err)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", notFound(key)
	}
	return v, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		return nil
	}
	delete(s.m, key)
	return s.flush()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: mkdir: %v", errs.ErrStorage, err)
	}
	b, err := json.Marshal(s.m)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", errs.ErrStorage, err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrStorage, s.path, err)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: key %q", errs.ErrNotFound, key)
}
