// Package storage provides the string-keyed persistence surface backing the
// session and preference stores. Three implementations exist: an in-memory map,
// a single JSON file, and an embedded sqlite database.
package storage

import "sync"

// KV is a synchronous string-keyed store. Values are strings; the session and
// preference stores each own a single key.
type KV interface {
	// Get returns the stored value, or a wrapped errs.ErrNotFound when absent.
	Get(key string) (string, error)
	// Set stores value under key, overwriting any prior value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases the backing resource.
	Close() error
}

// Well-known keys. The persistence surface holds exactly these records.
const (
	KeyIdentity = "user"
	KeyTheme    = "theme"
)

// MemStore is a map-backed KV for tests and ephemeral runs.
type MemStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", notFound(key)
	}
	return v, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemStore) Close() error { return nil }
