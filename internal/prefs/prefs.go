// Package prefs persists the UI theme preference.
package prefs

import (
	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/storage"
)

// Store reads and writes the theme preference.
type Store struct {
	kv storage.KV
}

// NewStore constructs a preference store over the persistence surface.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Get returns the stored theme. Absent, invalid, or unreadable values fall
// back to light.
func (s *Store) Get() model.Preference {
	raw, err := s.kv.Get(storage.KeyTheme)
	if err != nil {
		return model.PrefLight
	}
	p := model.Preference(raw)
	if !p.Valid() {
		return model.PrefLight
	}
	return p
}

// Set persists the theme immediately.
func (s *Store) Set(p model.Preference) error {
	if !p.Valid() {
		p = model.PrefLight
	}
	return s.kv.Set(storage.KeyTheme, string(p))
}

// Toggle flips light/dark, persists, and returns the new value.
func (s *Store) Toggle() (model.Preference, error) {
	next := model.PrefDark
	if s.Get() == model.PrefDark {
		next = model.PrefLight
	}
	return next, s.Set(next)
}
