// Package session persists the authenticated identity across restarts.
//
// The stored record is a versioned JSON envelope whose secret field holds
// vault ciphertext. A record that fails to parse, carries an unknown schema
// version, or fails to decode is deleted and treated as "no stored identity";
// corruption surfaces to the user only as being logged out.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chasqui-chat/chasqui/internal/errs"
	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/storage"
	"github.com/chasqui-chat/chasqui/internal/vault"
)

// Store loads, saves, and clears the persisted identity.
type Store struct {
	kv    storage.KV
	vault *vault.Vault
	log   *zap.Logger
}

// NewStore constructs a Store over the given persistence surface and vault.
func NewStore(kv storage.KV, v *vault.Vault, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, vault: v, log: log}
}

// Load returns the persisted identity with its secret decoded, or nil when no
// valid record exists. Corrupt records (bad JSON, unknown version, failed
// decode, empty username) are deleted so the next Load starts clean; decode
// failures are never surfaced as errors. Persistence-surface failures are.
func (s *Store) Load() (*model.Identity, error) {
	raw, err := s.kv.Get(storage.KeyIdentity)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var rec model.StoredIdentity
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, s.discard("unparseable identity record", err)
	}
	if rec.Version != model.StoredIdentityVersion {
		return nil, s.discard("unknown identity record version",
			fmt.Errorf("version %d", rec.Version))
	}
	if rec.Username == "" {
		return nil, s.discard("identity record missing username", nil)
	}

	secret, err := s.vault.Decode(rec.Secret)
	if err != nil {
		return nil, s.discard("identity secret decode failed", err)
	}
	return &model.Identity{Username: rec.Username, Secret: secret}, nil
}

// Save encodes the secret and persists the identity, replacing any prior record.
func (s *Store) Save(id model.Identity) error {
	ct, err := s.vault.Encode(id.Secret)
	if err != nil {
		return fmt.Errorf("encode secret: %w", err)
	}
	rec := model.StoredIdentity{
		Version:  model.StoredIdentityVersion,
		Username: id.Username,
		Secret:   ct,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal identity: %v", errs.ErrStorage, err)
	}
	return s.kv.Set(storage.KeyIdentity, string(b))
}

// Clear removes the persisted identity. Idempotent.
func (s *Store) Clear() error {
	return s.kv.Delete(storage.KeyIdentity)
}

// discard deletes the corrupt record and reports "no identity". The delete is
// best-effort; Load must not fail because cleanup did.
func (s *Store) discard(msg string, cause error) error {
	s.log.Warn("discarding stored identity", zap.String("reason", msg), zap.Error(cause))
	if err := s.kv.Delete(storage.KeyIdentity); err != nil {
		s.log.Warn("failed to delete corrupt identity record", zap.Error(err))
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
