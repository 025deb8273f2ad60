// Package vault provides reversible obfuscation of stored secrets.
//
// The scheme is symmetric by design: the client must recover the original
// password to reuse it. With a fixed or environment-supplied passphrase this is
// protection against casual inspection of storage, not a confidentiality
// guarantee. The AEAD construction still makes tampering detectable, so a
// mutated record fails Decode instead of yielding garbage.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/chasqui-chat/chasqui/internal/errs"
)

// Vault encodes and decodes secrets with a key derived from a passphrase.
type Vault struct {
	key []byte
}

// New derives a 256-bit key from the passphrase via SHA-256. The derivation is
// deterministic: the same passphrase always opens previously stored records.
func New(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, errors.New("empty vault passphrase")
	}
	sum := sha256.Sum256([]byte(passphrase))
	return &Vault{key: sum[:]}, nil
}

// Encode seals plaintext with XChaCha20-Poly1305 under a random nonce and
// returns base64(nonce||ciphertext).
func (v *Vault) Encode(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, []byte(plaintext), nil)...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decode reverses Encode. Any malformed or tampered input fails with a wrapped
// errs.ErrDecode; callers treat that as "corrupt record, discard".
func (v *Vault) Decode(ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad base64: %v", errs.ErrDecode, err)
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("%w: blob too short", errs.ErrDecode)
	}
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrDecode, err)
	}
	return string(pt), nil
}
