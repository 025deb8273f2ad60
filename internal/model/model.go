// Package model defines domain entities shared by the session, transport, and chat layers.
package model

// Identity is the authenticated user for one session. The secret is held in
// memory only; at rest it exists solely as StoredIdentity.
type Identity struct {
	Username string
	Secret   string // plaintext password, in-memory only
}

// StoredIdentityVersion is the current persisted record schema version.
const StoredIdentityVersion = 1

// StoredIdentity is the persisted, obfuscated form of Identity. Secret holds
// vault ciphertext and must round-trip through the vault exactly; a record
// that fails to decode (or carries an unknown version) is treated as corrupt
// and discarded.
type StoredIdentity struct {
	Version  int    `json:"v"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// Message is a single chat message. Immutable once created; there is no
// server-assigned identifier, ordering is positional within the timeline.
type Message struct {
	Sender string `json:"sender"`
	Body   string `json:"message"`
}

// ConnState is the connection lifecycle state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

// String returns the lowercase state name for logs.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Preference is the persisted UI theme.
type Preference string

const (
	PrefLight Preference = "light"
	PrefDark  Preference = "dark"
)

// Valid reports whether p is one of the two known themes.
func (p Preference) Valid() bool {
	return p == PrefLight || p == PrefDark
}
