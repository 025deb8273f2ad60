// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/session/transport layers.
var (
	// ErrDecode indicates stored ciphertext that cannot be decoded (malformed or tampered).
	ErrDecode = errors.New("decode failed")

	// ErrStorage indicates a persistence-surface failure (open, read, write, quota).
	ErrStorage = errors.New("storage failure")

	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotConnected indicates a send attempted while the transport is down.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed indicates use of a connection after Close.
	ErrClosed = errors.New("connection closed")

	// ErrActive indicates an attempt to open a second session before tearing down the first.
	ErrActive = errors.New("session already active")
)
