// Package transport abstracts the bidirectional event relay connection.
//
// The contract mirrors the relay's connect/emit/on surface: a dial that yields
// a connection, named events emitted to the relay, and callbacks for connect,
// disconnect, and inbound events. Chat logic depends only on these types; the
// websocket implementation lives in ws.go.
package transport

import "context"

// Conn is one live relay connection.
type Conn interface {
	// Emit sends payload under the given event name. Best-effort: there is no
	// acknowledgment or retry. Returns errs.ErrClosed after Close.
	Emit(event string, payload []byte) error

	// Close tears the connection down. Idempotent; the disconnect callback
	// fires at most once regardless of how the connection ends.
	Close() error
}

// Events carries the subscriber callbacks for one connection. Callbacks are
// invoked sequentially in delivery order; a nil callback is skipped.
type Events struct {
	OnConnect    func()
	OnDisconnect func()
	OnEvent      func(event string, payload []byte)
}

// Dialer opens relay connections.
type Dialer interface {
	Dial(ctx context.Context, rawURL, path string, ev Events) (Conn, error)
}
