// Package chat contains the client's core session logic: the connection
// lifecycle state machine and the timeline reconciler that merges local and
// relay-echoed messages into one ordered sequence.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chasqui-chat/chasqui/internal/errs"
	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/transport"
)

// Lifecycle owns exactly one relay connection for the active identity.
//
// States: Idle -> Connecting -> Connected -> Disconnected; Close moves any
// state back to Idle. The lifecycle never reconnects on its own; a dropped
// link stays Disconnected until the session is torn down.
type Lifecycle struct {
	dialer    transport.Dialer
	url       string
	path      string
	roomEvent string
	log       *zap.Logger

	mu      sync.Mutex
	state   model.ConnState
	conn    transport.Conn
	inbound func(payload []byte)
}

// NewLifecycle constructs an Idle lifecycle bound to the fixed relay address
// and room event.
func NewLifecycle(dialer transport.Dialer, url, path, roomEvent string, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		dialer:    dialer,
		url:       url,
		path:      path,
		roomEvent: roomEvent,
		log:       log,
		state:     model.StateIdle,
	}
}

// Subscribe registers the receiver for inbound room payloads. Must be called
// before Open; there is exactly one subscriber (the reconciler).
func (l *Lifecycle) Subscribe(fn func(payload []byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbound = fn
}

// Open dials the relay. Only valid from Idle; opening a second connection
// before Close is a caller error (errs.ErrActive). On dial failure the
// lifecycle returns to Idle.
func (l *Lifecycle) Open(ctx context.Context) error {
	l.mu.Lock()
	if l.state != model.StateIdle {
		l.mu.Unlock()
		return errs.ErrActive
	}
	l.state = model.StateConnecting
	l.mu.Unlock()

	conn, err := l.dialer.Dial(ctx, l.url, l.path, transport.Events{
		OnConnect:    l.handleConnect,
		OnDisconnect: l.handleDisconnect,
		OnEvent:      l.handleEvent,
	})
	if err != nil {
		l.mu.Lock()
		l.state = model.StateIdle
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	if l.state == model.StateIdle {
		// torn down while the dial was in flight
		l.mu.Unlock()
		return conn.Close()
	}
	l.conn = conn
	l.mu.Unlock()
	return nil
}

// Close tears the connection down and returns to Idle. Idempotent: closing an
// already-Idle or already-Disconnected lifecycle is a no-op.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	prev := l.state
	l.state = model.StateIdle
	l.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if prev != model.StateIdle {
		l.log.Info("lifecycle closed", zap.Stringer("from", prev))
	}
}

// State returns the current connection state.
func (l *Lifecycle) State() model.ConnState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsConnected reports whether messages can currently be sent.
func (l *Lifecycle) IsConnected() bool {
	return l.State() == model.StateConnected
}

// Send emits the message into the room. Fire-and-forget: no queueing, no
// retry. Returns errs.ErrNotConnected while the transport is down.
func (l *Lifecycle) Send(msg model.Message) error {
	l.mu.Lock()
	conn := l.conn
	connected := l.state == model.StateConnected
	l.mu.Unlock()

	if !connected || conn == nil {
		return errs.ErrNotConnected
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return conn.Emit(l.roomEvent, payload)
}

func (l *Lifecycle) handleConnect() {
	l.mu.Lock()
	if l.state == model.StateConnecting {
		l.state = model.StateConnected
	}
	l.mu.Unlock()
	l.log.Info("connected")
}

func (l *Lifecycle) handleDisconnect() {
	l.mu.Lock()
	if l.state == model.StateIdle {
		// teardown already ran; stay Idle
		l.mu.Unlock()
		return
	}
	l.state = model.StateDisconnected
	l.mu.Unlock()
	l.log.Info("disconnected")
}

func (l *Lifecycle) handleEvent(event string, payload []byte) {
	if event != l.roomEvent {
		return
	}
	l.mu.Lock()
	fn := l.inbound
	l.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}
