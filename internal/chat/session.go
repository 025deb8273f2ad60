package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/transport"
)

// Session binds one Identity to one Lifecycle and one Reconciler. It is built
// at login and discarded at logout; discarding it clears the timeline, and no
// second session may exist while one is active.
type Session struct {
	identity   model.Identity
	lifecycle  *Lifecycle
	reconciler *Reconciler
}

// SessionConfig names the fixed relay coordinates and the reconciler policy.
type SessionConfig struct {
	RelayURL  string
	RelayPath string
	RoomEvent string
	DedupEcho bool
	Notifier  Notifier
	Log       *zap.Logger
}

// NewSession wires lifecycle and reconciler for the identity. The transport is
// not opened yet; call Start.
func NewSession(id model.Identity, dialer transport.Dialer, cfg SessionConfig) *Session {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("user", id.Username))

	lc := NewLifecycle(dialer, cfg.RelayURL, cfg.RelayPath, cfg.RoomEvent, log)
	rec := NewReconciler(lc, ReconcilerConfig{
		DedupEcho: cfg.DedupEcho,
		Notifier:  cfg.Notifier,
		Log:       log,
	})

	s := &Session{identity: id, lifecycle: lc, reconciler: rec}
	lc.Subscribe(func(payload []byte) {
		rec.HandleInbound(payload, id.Username)
	})
	return s
}

// Start opens the relay connection.
func (s *Session) Start(ctx context.Context) error {
	return s.lifecycle.Open(ctx)
}

// Close tears the connection down. Safe to call repeatedly.
func (s *Session) Close() {
	s.lifecycle.Close()
}

// Submit sends a message authored by the session's user.
func (s *Session) Submit(body string) error {
	return s.reconciler.Submit(body, s.identity.Username)
}

// Messages returns the timeline snapshot for presentation.
func (s *Session) Messages() []model.Message {
	return s.reconciler.Messages()
}

// OnAppend registers a presentation hook on the underlying reconciler.
func (s *Session) OnAppend(fn func(model.Message, Origin)) {
	s.reconciler.OnAppend(fn)
}

// IsConnected reports the lifecycle's binary connection status.
func (s *Session) IsConnected() bool {
	return s.lifecycle.IsConnected()
}

// State exposes the lifecycle state for presentation ("online"/"offline").
func (s *Session) State() model.ConnState {
	return s.lifecycle.State()
}

// Username returns the identity owning this session.
func (s *Session) Username() string {
	return s.identity.Username
}
