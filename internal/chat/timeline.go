package chat

import (
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chasqui-chat/chasqui/internal/model"
)

// Origin says which producer appended a timeline entry.
type Origin int

const (
	// OriginLocal marks a message appended at submit time.
	OriginLocal Origin = iota
	// OriginRemote marks a message delivered by the relay.
	OriginRemote
)

// Sender forwards an outbound message to the relay. *Lifecycle satisfies it.
type Sender interface {
	Send(msg model.Message) error
}

// Notifier is the external "should notify" effect (sound playback lives
// outside this package).
type Notifier interface {
	Notify()
}

// unknownSender labels inbound payloads that cannot be parsed.
const unknownSender = "Unknown"

// anonymousSender labels local submissions made with an empty username.
const anonymousSender = "Anonymous"

// ReconcilerConfig carries the reconciler's policy and effects.
type ReconcilerConfig struct {
	// DedupEcho suppresses the relay's echo of the sender's own message. Off
	// by default: the relay echo appears as a second timeline entry, matching
	// the observed broadcast-to-everyone behavior.
	DedupEcho bool
	Notifier  Notifier
	Log       *zap.Logger
}

// Reconciler merges two event producers, local submissions and relay
// deliveries, into one append-only timeline. Entries keep exact arrival
// order; there are no timestamps and no content-based reordering.
type Reconciler struct {
	sender Sender
	cfg    ReconcilerConfig
	log    *zap.Logger

	mu       sync.Mutex
	timeline []model.Message
	pending  []model.Message // locally-sent messages awaiting echo (dedup policy only)
	onAppend []func(model.Message, Origin)
}

// NewReconciler constructs an empty timeline over the given sender.
func NewReconciler(sender Sender, cfg ReconcilerConfig) *Reconciler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{sender: sender, cfg: cfg, log: log}
}

// OnAppend registers a side-effect handler fired after every timeline append
// (presentation refresh, auto-scroll). Handlers run sequentially in
// registration order, after the append is visible.
func (r *Reconciler) OnAppend(fn func(model.Message, Origin)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAppend = append(r.onAppend, fn)
}

// Submit sends a locally-authored message and appends it immediately for
// responsiveness. A body that trims to empty is a no-op. While disconnected
// nothing is appended and errs.ErrNotConnected comes back as a soft failure;
// the message is not queued.
func (r *Reconciler) Submit(body, currentUser string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	sender := currentUser
	if sender == "" {
		sender = anonymousSender
	}
	msg := model.Message{Sender: sender, Body: body}

	if err := r.sender.Send(msg); err != nil {
		return err
	}

	r.mu.Lock()
	r.timeline = append(r.timeline, msg)
	if r.cfg.DedupEcho {
		r.pending = append(r.pending, msg)
	}
	handlers := append(([]func(model.Message, Origin))(nil), r.onAppend...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(msg, OriginLocal)
	}
	return nil
}

// HandleInbound parses a relay payload and appends it. The payload is either
// a JSON {sender, message} object or a raw string; unparseable input becomes
// a message from "Unknown" rather than being dropped. The notification effect
// fires iff the sender is non-empty and not the current user.
func (r *Reconciler) HandleInbound(payload []byte, currentUser string) {
	var msg model.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		msg = model.Message{Sender: unknownSender, Body: string(payload)}
	}

	r.mu.Lock()
	if r.cfg.DedupEcho && len(r.pending) > 0 && msg == r.pending[0] {
		// the relay echoed our own message back; drop exactly one copy
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return
	}
	r.timeline = append(r.timeline, msg)
	handlers := append(([]func(model.Message, Origin))(nil), r.onAppend...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(msg, OriginRemote)
	}

	if r.cfg.Notifier != nil && msg.Sender != "" && msg.Sender != currentUser {
		r.cfg.Notifier.Notify()
	}
}

// Messages returns a snapshot of the timeline in arrival order.
func (r *Reconciler) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.timeline...)
}

// Len returns the number of timeline entries.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timeline)
}
