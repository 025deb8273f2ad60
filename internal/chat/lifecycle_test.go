package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/chasqui-chat/chasqui/internal/errs"
	"github.com/chasqui-chat/chasqui/internal/model"
	"github.com/chasqui-chat/chasqui/internal/transport"
)

// fakeConn records emits and counts closes.
type fakeConn struct {
	emits  []emitted
	closes int
}

type emitted struct {
	event   string
	payload string
}

func (f *fakeConn) Emit(event string, payload []byte) error {
	f.emits = append(f.emits, emitted{event, string(payload)})
	return nil
}

func (f *fakeConn) Close() error {
	f.closes++
	return nil
}

// fakeDialer hands out one fakeConn and keeps the Events for simulation. Like
// the websocket dialer, it fires OnConnect before Dial returns.
type fakeDialer struct {
	conn    *fakeConn
	ev      transport.Events
	dialErr error
	dials   int
}

func (f *fakeDialer) Dial(_ context.Context, _, _ string, ev transport.Events) (transport.Conn, error) {
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	f.ev = ev
	if ev.OnConnect != nil {
		ev.OnConnect()
	}
	return f.conn, nil
}

func newLifecycle(d *fakeDialer) *Lifecycle {
	return NewLifecycle(d, "wss://relay.example", "", "test", nil)
}

func TestOpen_Transitions(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{conn: &fakeConn{}}
	l := newLifecycle(d)

	if got := l.State(); got != model.StateIdle {
		t.Fatalf("initial state=%v, want idle", got)
	}
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := l.State(); got != model.StateConnected {
		t.Fatalf("state after Open=%v, want connected", got)
	}
	if !l.IsConnected() {
		t.Fatalf("IsConnected must be true after connect ack")
	}

	d.ev.OnDisconnect()
	if got := l.State(); got != model.StateDisconnected {
		t.Fatalf("state after disconnect=%v, want disconnected", got)
	}
	if l.IsConnected() {
		t.Fatalf("IsConnected must be false after disconnect")
	}
}

func TestOpen_SecondOpenIsCallerError(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{conn: &fakeConn{}}
	l := newLifecycle(d)

	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Open(context.Background()); !errors.Is(err, errs.ErrActive) {
		t.Fatalf("second Open: want ErrActive, got %v", err)
	}
	if d.dials != 1 {
		t.Fatalf("dials=%d, want 1 (one transport per identity)", d.dials)
	}
}

func TestOpen_DialFailureReturnsToIdle(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{dialErr: errors.New("relay down")}
	l := newLifecycle(d)

	if err := l.Open(context.Background()); err == nil {
		t.Fatalf("Open must propagate dial failure")
	}
	if got := l.State(); got != model.StateIdle {
		t.Fatalf("state after failed dial=%v, want idle", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	d := &fakeDialer{conn: conn}
	l := newLifecycle(d)

	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	d.ev.OnDisconnect() // already disconnected before teardown

	l.Close()
	l.Close()

	if conn.closes != 1 {
		t.Fatalf("transport closes=%d, want 1", conn.closes)
	}
	if got := l.State(); got != model.StateIdle {
		t.Fatalf("state after Close=%v, want idle", got)
	}
}

func TestClose_BeforeOpenIsNoOp(t *testing.T) {
	t.Parallel()
	l := newLifecycle(&fakeDialer{conn: &fakeConn{}})
	l.Close()
	if got := l.State(); got != model.StateIdle {
		t.Fatalf("state=%v, want idle", got)
	}
}

func TestDisconnectAfterTeardown_StaysIdle(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{conn: &fakeConn{}}
	l := newLifecycle(d)

	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Close()
	d.ev.OnDisconnect() // transport reports the close we requested
	if got := l.State(); got != model.StateIdle {
		t.Fatalf("state=%v, want idle", got)
	}
}

func TestSend_WhileDisconnected(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{conn: &fakeConn{}}
	l := newLifecycle(d)

	err := l.Send(model.Message{Sender: "alice", Body: "hi"})
	if !errors.Is(err, errs.ErrNotConnected) {
		t.Fatalf("Send while idle: want ErrNotConnected, got %v", err)
	}

	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	d.ev.OnDisconnect()
	err = l.Send(model.Message{Sender: "alice", Body: "hi"})
	if !errors.Is(err, errs.ErrNotConnected) {
		t.Fatalf("Send while disconnected: want ErrNotConnected, got %v", err)
	}
	if len(d.conn.emits) != 0 {
		t.Fatalf("nothing may reach the transport while disconnected")
	}
}

func TestSend_EmitsRoomEventJSON(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	d := &fakeDialer{conn: conn}
	l := newLifecycle(d)

	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	msg := model.Message{Sender: "alice", Body: "hi"}
	if err := l.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(conn.emits) != 1 || conn.emits[0].event != "test" {
		t.Fatalf("emits=%+v, want one frame on event test", conn.emits)
	}
	var got model.Message
	if err := json.Unmarshal([]byte(conn.emits[0].payload), &got); err != nil || got != msg {
		t.Fatalf("payload=%q err=%v, want %+v", conn.emits[0].payload, err, msg)
	}
}

func TestInbound_FiltersRoomEvent(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{conn: &fakeConn{}}
	l := newLifecycle(d)

	var got [][]byte
	l.Subscribe(func(p []byte) { got = append(got, p) })
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	d.ev.OnEvent("other-room", []byte("ignored"))
	d.ev.OnEvent("test", []byte("delivered"))

	if len(got) != 1 || string(got[0]) != "delivered" {
		t.Fatalf("forwarded=%q, want exactly [delivered]", got)
	}
}
