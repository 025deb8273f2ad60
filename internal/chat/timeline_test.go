package chat

import (
	"errors"
	"testing"

	"github.com/chasqui-chat/chasqui/internal/errs"
	"github.com/chasqui-chat/chasqui/internal/model"
)

type fakeSender struct {
	sent []model.Message
	err  error
}

func (f *fakeSender) Send(msg model.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type countNotifier struct{ n int }

func (c *countNotifier) Notify() { c.n++ }

func TestSubmitThenInbound_ArrivalOrder(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	r := NewReconciler(fs, ReconcilerConfig{})

	if err := r.Submit("a", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.HandleInbound([]byte(`{"sender":"bob","message":"b"}`), "alice")

	want := []model.Message{
		{Sender: "alice", Body: "a"},
		{Sender: "bob", Body: "b"},
	}
	got := r.Messages()
	if len(got) != len(want) {
		t.Fatalf("timeline len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timeline[%d]=%+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEchoNotDeduplicatedByDefault(t *testing.T) {
	t.Parallel()
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{})

	if err := r.Submit("hi", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.HandleInbound([]byte(`{"sender":"alice","message":"hi"}`), "alice")

	if n := r.Len(); n != 2 {
		t.Fatalf("timeline len=%d, want 2 (self-echo is kept)", n)
	}
}

func TestDedupEcho_SuppressesExactlyOneCopy(t *testing.T) {
	t.Parallel()
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{DedupEcho: true})

	if err := r.Submit("hi", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	echo := []byte(`{"sender":"alice","message":"hi"}`)

	r.HandleInbound(echo, "alice") // the relay echo: dropped
	if n := r.Len(); n != 1 {
		t.Fatalf("after echo: len=%d, want 1", n)
	}

	r.HandleInbound(echo, "alice") // a genuine identical message: kept
	if n := r.Len(); n != 2 {
		t.Fatalf("after second copy: len=%d, want 2", n)
	}
}

func TestNotificationGating(t *testing.T) {
	t.Parallel()
	n := &countNotifier{}
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{Notifier: n})

	r.HandleInbound([]byte(`{"sender":"alice","message":"x"}`), "alice")
	if n.n != 0 {
		t.Fatalf("own message must not notify, got %d", n.n)
	}

	r.HandleInbound([]byte(`{"sender":"bob","message":"x"}`), "alice")
	if n.n != 1 {
		t.Fatalf("peer message must notify once, got %d", n.n)
	}

	r.HandleInbound([]byte(`{"sender":"","message":"x"}`), "alice")
	if n.n != 1 {
		t.Fatalf("empty sender must not notify, got %d", n.n)
	}
}

func TestSubmit_LocalNeverNotifies(t *testing.T) {
	t.Parallel()
	n := &countNotifier{}
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{Notifier: n})

	if err := r.Submit("hello", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n.n != 0 {
		t.Fatalf("local submit must not notify, got %d", n.n)
	}
}

func TestSubmit_EmptyBodyNoOp(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	r := NewReconciler(fs, ReconcilerConfig{})

	if err := r.Submit("   ", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("empty submit must not append")
	}
	if len(fs.sent) != 0 {
		t.Fatalf("empty submit must not reach the transport")
	}
}

func TestSubmit_NotConnectedSoftFailure(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{err: errs.ErrNotConnected}
	r := NewReconciler(fs, ReconcilerConfig{})

	err := r.Submit("hi", "alice")
	if !errors.Is(err, errs.ErrNotConnected) {
		t.Fatalf("Submit while disconnected: want ErrNotConnected, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("disconnected submit must not append (no offline queue)")
	}
}

func TestSubmit_AnonymousFallback(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	r := NewReconciler(fs, ReconcilerConfig{})

	if err := r.Submit("hi", ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := fs.sent[0].Sender; got != "Anonymous" {
		t.Fatalf("sender=%q, want Anonymous", got)
	}
}

func TestHandleInbound_MalformedFallsBackToUnknown(t *testing.T) {
	t.Parallel()
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{})

	r.HandleInbound([]byte("not json"), "alice")

	got := r.Messages()
	want := model.Message{Sender: "Unknown", Body: "not json"}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("timeline=%+v, want [%+v]", got, want)
	}
}

func TestOnAppend_FiresWithOrigin(t *testing.T) {
	t.Parallel()
	r := NewReconciler(&fakeSender{}, ReconcilerConfig{})

	type appended struct {
		msg    model.Message
		origin Origin
	}
	var seen []appended
	r.OnAppend(func(m model.Message, o Origin) {
		seen = append(seen, appended{m, o})
	})

	if err := r.Submit("a", "alice"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.HandleInbound([]byte(`{"sender":"bob","message":"b"}`), "alice")

	if len(seen) != 2 {
		t.Fatalf("appends seen=%d, want 2", len(seen))
	}
	if seen[0].origin != OriginLocal || seen[1].origin != OriginRemote {
		t.Fatalf("origins=%v,%v want local,remote", seen[0].origin, seen[1].origin)
	}
}
