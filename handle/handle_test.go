package handle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/najoast/actorhost/actor"
)

type blockingActor struct {
	startedCh chan struct{}
	err       error
}

func (a *blockingActor) Run(ctx context.Context) error {
	close(a.startedCh)
	<-ctx.Done()
	return a.err
}

func TestStartStopJoin(t *testing.T) {
	a := &blockingActor{startedCh: make(chan struct{})}
	h := New("uid-1", "global", "Test", 0, a)

	if h.IsRunning() {
		t.Error("handle should not be running before Start")
	}

	h.Start()
	<-a.startedCh

	if !h.IsRunning() {
		t.Error("handle should report running once Run has started")
	}

	h.Stop()
	if !h.Join(time.Second) {
		t.Fatal("expected Join to observe the actor exit within a second")
	}
	if h.IsRunning() {
		t.Error("handle should report not running after it exits")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	a := &blockingActor{startedCh: make(chan struct{})}
	h := New("uid-1", "global", "Test", 0, a)

	h.Start()
	h.Start() // must not panic or launch a second goroutine
	<-a.startedCh

	h.Stop()
	if !h.Join(time.Second) {
		t.Fatal("expected actor to exit after Stop")
	}
}

func TestJoinTimesOutWhileRunning(t *testing.T) {
	a := &blockingActor{startedCh: make(chan struct{})}
	h := New("uid-1", "global", "Test", 0, a)
	h.Start()
	<-a.startedCh

	if h.Join(10 * time.Millisecond) {
		t.Error("expected Join to time out while the actor is still blocked")
	}

	h.Stop()
	h.Join(time.Second)
}

func TestKillReportsRunErr(t *testing.T) {
	wantErr := errors.New("boom")
	a := &blockingActor{startedCh: make(chan struct{}), err: wantErr}
	h := New("uid-1", "global", "Test", 0, a)
	h.Start()
	<-a.startedCh

	if err := h.Kill(time.Second); err != nil {
		t.Fatalf("expected Kill to succeed once the actor exits, got %v", err)
	}
	if h.Err() != wantErr {
		t.Errorf("expected Err() to return %v, got %v", wantErr, h.Err())
	}
}

func TestKillTimesOutOnStuckActor(t *testing.T) {
	stuck := &stuckActor{started: make(chan struct{})}
	h := New("uid-1", "global", "Stuck", 0, stuck)
	h.Start()
	<-stuck.started

	if err := h.Kill(10 * time.Millisecond); err == nil {
		t.Error("expected Kill to report an error when the actor ignores cancellation")
	}
}

// stuckActor ignores ctx.Done, modeling an actor that never respects cancellation.
type stuckActor struct {
	started chan struct{}
}

func (a *stuckActor) Run(ctx context.Context) error {
	close(a.started)
	select {}
}

var _ actor.Actor = (*blockingActor)(nil)
var _ actor.Actor = (*stuckActor)(nil)
