// Package handle implements the actor handle: the host's only view onto
// a running actor, exposing exactly five capabilities (start, stop,
// join, kill, is_running). Everything else about how the wrapped
// actor.Actor structures its own concurrency is opaque.
package handle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/najoast/actorhost/actor"
)

type state int32

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Handle wraps one loaded actor.Actor. A Handle is created by the loader
// on a successful load and is not yet started; callers then call Start.
type Handle struct {
	UID   string
	Realm string
	Name  string
	Port  int

	a      actor.Actor
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	runErr error

	state     int32 // state
	killed    int32 // 1 once a kill gave up waiting
	startOnce sync.Once
}

// New builds a handle around a constructed but not-yet-running actor.
func New(uid, realm, name string, port int, a actor.Actor) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handle{
		UID:    uid,
		Realm:  realm,
		Name:   name,
		Port:   port,
		a:      a,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  int32(stateIdle),
	}
}

// Start launches the actor's run loop. Non-blocking, idempotent after
// the first call.
func (h *Handle) Start() {
	h.startOnce.Do(func() {
		atomic.StoreInt32(&h.state, int32(stateRunning))
		go func() {
			defer close(h.done)
			err := h.a.Run(h.ctx)
			h.runErr = err
			atomic.StoreInt32(&h.state, int32(stateStopped))
		}()
	})
}

// Stop signals the actor to shut down. Non-blocking, cooperative: it
// only cancels the context the actor was handed, it does not wait for
// the actor to actually exit.
func (h *Handle) Stop() {
	h.cancel()
}

// Join waits up to timeout for the actor to finish. Returns true if it
// finished within the budget.
func (h *Handle) Join(timeout time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Kill force-terminates the actor, best effort, bounded by timeout. Go
// has no safe way to forcibly destroy a goroutine; Kill's enforcement is
// to stop waiting once the deadline passes and mark the handle killed.
// IsRunning keeps reporting the truth (a leaked goroutine still running)
// rather than lying about liveness.
func (h *Handle) Kill(timeout time.Duration) error {
	h.cancel()
	if h.Join(timeout) {
		return nil
	}
	atomic.StoreInt32(&h.killed, 1)
	return fmt.Errorf("actor %s did not exit within %s", h.UID, timeout)
}

// IsRunning reports whether Start has launched the actor's Run method and
// Run has not yet returned. It is false before Start.
func (h *Handle) IsRunning() bool {
	return state(atomic.LoadInt32(&h.state)) == stateRunning
}

// Err returns the error Run returned, if any. Only meaningful once
// IsRunning is false.
func (h *Handle) Err() error {
	return h.runErr
}
