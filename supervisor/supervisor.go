// Package supervisor implements the periodic scan that culls actors that
// stopped on their own and notifies HostManager, using a snapshot-then-
// mutate discipline: never iterate the live registry, only a
// point-in-time copy of it.
package supervisor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/najoast/actorhost/handle"
	"github.com/najoast/actorhost/registry"
	"github.com/najoast/actorhost/wire"
)

const (
	defaultTick   = 30 * time.Second
	notifyTimeout = 5 * time.Second
)

// Loop is the supervisor's periodic scan.
type Loop struct {
	registry *registry.Registry
	hostOps  *wire.Socket
	log      zerolog.Logger
	tick     time.Duration

	stop <-chan struct{}
}

// New builds a supervisor loop. hostOps is the client socket connected
// to HostManager's ops endpoint.
func New(reg *registry.Registry, hostOps *wire.Socket, log zerolog.Logger, stop <-chan struct{}) *Loop {
	return &Loop{registry: reg, hostOps: hostOps, log: log, tick: defaultTick, stop: stop}
}

// Run ticks until the stop event fires.
func (l *Loop) Run() {
	for {
		select {
		case <-l.stop:
			return
		case <-time.After(l.tick):
		}
		l.sweep()
	}
}

// sweep runs one cull pass. The package's tests call it directly to drive
// the loop deterministically instead of waiting on the real tick.
func (l *Loop) sweep() {
	for _, entry := range l.registry.Snapshot() {
		h, ok := entry.Handle.(*handle.Handle)
		if !ok || h.IsRunning() {
			continue
		}

		// Re-check presence at removal time: the dispatcher may have
		// already removed this uid (e.g. a concurrent kill_actor), in
		// which case Remove is a no-op and we move on.
		if _, removed := l.registry.Remove(entry.UID); !removed {
			continue
		}

		req := wire.NewRequest("remove_actor", map[string]interface{}{"uid": entry.UID})
		if _, err := l.hostOps.Request(req, notifyTimeout); err != nil {
			l.log.Warn().Str("uid", entry.UID).Err(err).Msg("failed to notify remove_actor")
		}
	}
}
