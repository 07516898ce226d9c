// Package ops implements the local ops endpoint: the loop that receives
// one request at a time, dispatches it, and replies exactly once, never
// concurrently on the same socket. The request table and every error
// reason string here are load-bearing — callers match on them.
package ops

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/handle"
	"github.com/najoast/actorhost/loader"
	"github.com/najoast/actorhost/registry"
	"github.com/najoast/actorhost/wire"
)

const (
	joinTimeout = 10 * time.Second
	killTimeout = 10 * time.Second
)

// Dispatcher serves the local ops socket.
type Dispatcher struct {
	socket   *wire.Socket
	registry *registry.Registry
	loader   loader.Loader
	host     actor.Host
	log      zerolog.Logger

	stop <-chan struct{}

	appInfo map[string]interface{}
}

// New builds a dispatcher. stop is the process-wide stop event; the
// dispatcher's loop exits within one iteration after it fires.
func New(socket *wire.Socket, reg *registry.Registry, ld loader.Loader, host actor.Host, log zerolog.Logger, stop <-chan struct{}) *Dispatcher {
	return &Dispatcher{socket: socket, registry: reg, loader: ld, host: host, log: log, stop: stop}
}

// SetAppInfo attaches the host's app identity (name/version/description)
// to every keepalive reply's data field, the way beach_cli.py tags ops
// traffic with an identifying name. Optional: a dispatcher with no app
// info replies to keepalive with a bare ok.
func (d *Dispatcher) SetAppInfo(info map[string]interface{}) {
	d.appInfo = info
}

// Run serves requests until the stop event fires or ctx is cancelled.
// Load/start work runs inline on this goroutine; callers are expected
// to set their own client-side timeouts.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-d.stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		req, err := d.socket.Recv()
		if err != nil {
			select {
			case <-d.stop:
				return nil
			default:
			}
			d.log.Warn().Err(err).Msg("ops socket recv failed")
			continue
		}

		reply := d.handle(req)
		if err := d.socket.Send(reply); err != nil {
			d.log.Warn().Err(err).Msg("ops socket send failed")
		}
	}
}

func (d *Dispatcher) handle(req *wire.Message) *wire.Message {
	action, ok := req.Req()
	if !ok {
		d.log.Error().Bool("critical", true).Msg("received completely invalid request")
		return wire.ErrorMessage("invalid request", nil)
	}

	d.log.Info().Str("req", action).Msg("received ops request")

	switch action {
	case "keepalive":
		return wire.SuccessMessage(d.appInfo)
	case "start_actor":
		return d.handleStartActor(req)
	case "kill_actor":
		return d.handleKillActor(req)
	default:
		return wire.ErrorMessage("unknown request", map[string]interface{}{"req": action})
	}
}

func (d *Dispatcher) handleStartActor(req *wire.Message) *wire.Message {
	actorName, hasName := req.StringField("actor_name")
	port, hasPort := req.IntField("port")
	uid, hasUID := req.StringField("uid")
	if !hasName || !hasPort || !hasUID {
		return wire.ErrorMessage("missing information to start actor", nil)
	}
	realm, _ := req.StringField("realm")
	if realm == "" {
		realm = "global"
	}

	d.log.Info().Str("realm", realm).Str("actor_name", actorName).Str("uid", uid).Msg("starting actor")

	h, err := d.loader.Load(d.host, realm, actorName, port, uid)
	if err != nil {
		d.log.Info().Str("uid", uid).Err(err).Msg("actor load failed")
		return wire.ErrorMessage("exception", map[string]interface{}{"st": err.Error()})
	}

	if insertErr := d.registry.Insert(uid, h); insertErr != nil {
		d.log.Info().Str("uid", uid).Err(insertErr).Msg("actor registration failed")
		return wire.ErrorMessage("exception", map[string]interface{}{"st": insertErr.Error()})
	}

	h.Start()
	return wire.SuccessMessage(nil)
}

func (d *Dispatcher) handleKillActor(req *wire.Message) *wire.Message {
	uid, hasUID := req.StringField("uid")
	if !hasUID {
		return wire.ErrorMessage("missing information to stop actor", nil)
	}

	h, ok := d.registry.Remove(uid)
	if !ok {
		return wire.ErrorMessage("actor not found", nil)
	}

	hh := h.(*handle.Handle)
	hh.Stop()
	if hh.Join(joinTimeout) {
		return wire.SuccessMessage(nil)
	}

	if err := hh.Kill(killTimeout); err != nil {
		d.log.Error().Str("uid", uid).Err(err).Msg("actor kill timed out")
	}
	return wire.SuccessMessage(map[string]interface{}{"error": "timeout"})
}
