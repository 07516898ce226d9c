package ops

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/hostlog"
	"github.com/najoast/actorhost/loader"
	"github.com/najoast/actorhost/registry"
	"github.com/najoast/actorhost/wire"
)

type fakeHost struct{}

func (fakeHost) DirectoryEndpoint() string                    { return "ipc:///tmp/test" }
func (fakeHost) Logf(uid, format string, args ...interface{}) {}

func blockingEcho(host actor.Host, realm string, port int, uid string) (actor.Actor, error) {
	return blockingActor{}, nil
}

type blockingActor struct{}

func (blockingActor) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *wire.Socket, *registry.Registry, chan struct{}) {
	t.Helper()
	addr := filepath.Join(t.TempDir(), "ops.sock")

	server, err := wire.Bind("unix", addr)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	client := wire.NewClient("unix", addr)
	t.Cleanup(func() { client.Close() })

	reg := registry.New()
	ld := loader.NewStaticLoader()
	ld.Register("global", "Echo", blockingEcho)

	stop := make(chan struct{})
	d := New(server, reg, ld, fakeHost{}, hostlog.Component("ops-test"), stop)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(cancel)
	t.Cleanup(func() { close(stop) })

	return d, client, reg, stop
}

func TestKeepalive(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	reply, err := client.Request(wire.NewRequest("keepalive", nil), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	status, ok := reply.Status()
	if !ok || status != wire.StatusOK {
		t.Errorf("expected ok status, got (%v, %v)", status, ok)
	}
}

func TestKeepaliveCarriesAppInfo(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	d.SetAppInfo(map[string]interface{}{"name": "actorhost", "version": "1.2.3"})

	reply, err := client.Request(wire.NewRequest("keepalive", nil), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	data, ok := reply.Data()
	if !ok {
		t.Fatal("expected data field on keepalive reply")
	}
	if data["name"] != "actorhost" {
		t.Errorf("expected data.name to be actorhost, got %v", data["name"])
	}
}

func TestStartActorSuccessThenKillActor(t *testing.T) {
	_, client, reg, _ := newTestDispatcher(t)

	start := wire.NewRequest("start_actor", map[string]interface{}{
		"actor_name": "Echo",
		"port":       1234,
		"uid":        "uid-1",
		"realm":      "global",
	})
	reply, err := client.Request(start, time.Second)
	if err != nil {
		t.Fatalf("start_actor request failed: %v", err)
	}
	if status, _ := reply.Status(); status != wire.StatusOK {
		reason, _ := reply.ErrorReason()
		t.Fatalf("expected start_actor to succeed, got error: %s", reason)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one actor registered, got %d", reg.Len())
	}

	kill := wire.NewRequest("kill_actor", map[string]interface{}{"uid": "uid-1"})
	reply, err = client.Request(kill, time.Second)
	if err != nil {
		t.Fatalf("kill_actor request failed: %v", err)
	}
	if status, _ := reply.Status(); status != wire.StatusOK {
		t.Errorf("expected kill_actor to succeed")
	}
	if reg.Len() != 0 {
		t.Errorf("expected actor removed from registry after kill, got %d entries", reg.Len())
	}
}

func TestStartActorMissingFields(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	reply, err := client.Request(wire.NewRequest("start_actor", map[string]interface{}{"actor_name": "Echo"}), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reason, ok := reply.ErrorReason()
	if !ok || reason != "missing information to start actor" {
		t.Errorf("expected missing-information error, got (%q, %v)", reason, ok)
	}
}

func TestStartActorUnknownActorIsException(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	start := wire.NewRequest("start_actor", map[string]interface{}{
		"actor_name": "DoesNotExist",
		"port":       1,
		"uid":        "uid-2",
	})
	reply, err := client.Request(start, time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reason, ok := reply.ErrorReason()
	if !ok || reason != "exception" {
		t.Errorf("expected exception error, got (%q, %v)", reason, ok)
	}
	data, _ := reply.Data()
	if _, ok := data["st"]; !ok {
		t.Error("expected data.st trace on exception")
	}
}

func TestKillActorMissingUID(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	reply, err := client.Request(wire.NewRequest("kill_actor", nil), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reason, ok := reply.ErrorReason()
	if !ok || reason != "missing information to stop actor" {
		t.Errorf("expected missing-information error, got (%q, %v)", reason, ok)
	}
}

func TestKillActorNotFound(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	reply, err := client.Request(wire.NewRequest("kill_actor", map[string]interface{}{"uid": "nope"}), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reason, ok := reply.ErrorReason()
	if !ok || reason != "actor not found" {
		t.Errorf("expected actor-not-found error, got (%q, %v)", reason, ok)
	}
}

func TestUnknownRequest(t *testing.T) {
	_, client, _, _ := newTestDispatcher(t)

	reply, err := client.Request(wire.NewRequest("does_not_exist", nil), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reason, ok := reply.ErrorReason()
	if !ok || reason != "unknown request" {
		t.Errorf("expected unknown-request error, got (%q, %v)", reason, ok)
	}
	data, _ := reply.Data()
	if data["req"] != "does_not_exist" {
		t.Errorf("expected data.req echo, got %v", data)
	}
}
