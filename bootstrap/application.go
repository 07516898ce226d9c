// Package bootstrap wires the actor host's components into a single
// lifecycle-managed application: the ops dispatcher and supervisor loop
// run as Services under a LifecycleManager, sharing one Container and
// one Registry.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/najoast/actorhost/codewatch"
	"github.com/najoast/actorhost/config"
	"github.com/najoast/actorhost/examples/echo"
	"github.com/najoast/actorhost/handle"
	"github.com/najoast/actorhost/hostlog"
	"github.com/najoast/actorhost/loader"
	"github.com/najoast/actorhost/ops"
	"github.com/najoast/actorhost/registry"
	"github.com/najoast/actorhost/supervisor"
	"github.com/najoast/actorhost/wire"
)

const shutdownBudget = 30 * time.Second

// ActorHostApplication implements Application for the actor host: it
// owns the registry, the two ops sockets, and the dispatcher/supervisor
// services, and it satisfies actor.Host so loaded actors can log through
// the same sink and learn the directory endpoint.
type ActorHostApplication struct {
	cfg        *config.Config
	instanceID int

	container        Container
	lifecycleManager LifecycleManager

	reg      *registry.Registry
	loader   loader.Loader
	log      zerolog.Logger
	localOps *wire.Socket
	hostOps  *wire.Socket
	watcher  *codewatch.Watcher

	stopOnce sync.Once
	stopCh   chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewApplication builds an ActorHostApplication from an already-loaded
// configuration and the instance id given on the command line. It does
// not bind any sockets or install signal handlers yet; call Run for that.
func NewApplication(cfg *config.Config, instanceID int) *ActorHostApplication {
	hostlog.Init(hostlog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := hostlog.Component("actorhost").With().
		Str("app", cfg.App.Name).
		Int("instance_id", instanceID).
		Logger()

	container := NewContainer()
	lifecycleManager := NewLifecycleManager()

	staticLoader := loader.NewStaticLoader()
	echo.Register(staticLoader, "global")
	ld := loader.NewMultiLoader(staticLoader, loader.NewPluginLoader(cfg.CodeDirectory))

	app := &ActorHostApplication{
		cfg:              cfg,
		instanceID:       instanceID,
		container:        container,
		lifecycleManager: lifecycleManager,
		reg:              registry.New(),
		loader:           ld,
		log:              log,
		stopCh:           make(chan struct{}),
	}

	container.RegisterInstance("registry", app.reg)
	container.RegisterInstance("config", cfg)

	return app
}

// DirectoryEndpoint implements actor.Host.
func (app *ActorHostApplication) DirectoryEndpoint() string {
	return app.cfg.DirectoryPort
}

// Logf implements actor.Host.
func (app *ActorHostApplication) Logf(uid, format string, args ...interface{}) {
	app.log.Info().Str("uid", uid).Msgf(format, args...)
}

// LocalOpsAddress is the deterministic local ops endpoint path derived
// from the instance id, the literal substitute for
// ipc:///tmp/py_beach_instance_<instance_id>.
func (app *ActorHostApplication) LocalOpsAddress() string {
	return fmt.Sprintf("/tmp/actorhost_instance_%d.sock", app.instanceID)
}

// Configure implements Application. The actor host's configuration is
// read once at construction time (see NewApplication); Configure exists
// to satisfy the interface and rejects being called a second time with
// a different value.
func (app *ActorHostApplication) Configure(cfg interface{}) error {
	hostCfg, ok := cfg.(*config.Config)
	if !ok {
		return fmt.Errorf("bootstrap: Configure expects *config.Config")
	}
	if app.cfg != nil && app.cfg != hostCfg {
		return fmt.Errorf("bootstrap: configuration is fixed once the application is constructed")
	}
	app.cfg = hostCfg
	return nil
}

// Run implements the host lifecycle from spec: bind the local ops
// socket, connect the host-ops socket, install signal handlers, start
// the dispatcher and supervisor, then block until the stop event fires.
func (app *ActorHostApplication) Run(ctx context.Context) error {
	app.mu.Lock()
	if app.running {
		app.mu.Unlock()
		return fmt.Errorf("application already running")
	}
	app.running = true
	app.mu.Unlock()

	var reg *registry.Registry
	if err := app.container.ResolveAs("registry", &reg); err != nil {
		return fmt.Errorf("resolving registry from container: %w", err)
	}
	var cfg *config.Config
	if err := app.container.ResolveAs("config", &cfg); err != nil {
		return fmt.Errorf("resolving config from container: %w", err)
	}

	localOps, err := wire.Bind("unix", app.LocalOpsAddress())
	if err != nil {
		return fmt.Errorf("binding local ops socket: %w", err)
	}
	app.localOps = localOps
	app.log.Info().Str("address", app.LocalOpsAddress()).Msg("listening for ops")

	app.hostOps = wire.NewClient("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.OpsPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		<-sigCh
		app.triggerStop()
	}()

	if cfg.IsCodeWatchEnabled() {
		if w, err := codewatch.New(cfg.CodeDirectory, app.log); err == nil {
			app.watcher = w
			if err := w.Start(); err != nil {
				app.log.Warn().Err(err).Msg("code directory watch failed to start")
			}
		} else {
			app.log.Warn().Err(err).Msg("code directory watch unavailable")
		}
	}

	dispatcher := ops.New(app.localOps, reg, app.loader, app, app.log, app.stopCh)
	dispatcher.SetAppInfo(map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"description": cfg.App.Description,
	})
	supervisorLoop := supervisor.New(reg, app.hostOps, app.log, app.stopCh)

	app.lifecycleManager.Register("ops-dispatcher", newRunnableService("ops-dispatcher", func(ctx context.Context) error {
		return dispatcher.Run(ctx)
	}))
	app.lifecycleManager.Register("supervisor", newRunnableService("supervisor", func(ctx context.Context) error {
		supervisorLoop.Run()
		return nil
	}), "ops-dispatcher")

	if err := app.lifecycleManager.Start(ctx); err != nil {
		return fmt.Errorf("starting services: %w", err)
	}

	app.log.Info().Msg("now open to actors")

	select {
	case <-app.stopCh:
	case <-ctx.Done():
		app.triggerStop()
	}

	app.log.Info().Msg("exiting, stopping all actors")
	return app.Shutdown(context.Background())
}

func (app *ActorHostApplication) triggerStop() {
	app.stopOnce.Do(func() { close(app.stopCh) })
}

// Shutdown implements the teardown half of the host lifecycle: stop
// every actor, join with a bounded wall-clock budget, force-kill
// stragglers, then stop the dispatcher/supervisor services.
func (app *ActorHostApplication) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	if !app.running {
		app.mu.Unlock()
		return nil
	}
	app.running = false
	app.mu.Unlock()

	app.triggerStop()
	app.reg.Close()

	// Unblock the dispatcher's Recv and the supervisor's in-flight
	// Request immediately: both would otherwise sit in a blocking
	// socket call until the next peer connection or tick, well past
	// when lifecycleManager.Stop below waits for them to exit.
	if app.localOps != nil {
		app.localOps.Close()
	}
	if app.hostOps != nil {
		app.hostOps.Close()
	}

	deadline := time.Now().Add(shutdownBudget)
	entries := app.reg.Snapshot()
	for _, e := range entries {
		if h, ok := e.Handle.(*handle.Handle); ok {
			h.Stop()
		}
	}
	for _, e := range entries {
		h, ok := e.Handle.(*handle.Handle)
		if !ok {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = 0
		}
		if !h.Join(remaining) {
			if err := h.Kill(remaining); err != nil {
				app.log.Error().Str("uid", e.UID).Err(err).Msg("actor did not exit within shutdown budget")
			}
		}
		app.reg.Remove(e.UID)
	}
	app.log.Info().Msg("all actors exiting, exiting")

	stopCtx, cancel := context.WithTimeout(ctx, shutdownBudget)
	defer cancel()
	if err := app.lifecycleManager.Stop(stopCtx); err != nil {
		app.log.Warn().Err(err).Msg("error stopping services")
	}

	if app.watcher != nil {
		app.watcher.Stop()
	}

	return nil
}

// Container implements Application.
func (app *ActorHostApplication) Container() Container { return app.container }

// LifecycleManager implements Application.
func (app *ActorHostApplication) LifecycleManager() LifecycleManager { return app.lifecycleManager }

// Registry exposes the actor registry for tests and diagnostics.
func (app *ActorHostApplication) Registry() *registry.Registry { return app.reg }

// runnableService adapts a blocking run function into a Service the
// LifecycleManager can Start/Stop. Stop just waits for the run function
// to notice the stop event closed and return; the actual signal comes
// from the shared stopCh passed into the dispatcher/supervisor.
type runnableService struct {
	name string
	run  func(ctx context.Context) error

	mu   sync.Mutex
	done chan struct{}
	err  error
}

func newRunnableService(name string, run func(ctx context.Context) error) *runnableService {
	return &runnableService{name: name, run: run}
}

func (s *runnableService) Name() string { return s.name }

func (s *runnableService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.done = make(chan struct{})
	s.mu.Unlock()
	go func() {
		defer close(s.done)
		s.err = s.run(context.Background())
	}()
	return nil
}

func (s *runnableService) Stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *runnableService) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return HealthStatus{State: HealthUnknown}, nil
	}
	select {
	case <-done:
		return HealthStatus{State: HealthStopped}, nil
	default:
		return HealthStatus{State: HealthHealthy}, nil
	}
}
