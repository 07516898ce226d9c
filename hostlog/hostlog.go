// Package hostlog provides the structured logging sink and monotonic clock
// used throughout the actor host. It wraps zerolog the way the rest of the
// corpus does: a process-wide root logger configured once at startup,
// component-scoped children handed out to every other package.
package hostlog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the root logger is built.
type Config struct {
	// Level is one of trace, debug, info, warn, error, fatal. Empty means info.
	Level string

	// Format selects "console" (human readable) or "json" (default).
	Format string

	// Output overrides the destination writer. Defaults to os.Stdout.
	Output io.Writer
}

var (
	once sync.Once
	root zerolog.Logger
)

// Init configures the process-wide root logger. Safe to call once; later
// calls are no-ops so tests and subcommands can call it defensively.
func Init(cfg Config) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stdout
		if cfg.Output != nil {
			w = cfg.Output
		}
		if cfg.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		}

		level := parseLevel(cfg.Level)
		root = zerolog.New(w).Level(level).With().Timestamp().Logger()
	})
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "info", "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// Root returns the process-wide logger, initializing it with defaults if
// Init was never called.
func Root() zerolog.Logger {
	Init(Config{})
	return root
}

// Component returns a child logger tagged with the given component name,
// the unit every package in this module logs through.
func Component(name string) zerolog.Logger {
	return Root().With().Str("component", name).Logger()
}

// Clock is a source of time behind an interface, so timing logic can be
// given a fake clock in tests. The supervisor and handle packages do not
// use it; they call the time package directly.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

// SystemClock is the Clock backed by the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                   { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (SystemClock) Sleep(d time.Duration)            { time.Sleep(d) }
