// Package config provides the host's configuration types and loading logic.
//
// The host reads its configuration file exactly once at startup (see
// Loader.Load); nothing in this package supports hot reload. Unknown keys
// present in a config file are ignored, which gopkg.in/yaml.v3 and
// encoding/json already do when unmarshalling into a typed struct.
package config

import (
	"fmt"
)

// Config is the full set of keys the actor host understands.
type Config struct {
	// CodeDirectory is resolved relative to the config file's own
	// directory. Defaults to "./".
	CodeDirectory string `yaml:"code_directory" json:"code_directory"`

	// OpsPort is the TCP port the host dials to reach HostManager.
	// Defaults to 4999.
	OpsPort int `yaml:"ops_port" json:"ops_port"`

	// DirectoryPort is an opaque endpoint string handed to every actor
	// on construction. The host never dials it itself.
	DirectoryPort string `yaml:"directory_port" json:"directory_port"`

	App       AppConfig       `yaml:"app" json:"app"`
	Log       LogConfig       `yaml:"log" json:"log"`
	CodeWatch CodeWatchConfig `yaml:"code_watch" json:"code_watch"`
}

// AppConfig carries identifying information used only in log fields and
// diagnostic ops data, never in wire-protocol decisions.
type AppConfig struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// LogConfig configures the hostlog sink.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// CodeWatchConfig toggles the diagnostic code_directory watcher. Enabled
// is a pointer so an absent "code_watch" section can be told apart from
// an explicit "enabled: false" and still default to on.
type CodeWatchConfig struct {
	Enabled *bool `yaml:"enabled" json:"enabled"`
}

// enabledOr returns the configured value, or def if none was set.
func (c CodeWatchConfig) enabledOr(def bool) bool {
	if c.Enabled == nil {
		return def
	}
	return *c.Enabled
}

// DefaultConfig returns the configuration used before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		CodeDirectory: "./",
		OpsPort:       4999,
		DirectoryPort: "ipc:///tmp/actorhost_directory_port",
		App: AppConfig{
			Name: "actorhost",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CodeWatch: CodeWatchConfig{
			Enabled: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// IsCodeWatchEnabled reports whether the diagnostic code directory
// watcher should run, defaulting to true when unset.
func (c *Config) IsCodeWatchEnabled() bool {
	return c.CodeWatch.enabledOr(true)
}

// Validate checks the loaded configuration for values the host cannot
// safely start with. It does not touch the filesystem, and neither does
// Loader.Load: whether CodeDirectory exists is not checked at startup.
func (c *Config) Validate() error {
	if c.OpsPort <= 0 || c.OpsPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidOpsPort, c.OpsPort)
	}
	if c.CodeDirectory == "" {
		return ErrInvalidCodeDir
	}
	if c.DirectoryPort == "" {
		return ErrInvalidDirectoryURL
	}
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.Log.Level)
	}
	return nil
}
