package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the on-disk configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Loader reads the host's config file and applies environment overrides.
type Loader struct {
	envPrefix     string
	defaultConfig *Config
}

// NewLoader creates a loader with the host's default environment prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:     "ACTORHOST",
		defaultConfig: DefaultConfig(),
	}
}

// SetEnvPrefix overrides the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load reads the config file at path, resolves code_directory relative to
// the file's own directory, applies environment overrides, and validates
// the result. It never reads path again afterward.
func (l *Loader) Load(path string) (*Config, error) {
	format, err := formatFromExt(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigFileNotFound, err)
	}

	cfg, err := l.parse(data, format)
	if err != nil {
		return nil, err
	}
	cfg = l.merge(l.defaultOrBuiltin(), cfg)

	absConfigDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config file directory: %w", err)
	}
	if !filepath.IsAbs(cfg.CodeDirectory) {
		cfg.CodeDirectory = filepath.Join(absConfigDir, cfg.CodeDirectory)
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (l *Loader) defaultOrBuiltin() *Config {
	if l.defaultConfig != nil {
		return l.defaultConfig
	}
	return DefaultConfig()
}

func formatFromExt(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

func (l *Loader) parse(data []byte, format Format) (*Config, error) {
	cfg := &Config{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
	return cfg, nil
}

// merge fills zero-valued fields of user with defaultConfig's values.
func (l *Loader) merge(defaultConfig, user *Config) *Config {
	merged := *defaultConfig
	if user.CodeDirectory != "" {
		merged.CodeDirectory = user.CodeDirectory
	}
	if user.OpsPort != 0 {
		merged.OpsPort = user.OpsPort
	}
	if user.DirectoryPort != "" {
		merged.DirectoryPort = user.DirectoryPort
	}
	if user.App.Name != "" {
		merged.App.Name = user.App.Name
	}
	if user.App.Version != "" {
		merged.App.Version = user.App.Version
	}
	if user.App.Description != "" {
		merged.App.Description = user.App.Description
	}
	if user.Log.Level != "" {
		merged.Log.Level = user.Log.Level
	}
	if user.Log.Format != "" {
		merged.Log.Format = user.Log.Format
	}
	merged.CodeWatch = user.CodeWatch
	return &merged
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := os.Getenv(l.envPrefix + "_OPS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.OpsPort = port
		}
	}
	if v := os.Getenv(l.envPrefix + "_DIRECTORY_PORT"); v != "" {
		cfg.DirectoryPort = v
	}
	if v := os.Getenv(l.envPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(l.envPrefix + "_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
