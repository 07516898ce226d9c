// Package config provides error definitions for host configuration.
package config

import "errors"

var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrInvalidOpsPort      = errors.New("invalid ops_port")
	ErrInvalidCodeDir      = errors.New("invalid code_directory")
	ErrInvalidDirectoryURL = errors.New("invalid directory_port")
	ErrInvalidLogLevel     = errors.New("invalid log level")
)
