// Package internal holds process-level configuration shared by commands.
package internal

import (
	"strings"

	"github.com/pkg/errors"
)

// Configuration values bound to CLI flags, defaulting from environment
// variables.
var (
	Env      string
	LogLevel string

	Port    uint16
	RootDir string

	TimeoutMS  uint
	MaxRetries uint
)

// ValidateEnv checks that the process-level configuration is usable.
func ValidateEnv() error {
	switch Env {
	case "dev", "prod":
	default:
		return errors.Errorf("unsupported env %q", Env)
	}
	switch strings.ToLower(LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unsupported log level %q", LogLevel)
	}
	if Port == 0 {
		return errors.New("port must be non-zero")
	}
	if RootDir == "" {
		return errors.New("root directory must be set")
	}
	if TimeoutMS == 0 {
		return errors.New("timeout must be non-zero")
	}
	return nil
}
