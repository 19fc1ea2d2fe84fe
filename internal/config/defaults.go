package config

import (
	"github.com/hooksd/hooksd/internal/hook"
)

// Default daemon settings.
const (
	// DefaultVersion is the config schema version this build writes and
	// accepts.
	DefaultVersion = "1.0"

	// DefaultIdleTimeoutSeconds shuts the daemon down after five minutes
	// without requests.
	DefaultIdleTimeoutSeconds = 300

	// DefaultRequestTimeoutSeconds bounds one request's handler chain.
	DefaultRequestTimeoutSeconds = 60

	// DefaultMaxRequestBytes caps a single framed request at 1 MiB.
	DefaultMaxRequestBytes = 1 << 20

	// DefaultLogLevel is the daemon log level when unset.
	DefaultLogLevel = "INFO"
)

// PriorityMin and PriorityMax bound handler priorities.
const (
	PriorityMin = 5
	PriorityMax = 60
)

// NewDefaultConfig returns a Config with every daemon setting at its
// default and the standard safety handlers enabled.
func NewDefaultConfig() *Config {
	return &Config{
		Version: DefaultVersion,
		Daemon: DaemonConfig{
			IdleTimeoutSeconds:    DefaultIdleTimeoutSeconds,
			RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
			MaxRequestBytes:       DefaultMaxRequestBytes,
			LogLevel:              DefaultLogLevel,
			InputValidation: ValidationConfig{
				Enabled:             true,
				StrictMode:          false,
				LogValidationErrors: true,
			},
		},
		Handlers: map[hook.EventType]map[string]HandlerConfig{
			hook.EventPreToolUse: {
				"destructive_git": {Enabled: true, Priority: 10},
				"secret_files":    {Enabled: true, Priority: 15},
			},
			hook.EventSessionStart: {
				"session_log": {Enabled: true, Priority: 20},
			},
		},
	}
}

// ValidLogLevels are the accepted daemon.log_level values.
var ValidLogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR"}
