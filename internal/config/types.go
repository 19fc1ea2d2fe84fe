package config

import (
	"github.com/hooksd/hooksd/internal/hook"
)

// Config is the fully parsed and validated hooks-daemon configuration.
type Config struct {
	// Version is the config schema version, e.g. "1.0". Only the major
	// version is checked; any "1.x" loads.
	Version string

	// Daemon holds process-level settings.
	Daemon DaemonConfig

	// Handlers maps event type -> handler name -> handler settings for
	// the built-in handler set.
	Handlers map[hook.EventType]map[string]HandlerConfig

	// Plugins holds project-level handler groups. Each plugin's handlers
	// participate in the same priority space as the built-in ones.
	Plugins []PluginConfig
}

// DaemonConfig holds process-level daemon settings.
type DaemonConfig struct {
	// IdleTimeoutSeconds is how long the daemon lingers with no requests
	// before shutting itself down.
	IdleTimeoutSeconds int

	// RequestTimeoutSeconds bounds one request's handler chain.
	RequestTimeoutSeconds int

	// MaxRequestBytes bounds a single framed request.
	MaxRequestBytes int

	// LogLevel is one of DEBUG, INFO, WARNING, ERROR.
	LogLevel string

	// InputValidation controls schema checking of incoming events.
	InputValidation ValidationConfig
}

// ValidationConfig controls the input validator.
type ValidationConfig struct {
	// Enabled turns schema validation on.
	Enabled bool

	// StrictMode rejects invalid requests instead of logging and
	// proceeding.
	StrictMode bool

	// LogValidationErrors logs failures even in fail-open mode.
	LogValidationErrors bool
}

// HandlerConfig holds one handler's registration settings plus its
// passthrough options.
type HandlerConfig struct {
	// Enabled includes the handler in the registry.
	Enabled bool

	// Priority orders the handler within its event type; smaller runs
	// earlier. Valid range is [5, 60].
	Priority int

	// Terminal, when set, overrides the handler's default terminal flag.
	// A terminal handler's deny stops the chain.
	Terminal *bool

	// Options carries every handler-specific key verbatim. The config
	// layer never interprets these; the handler constructor does.
	Options map[string]any
}

// PluginConfig groups handlers contributed by a project-level plugin.
type PluginConfig struct {
	// Name identifies the plugin in logs and the playbook.
	Name string

	// Handlers follows the same event-type -> name -> settings shape as
	// the built-in handler section.
	Handlers map[hook.EventType]map[string]HandlerConfig
}

// EnabledHandlers returns, per event type, the enabled handler entries
// from the base section and every plugin merged into one map keyed by
// handler name. Plugin entries never replace base entries; a name
// collision was already rejected at validation time.
func (c *Config) EnabledHandlers() map[hook.EventType]map[string]HandlerConfig {
	out := make(map[hook.EventType]map[string]HandlerConfig)
	collect := func(src map[hook.EventType]map[string]HandlerConfig) {
		for evt, byName := range src {
			for name, hc := range byName {
				if !hc.Enabled {
					continue
				}
				if out[evt] == nil {
					out[evt] = make(map[string]HandlerConfig)
				}
				out[evt][name] = hc
			}
		}
	}
	collect(c.Handlers)
	for _, p := range c.Plugins {
		collect(p.Handlers)
	}
	return out
}
