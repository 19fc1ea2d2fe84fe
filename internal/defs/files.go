// Package defs holds file and directory names shared across the project.
package defs

// Claude Code project layout.
const (
	// ClaudeDir is the per-project Claude Code directory.
	ClaudeDir = ".claude"

	// ConfigYAML is the daemon configuration file under ClaudeDir.
	ConfigYAML = "hooks-daemon.yaml"

	// DiscoveryFile publishes the actual socket path when it differs
	// from the default-computed one.
	DiscoveryFile = "daemon.socket-path"
)

// Environment variables recognized at process start.
const (
	// EnvInputValidation overrides daemon.input_validation.enabled.
	EnvInputValidation = "HOOKS_DAEMON_INPUT_VALIDATION"

	// EnvValidationStrict overrides daemon.input_validation.strict_mode.
	EnvValidationStrict = "HOOKS_DAEMON_VALIDATION_STRICT"
)
