package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hooksd/hooksd/internal/defs"
)

// Path returns the configuration file location for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, defs.ClaudeDir, defs.ConfigYAML)
}

// Load reads the project's configuration file, validates it, and applies
// environment overrides. A missing file yields the default config rather
// than an error; a present but invalid file yields *ValidationErrors.
func Load(projectRoot string) (*Config, error) {
	cfg, err := LoadFile(Path(projectRoot))
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		cfg = NewDefaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFile reads and validates one configuration file. Unlike Load it
// does not apply environment overrides and reports a missing file, which
// is what validate-config wants.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (%w)", ErrConfigNotFound, path, err)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// applyEnvOverrides lets the environment flip validation switches
// without editing the file. Unparseable values are ignored.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv(defs.EnvInputValidation); ok {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Daemon.InputValidation.Enabled = on
		}
	}
	if v, ok := os.LookupEnv(defs.EnvValidationStrict); ok {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Daemon.InputValidation.StrictMode = on
		}
	}
}
