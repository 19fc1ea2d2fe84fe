package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hooksd/hooksd/internal/defs"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, defs.ClaudeDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, defs.ConfigYAML), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.IdleTimeoutSeconds != DefaultIdleTimeoutSeconds {
		t.Errorf("IdleTimeoutSeconds = %d, want default", cfg.Daemon.IdleTimeoutSeconds)
	}
}

func TestLoadFileReportsMissing(t *testing.T) {
	root := t.TempDir()

	_, err := LoadFile(Path(root))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadValidFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "daemon:\n  idle_timeout_seconds: 42\n")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.IdleTimeoutSeconds != 42 {
		t.Errorf("IdleTimeoutSeconds = %d, want 42", cfg.Daemon.IdleTimeoutSeconds)
	}
}

func TestLoadInvalidFileFails(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: \"2.0\"\n")

	_, err := Load(root)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "daemon:\n  input_validation:\n    enabled: true\n    strict_mode: false\n")

	t.Setenv(defs.EnvInputValidation, "false")
	t.Setenv(defs.EnvValidationStrict, "true")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.InputValidation.Enabled {
		t.Error("env override for enabled not applied")
	}
	if !cfg.Daemon.InputValidation.StrictMode {
		t.Error("env override for strict_mode not applied")
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv(defs.EnvInputValidation, "maybe")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Daemon.InputValidation.Enabled {
		t.Error("malformed env value must leave the default in place")
	}
}
