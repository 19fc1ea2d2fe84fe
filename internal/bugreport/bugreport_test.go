package bugreport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hooksd/hooksd/internal/defs"
)

func TestTail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"empty", "", 5, ""},
		{"fewer lines than n", "a\nb\n", 5, "a\nb\n"},
		{"exactly n", "a\nb\nc\n", 3, "a\nb\nc\n"},
		{"more than n", "a\nb\nc\nd\n", 2, "c\nd\n"},
		{"no trailing newline", "a\nb\nc", 2, "b\nc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Tail(tt.text, tt.n); got != tt.want {
				t.Errorf("Tail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateWithoutDaemonState(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	root := t.TempDir()

	report := Generate(root, "dispatch hangs on PreToolUse")

	for _, want := range []string{
		"# hooksd bug report",
		"dispatch hangs on PreToolUse",
		"Status: absent (defaults in effect)",
		"Status: not running",
		"No log file at",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestGenerateReportsInvalidConfig(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	root := t.TempDir()

	dir := filepath.Join(root, defs.ClaudeDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, defs.ConfigYAML), []byte("version: \"9.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report := Generate(root, "broken config")
	if !strings.Contains(report, "Status: invalid") {
		t.Error("report does not flag invalid config")
	}
	if !strings.Contains(report, "version_mismatch") {
		t.Error("report does not include the validation error")
	}
}
