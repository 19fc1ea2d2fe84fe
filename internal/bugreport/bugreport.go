// Package bugreport assembles a diagnostic bundle for issue reports:
// tool version, platform, configuration health, daemon state, and the
// tail of the daemon log. The bundle is plain markdown so it can be
// pasted into an issue as-is.
package bugreport

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hooksd/hooksd/internal/config"
	"github.com/hooksd/hooksd/internal/daemon"
	"github.com/hooksd/hooksd/internal/defs"
	"github.com/hooksd/hooksd/internal/paths"
	"github.com/hooksd/hooksd/pkg/version"
)

// logTailLines is how much of the daemon log the bundle includes.
const logTailLines = 50

// Generate builds the bundle for the given project and user-provided
// description. It never fails on missing daemon state; absent pieces
// are reported as such.
func Generate(projectRoot, description string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# hooksd bug report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "## Description\n\n%s\n\n", strings.TrimSpace(description))

	fmt.Fprintf(&b, "## Environment\n\n")
	fmt.Fprintf(&b, "- version: %s\n", version.Version)
	fmt.Fprintf(&b, "- go: %s\n", runtime.Version())
	fmt.Fprintf(&b, "- platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	for _, env := range []string{defs.EnvInputValidation, defs.EnvValidationStrict, "XDG_RUNTIME_DIR"} {
		if v, ok := os.LookupEnv(env); ok {
			fmt.Fprintf(&b, "- %s=%s\n", env, v)
		}
	}
	b.WriteString("\n")

	writeConfigSection(&b, projectRoot)
	writeDaemonSection(&b, projectRoot)
	writeLogSection(&b, projectRoot)

	return b.String()
}

func writeConfigSection(b *strings.Builder, projectRoot string) {
	fmt.Fprintf(b, "## Configuration\n\n")
	fmt.Fprintf(b, "Path: `%s`\n\n", config.Path(projectRoot))

	_, err := config.LoadFile(config.Path(projectRoot))
	switch {
	case err == nil:
		b.WriteString("Status: valid\n\n")
	case errors.Is(err, config.ErrConfigNotFound):
		b.WriteString("Status: absent (defaults in effect)\n\n")
	default:
		fmt.Fprintf(b, "Status: invalid\n\n```\n%s\n```\n\n", err)
	}
}

func writeDaemonSection(b *strings.Builder, projectRoot string) {
	fmt.Fprintf(b, "## Daemon\n\n")
	pid, err := daemon.RunningPID(projectRoot)
	if err != nil {
		fmt.Fprintf(b, "Status: not running (%v)\n\n", err)
		return
	}
	fmt.Fprintf(b, "Status: running\nPID: %d\nSocket: `%s`\n\n",
		pid, daemon.ResolveSocketPath(projectRoot))
}

func writeLogSection(b *strings.Builder, projectRoot string) {
	fmt.Fprintf(b, "## Log tail\n\n")
	logPath, err := paths.LogPath(projectRoot)
	if err != nil {
		fmt.Fprintf(b, "Log path unavailable: %v\n", err)
		return
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		fmt.Fprintf(b, "No log file at `%s`\n", logPath)
		return
	}
	fmt.Fprintf(b, "```\n%s```\n", Tail(string(data), logTailLines))
}

// Tail returns the last n lines of text, newline-terminated.
func Tail(text string, n int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}
