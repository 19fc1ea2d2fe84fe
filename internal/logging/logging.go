// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level maps a config log level to its slog equivalent. Unknown values
// fall back to info; the config layer already rejected them.
func Level(name string) slog.Level {
	switch name {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup opens the daemon log file for append and installs a text
// handler on it as the default logger. The returned closer releases the
// file on shutdown.
func Setup(path, level string) (io.Closer, error) {
	return setupFile(path, level, false)
}

// SetupTee is Setup plus a copy of every record to stderr. Foreground
// runs use it so the operator sees what lands in the file; a detached
// daemon's stderr is /dev/null, so the copy costs nothing there.
func SetupTee(path, level string) (io.Closer, error) {
	return setupFile(path, level, true)
}

func setupFile(path, level string, tee bool) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	var w io.Writer = f
	if tee {
		w = io.MultiWriter(f, os.Stderr)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(level)})
	slog.SetDefault(slog.New(handler))
	return f, nil
}

// SetupStderr installs a stderr text handler, used when running in the
// foreground or before the log file path is known.
func SetupStderr(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: Level(level)})
	slog.SetDefault(slog.New(handler))
}

// Discard silences the default logger. CLI paths that print their own
// output use this so handler logs do not leak to the terminal.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
