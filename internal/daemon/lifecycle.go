// Package daemon implements the per-project hook daemon: a Unix socket
// server that dispatches forwarded Claude Code hook events through the
// configured handler chain, shuts itself down when idle, and recovers
// from stale state left by a crashed predecessor.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hooksd/hooksd/internal/paths"
	"github.com/hooksd/hooksd/internal/protocol"
)

// ErrAlreadyRunning reports a live daemon already owning this project's
// socket.
var ErrAlreadyRunning = errors.New("daemon: already running")

// ErrNotRunning reports that no daemon is running for the project.
var ErrNotRunning = errors.New("daemon: not running")

// WritePIDFile records the current process id, mode 0600.
func WritePIDFile(path string) error {
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write pid file %s: %w", path, err)
	}
	return nil
}

// ReadPIDFile returns the recorded pid. A missing file returns
// ErrNotRunning.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("read pid file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pid file %s is corrupt: %w", path, err)
	}
	return pid, nil
}

// ProcessAlive reports whether a process with the given pid exists.
// Signal 0 probes without delivering anything; EPERM still means the
// process is there.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// RunningPID returns the pid of the live daemon for the project, or
// ErrNotRunning when there is none (including when the pid file is
// stale).
func RunningPID(projectRoot string) (int, error) {
	pidPath, err := paths.PIDPath(projectRoot)
	if err != nil {
		return 0, err
	}
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if !ProcessAlive(pid) {
		return 0, ErrNotRunning
	}
	return pid, nil
}

// CleanupStale removes socket, pid, and discovery files left behind by
// a daemon that died without cleaning up. A predecessor counts as
// running only when its recorded pid is alive AND its socket answers a
// liveness check; a recycled pid owned by an unrelated process must not
// block startup.
func CleanupStale(projectRoot string) error {
	socketPath, err := paths.SocketPath(projectRoot)
	if err != nil {
		return err
	}
	pidPath, err := paths.PIDPath(projectRoot)
	if err != nil {
		return err
	}

	pid, err := ReadPIDFile(pidPath)
	switch {
	case errors.Is(err, ErrNotRunning):
		// No pid file; a socket without one is always stale.
	case err != nil:
		// Corrupt pid file counts as stale.
		slog.Warn("removing corrupt pid file", "path", pidPath, "error", err)
	default:
		if ProcessAlive(pid) {
			if pingSocket(ResolveSocketPath(projectRoot)) {
				return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
			}
			slog.Warn("pid is alive but socket does not answer, treating state as stale", "pid", pid)
		} else {
			slog.Info("recovering from stale daemon state", "stale_pid", pid)
		}
	}

	for _, p := range []string{
		socketPath,
		pidPath,
		paths.DiscoveryPath(projectRoot),
	} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale %s: %w", p, err)
		}
	}
	return nil
}

// pingSocket reports whether a daemon answers a liveness check on the
// given socket.
func pingSocket(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Second))

	req := &protocol.Request{Event: protocol.EventPing, RequestID: "startup-check"}
	if err := protocol.WriteRequest(conn, req); err != nil {
		return false
	}
	resp, err := protocol.ReadResponse(conn)
	return err == nil && resp.Result != nil
}

// PublishDiscovery writes the socket-path discovery file when the
// chosen socket differs from the default-computed one, and removes any
// leftover file when it does not.
func PublishDiscovery(projectRoot, socketPath string) error {
	discovery := paths.DiscoveryPath(projectRoot)
	if socketPath == paths.DefaultSocketPath(projectRoot) {
		if err := os.Remove(discovery); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove discovery file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(discovery), 0o755); err != nil {
		return fmt.Errorf("create discovery dir: %w", err)
	}
	if err := os.WriteFile(discovery, []byte(socketPath+"\n"), 0o644); err != nil {
		return fmt.Errorf("write discovery file: %w", err)
	}
	return nil
}

// ResolveSocketPath returns the socket path a client should dial:
// the discovery file's content when present, else the default.
func ResolveSocketPath(projectRoot string) string {
	if data, err := os.ReadFile(paths.DiscoveryPath(projectRoot)); err == nil {
		if p := strings.TrimSpace(string(data)); p != "" {
			return p
		}
	}
	return paths.DefaultSocketPath(projectRoot)
}

// SignalStop asks the running daemon to shut down gracefully.
func SignalStop(projectRoot string) error {
	pid, err := RunningPID(projectRoot)
	if err != nil {
		return err
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}
