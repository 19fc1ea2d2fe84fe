package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hooksd/hooksd/internal/paths"
)

// isolateRuntime points the runtime directory at a fresh temp dir so
// tests never touch real daemon state.
func isolateRuntime(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	if err := WritePIDFile(path); err != nil {
		t.Fatalf("WritePIDFile() error = %v", err)
	}
	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestReadPIDFileMissing(t *testing.T) {
	_, err := ReadPIDFile(filepath.Join(t.TempDir(), "nope.pid"))
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("error = %v, want ErrNotRunning", err)
	}
}

func TestReadPIDFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	if err := os.WriteFile(path, []byte("not a pid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPIDFile(path); err == nil || errors.Is(err, ErrNotRunning) {
		t.Errorf("error = %v, want corrupt-file error", err)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Error("ProcessAlive(self) = false")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Error("ProcessAlive accepted non-positive pid")
	}
}

func TestCleanupStaleRemovesDeadState(t *testing.T) {
	isolateRuntime(t)
	root := t.TempDir()

	pidPath, err := paths.PIDPath(root)
	if err != nil {
		t.Fatal(err)
	}
	socketPath, err := paths.SocketPath(root)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a crashed daemon: pid file with a dead pid plus a
	// leftover socket file.
	if err := os.WriteFile(pidPath, []byte("999999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := CleanupStale(root); err != nil {
		t.Fatalf("CleanupStale() error = %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("stale pid file not removed")
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("stale socket file not removed")
	}
}

func TestCleanupStaleRecycledPID(t *testing.T) {
	isolateRuntime(t)
	root := t.TempDir()

	// The recorded pid is alive (it is this test process) but no daemon
	// answers on the socket: an unrelated process recycled the pid. The
	// state is stale and must not block startup.
	pidPath, err := paths.PIDPath(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := WritePIDFile(pidPath); err != nil {
		t.Fatal(err)
	}

	if err := CleanupStale(root); err != nil {
		t.Fatalf("CleanupStale() error = %v, want stale recovery for live pid with dead socket", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("recycled pid file not removed")
	}
}

func TestRunningPIDStaleFile(t *testing.T) {
	isolateRuntime(t)
	root := t.TempDir()

	pidPath, err := paths.PIDPath(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pidPath, []byte("999999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := RunningPID(root); !errors.Is(err, ErrNotRunning) {
		t.Errorf("error = %v, want ErrNotRunning for dead pid", err)
	}
}

func TestPublishDiscovery(t *testing.T) {
	isolateRuntime(t)
	root := t.TempDir()

	custom := "/tmp/some-other.sock"
	if err := PublishDiscovery(root, custom); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}
	if got := ResolveSocketPath(root); got != custom {
		t.Errorf("ResolveSocketPath() = %q, want %q", got, custom)
	}

	// Publishing the default path removes the discovery file again.
	if err := PublishDiscovery(root, paths.DefaultSocketPath(root)); err != nil {
		t.Fatalf("PublishDiscovery(default) error = %v", err)
	}
	if _, err := os.Stat(paths.DiscoveryPath(root)); !os.IsNotExist(err) {
		t.Error("discovery file not removed for default socket path")
	}
	if got := ResolveSocketPath(root); got != paths.DefaultSocketPath(root) {
		t.Errorf("ResolveSocketPath() = %q, want default", got)
	}
}
