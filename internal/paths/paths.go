// Package paths derives the per-project filesystem identity of the hooks
// daemon: the Unix socket path, the PID file path, and the runtime
// directory that holds both. The derivation is deterministic so that
// forwarders and the daemon always agree on where to meet.
package paths

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hooksd/hooksd/internal/defs"
)

// socketPathMax is the portable upper bound for a Unix socket path.
// Linux allows 108 bytes for sun_path, Darwin 104; we use the smaller
// limit so derived paths work on both.
const socketPathMax = 104

const (
	socketSuffix = ".sock"
	pidSuffix    = ".pid"
	logSuffix    = ".log"
	filePrefix   = "claude-hooks-"
)

// ErrPathTooLong indicates that every candidate runtime directory yields
// a socket path over the platform limit.
var ErrPathTooLong = errors.New("paths: socket path exceeds platform limit in every runtime directory")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Stem returns the per-project file stem "claude-hooks-<basename>-<hash8>".
// The basename is the sanitized last segment of the project root and the
// hash is the first 8 hex characters of the MD5 of the absolute path, so
// distinct projects never collide and the same project is always stable.
func Stem(projectRoot string) string {
	abs := canonical(projectRoot)
	base := sanitizeBasename(filepath.Base(abs))
	sum := md5.Sum([]byte(abs))
	return filePrefix + base + "-" + hex.EncodeToString(sum[:])[:8]
}

// RuntimeDirCandidates returns the runtime directory candidates in
// priority order: the user runtime directory if the platform provides
// one, then a per-user temp directory, then the system temp directory.
func RuntimeDirCandidates() []string {
	var candidates []string
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		candidates = append(candidates, filepath.Clean(xdg))
	}
	tmp := os.TempDir()
	candidates = append(candidates, filepath.Join(tmp, fmt.Sprintf("claude-hooks-%d", os.Getuid())))
	candidates = append(candidates, tmp)
	return candidates
}

// RuntimeDir returns the first runtime directory candidate whose derived
// socket path for the given project stays within the platform limit.
func RuntimeDir(projectRoot string) (string, error) {
	stem := Stem(projectRoot)
	for _, dir := range RuntimeDirCandidates() {
		if len(filepath.Join(dir, stem+socketSuffix)) <= socketPathMax {
			return dir, nil
		}
	}
	return "", ErrPathTooLong
}

// EnsureRuntimeDir resolves the runtime directory and creates it with
// owner-only permissions when it does not exist yet.
func EnsureRuntimeDir(projectRoot string) (string, error) {
	dir, err := RuntimeDir(projectRoot)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create runtime directory: %w", err)
	}
	return dir, nil
}

// SocketPath returns the Unix socket path for the project.
func SocketPath(projectRoot string) (string, error) {
	dir, err := RuntimeDir(projectRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Stem(projectRoot)+socketSuffix), nil
}

// DefaultSocketPath returns the socket path computed from the first
// runtime directory candidate, ignoring the length limit. When the
// actual socket path differs from this one the daemon publishes a
// discovery file so forwarders can still find it.
func DefaultSocketPath(projectRoot string) string {
	return filepath.Join(RuntimeDirCandidates()[0], Stem(projectRoot)+socketSuffix)
}

// PIDPath returns the PID file path for the project.
func PIDPath(projectRoot string) (string, error) {
	dir, err := RuntimeDir(projectRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Stem(projectRoot)+pidSuffix), nil
}

// LogPath returns the daemon log file path for the project.
func LogPath(projectRoot string) (string, error) {
	dir, err := RuntimeDir(projectRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Stem(projectRoot)+logSuffix), nil
}

// DiscoveryPath returns the well-known location of the socket discovery
// file under the project root. The file exists only when the chosen
// socket path differs from DefaultSocketPath.
func DiscoveryPath(projectRoot string) string {
	return filepath.Join(canonical(projectRoot), defs.ClaudeDir, defs.DiscoveryFile)
}

// canonical returns the cleaned absolute form of the project root.
func canonical(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return filepath.Clean(projectRoot)
	}
	return abs
}

// sanitizeBasename replaces characters that are unsafe in a socket file
// name and truncates long basenames so the hash still fits.
func sanitizeBasename(base string) string {
	safe := unsafeChars.ReplaceAllString(base, "-")
	safe = strings.Trim(safe, "-")
	if safe == "" {
		safe = "project"
	}
	if len(safe) > 32 {
		safe = safe[:32]
	}
	return safe
}
