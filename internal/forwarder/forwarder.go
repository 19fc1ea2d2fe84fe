// Package forwarder implements the thin client that Claude Code invokes
// for each hook event. It reads the hook payload from stdin, relays it
// to the project daemon (starting one when absent), and prints the
// translated hook output to stdout. It fails open: whatever goes wrong,
// the assistant gets a usable answer and the process exits zero.
package forwarder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hooksd/hooksd/internal/daemon"
	"github.com/hooksd/hooksd/internal/hook"
	"github.com/hooksd/hooksd/internal/protocol"
	"github.com/hooksd/hooksd/internal/resilience"
)

const (
	// dialTimeout bounds one connection attempt to a daemon that should
	// already be up.
	dialTimeout = 2 * time.Second

	// startupWait bounds the total wait for a freshly spawned daemon.
	startupWait = 10 * time.Second

	// responseTimeout bounds the wait for the daemon's answer; slightly
	// above the daemon's own per-request timeout.
	responseTimeout = 65 * time.Second

	// maxInputBytes bounds the stdin payload.
	maxInputBytes = 1 << 20
)

// Forwarder relays one hook event to the project daemon.
type Forwarder struct {
	projectRoot string

	// startDaemon spawns a detached daemon process. Replaceable in
	// tests.
	startDaemon func() error
}

// New builds a forwarder for the project.
func New(projectRoot string) *Forwarder {
	f := &Forwarder{projectRoot: projectRoot}
	f.startDaemon = f.spawnDaemon
	return f
}

// Run reads the hook payload from in, dispatches through the daemon,
// and writes the hook output to out. It never returns an error for
// daemon or protocol failures; those fall open to an empty output.
func (f *Forwarder) Run(event hook.EventType, in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(io.LimitReader(in, maxInputBytes))
	if err != nil {
		return failOpen(out)
	}

	hookInput := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &hookInput); err != nil {
			slog.Debug("stdin payload is not JSON, forwarding empty input", "error", err)
			hookInput = map[string]any{}
		}
	}

	resp, err := f.dispatch(event, hookInput)
	if err != nil {
		slog.Debug("dispatch failed, falling open", "error", err)
		return failOpen(out)
	}
	return writeHookOutput(out, event, resp)
}

// dispatch sends one framed request, starting the daemon when needed.
func (f *Forwarder) dispatch(event hook.EventType, hookInput map[string]any) (*protocol.Response, error) {
	conn, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(responseTimeout))
	req := &protocol.Request{
		Event:     string(event),
		HookInput: hookInput,
		RequestID: uuid.NewString(),
	}
	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, err
	}
	return protocol.ReadResponse(conn)
}

// connect dials the daemon socket, lazily starting a daemon when no
// live one answers.
func (f *Forwarder) connect() (net.Conn, error) {
	socketPath := daemon.ResolveSocketPath(f.projectRoot)
	if conn, err := net.DialTimeout("unix", socketPath, dialTimeout); err == nil {
		return conn, nil
	}

	if err := f.startDaemon(); err != nil {
		return nil, fmt.Errorf("start daemon: %w", err)
	}

	// The daemon may pick a different socket path than the default, so
	// re-resolve on every attempt.
	ctx, cancel := context.WithTimeout(context.Background(), startupWait)
	defer cancel()
	var conn net.Conn
	err := resilience.Retry(ctx, resilience.RetryPolicy{
		MaxRetries: 20,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		UseJitter:  true,
	}, func() error {
		socketPath := daemon.ResolveSocketPath(f.projectRoot)
		c, err := net.DialTimeout("unix", socketPath, dialTimeout)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daemon did not come up within %s: %w", startupWait, err)
	}
	return conn, nil
}

// spawnDaemon starts a detached daemon via our own binary. "start"
// treats an already-running daemon as success here because a concurrent
// forwarder may have won the race.
func (f *Forwarder) spawnDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe, "start")
	cmd.Dir = f.projectRoot
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	// Detach; the daemon outlives this forwarder.
	return cmd.Process.Release()
}

// failOpen writes the neutral hook output. Claude Code treats an empty
// object as "no opinion".
func failOpen(out io.Writer) error {
	_, err := io.WriteString(out, "{}\n")
	return err
}

// writeHookOutput translates a daemon response into the JSON shape
// Claude Code expects on the forwarder's stdout.
func writeHookOutput(out io.Writer, event hook.EventType, resp *protocol.Response) error {
	if resp == nil || resp.Result == nil {
		// Error responses (strict validation, timeouts without result,
		// internal errors) fall open.
		return failOpen(out)
	}

	output := translate(event, resp.Result)
	data, err := json.Marshal(output)
	if err != nil {
		return failOpen(out)
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return err
	}
	return nil
}

// translate maps one dispatch result onto the per-event hook output
// schema. Permission-style events carry a permissionDecision; the rest
// use the generic block/continue shape.
func translate(event hook.EventType, result *protocol.Result) map[string]any {
	reason := ""
	if result.Reason != nil {
		reason = *result.Reason
	}
	advisory := strings.Join(result.Context, "\n")

	switch event {
	case hook.EventPreToolUse, hook.EventPermissionRequest:
		hso := map[string]any{
			"hookEventName":      string(event),
			"permissionDecision": result.Decision,
		}
		if reason != "" {
			hso["permissionDecisionReason"] = reason
		}
		if advisory != "" {
			hso["additionalContext"] = advisory
		}
		return map[string]any{"hookSpecificOutput": hso}

	case hook.EventUserPromptSubmit:
		output := map[string]any{}
		if result.Decision == "deny" || result.Decision == "ask" {
			output["decision"] = "block"
			if reason != "" {
				output["reason"] = reason
			}
		}
		if advisory != "" {
			output["hookSpecificOutput"] = map[string]any{
				"hookEventName":     string(event),
				"additionalContext": advisory,
			}
		}
		return output

	default:
		output := map[string]any{}
		if result.Decision == "deny" || result.Decision == "ask" {
			output["decision"] = "block"
			if reason != "" {
				output["reason"] = reason
			}
		}
		if advisory != "" {
			output["systemMessage"] = advisory
		}
		return output
	}
}
