package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/hooksd/hooksd/internal/config"
	"github.com/hooksd/hooksd/internal/hook"
	"github.com/hooksd/hooksd/internal/hook/validator"
	"github.com/hooksd/hooksd/internal/paths"
	"github.com/hooksd/hooksd/internal/protocol"
)

type denyBash struct{}

func (denyBash) Name() string              { return "deny_bash" }
func (denyBash) EventType() hook.EventType { return hook.EventPreToolUse }
func (denyBash) Matches(ev *hook.Event) bool {
	name, _ := ev.HookInput["tool_name"].(string)
	return name == "Bash"
}
func (denyBash) Handle(context.Context, *hook.Event, hook.SessionState) hook.Result {
	return hook.Deny("bash is blocked here")
}

// stallUntilCancel blocks inside Handle until the request context ends,
// simulating a hung handler.
type stallUntilCancel struct{}

func (stallUntilCancel) Name() string              { return "stall" }
func (stallUntilCancel) EventType() hook.EventType { return hook.EventPostToolUse }
func (stallUntilCancel) Matches(*hook.Event) bool  { return true }
func (stallUntilCancel) Handle(ctx context.Context, _ *hook.Event, _ hook.SessionState) hook.Result {
	<-ctx.Done()
	return hook.Allow()
}

func testServer(t *testing.T, idleSeconds int) (*Server, string) {
	t.Helper()
	isolateRuntime(t)
	root := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Daemon.IdleTimeoutSeconds = idleSeconds
	cfg.Daemon.RequestTimeoutSeconds = 5

	registry := hook.NewRegistry()
	if err := registry.Register(hook.Registration{Handler: denyBash{}, Priority: 10, Terminal: true}); err != nil {
		t.Fatal(err)
	}
	registry.Freeze()

	session := hook.NewSessionStore()
	dispatcher := hook.NewDispatcher(registry, session, slog.Default())
	srv := New(cfg, dispatcher, validator.New(), root)
	srv.idleTick = 50 * time.Millisecond
	return srv, root
}

// startServer runs the server in the background and returns its socket
// path once the listener is up.
func startServer(t *testing.T, srv *Server) string {
	t.Helper()
	socketPath, err := paths.SocketPath(srv.projectRoot)
	if err != nil {
		t.Fatal(err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(context.Background()) }()
	t.Cleanup(func() {
		srv.Shutdown()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			return socketPath
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("socket never appeared")
	return ""
}

func roundTrip(t *testing.T, socketPath string, req *protocol.Request) *protocol.Response {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := protocol.WriteRequest(conn, req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

func TestServerDispatchesRequest(t *testing.T) {
	srv, _ := testServer(t, 60)
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{
		Event:     "PreToolUse",
		HookInput: map[string]any{"tool_name": "Bash", "tool_input": map[string]any{"command": "ls"}},
		RequestID: "r1",
	})
	if resp.RequestID == nil || *resp.RequestID != "r1" {
		t.Errorf("request_id = %v, want r1", resp.RequestID)
	}
	if resp.Result == nil || resp.Result.Decision != "deny" {
		t.Fatalf("result = %+v, want deny", resp.Result)
	}
	if resp.Result.Reason == nil || *resp.Result.Reason != "bash is blocked here" {
		t.Errorf("reason = %v", resp.Result.Reason)
	}
}

func TestServerAllowsUnmatchedEvent(t *testing.T) {
	srv, _ := testServer(t, 60)
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{
		Event:     "SessionEnd",
		HookInput: map[string]any{},
		RequestID: "r2",
	})
	if resp.Result == nil || resp.Result.Decision != "allow" {
		t.Errorf("result = %+v, want allow for event with no handlers", resp.Result)
	}
	if resp.Result != nil && resp.Result.Context == nil {
		t.Error("context must be an empty list, not null")
	}
}

func TestServerAnswersPing(t *testing.T) {
	srv, _ := testServer(t, 60)
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{Event: protocol.EventPing, RequestID: "p1"})
	if resp.Result == nil || resp.Result.Decision != "allow" {
		t.Fatalf("ping result = %+v, want allow", resp.Result)
	}
	// The pong carries runtime facts for the status command.
	found := false
	for _, line := range resp.Result.Context {
		if strings.HasPrefix(line, "pid: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("pong context = %v, want a pid line", resp.Result.Context)
	}
}

func TestServerRejectsMalformedJSON(t *testing.T) {
	srv, _ := testServer(t, 60)
	socketPath := startServer(t, srv)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := io.WriteString(conn, "{definitely not json\n"); err != nil {
		t.Fatal(err)
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Error != protocol.ErrKindInvalidJSON {
		t.Errorf("error = %q, want invalid_json", resp.Error)
	}
	if resp.RequestID != nil {
		t.Errorf("request_id = %v, want null for undecodable request", resp.RequestID)
	}
}

func TestServerStrictModeRejectsInvalidInput(t *testing.T) {
	srv, _ := testServer(t, 60)
	srv.cfg.Daemon.InputValidation.StrictMode = true
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{
		Event:     "PostToolUse",
		HookInput: map[string]any{"tool_name": "Bash", "tool_input": map[string]any{}},
		RequestID: "r5",
	})
	if resp.Error != protocol.ErrKindInputValidationFailed {
		t.Fatalf("error = %q, want input_validation_failed", resp.Error)
	}
	if len(resp.Details) != 1 || resp.Details[0] != "tool_response: required field missing" {
		t.Errorf("details = %v", resp.Details)
	}
	if resp.EventType == nil || *resp.EventType != "PostToolUse" {
		t.Errorf("event_type = %v", resp.EventType)
	}
}

func TestServerFailOpenDispatchesInvalidInput(t *testing.T) {
	srv, _ := testServer(t, 60)
	socketPath := startServer(t, srv)

	// Same invalid PostToolUse payload, but fail-open mode dispatches
	// anyway; no PostToolUse handlers are registered, so it allows.
	resp := roundTrip(t, socketPath, &protocol.Request{
		Event:     "PostToolUse",
		HookInput: map[string]any{"tool_name": "Bash", "tool_input": map[string]any{}},
		RequestID: "r6",
	})
	if resp.Error != "" {
		t.Errorf("error = %q, want dispatch in fail-open mode", resp.Error)
	}
	if resp.Result == nil || resp.Result.Decision != "allow" {
		t.Errorf("result = %+v, want allow", resp.Result)
	}
}

func TestServerRejectsUnknownEventType(t *testing.T) {
	srv, _ := testServer(t, 60)
	srv.cfg.Daemon.InputValidation.StrictMode = true
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{Event: "NoSuchEvent", RequestID: "r7"})
	if resp.Error != protocol.ErrKindInputValidationFailed {
		t.Errorf("error = %q, want input_validation_failed", resp.Error)
	}
}

func TestServerIdleShutdown(t *testing.T) {
	srv, root := testServer(t, 1)
	socketPath := startServer(t, srv)

	resp := roundTrip(t, socketPath, &protocol.Request{Event: "SessionEnd", RequestID: "r8"})
	if resp.Result == nil {
		t.Fatalf("response = %+v", resp)
	}

	// Idle timeout is 1s with a 50ms watchdog tick; the daemon should
	// be gone well before the deadline.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); os.IsNotExist(err) {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatal("socket still present after idle timeout")
	}

	pidPath, err := paths.PIDPath(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("pid file still present after idle shutdown")
	}
}

func TestServerRefusesSecondInstance(t *testing.T) {
	srv, root := testServer(t, 60)
	startServer(t, srv)

	// Same project, same runtime dir: the live pid plus an answering
	// socket must block a second instance.
	second := New(srv.cfg, srv.dispatcher, srv.validator, root)
	if err := second.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestServerAnswersWhileHandlerIsStuck(t *testing.T) {
	isolateRuntime(t)
	root := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Daemon.RequestTimeoutSeconds = 1
	cfg.Daemon.InputValidation.Enabled = false

	registry := hook.NewRegistry()
	if err := registry.Register(hook.Registration{Handler: stallUntilCancel{}, Priority: 10}); err != nil {
		t.Fatal(err)
	}
	registry.Freeze()
	dispatcher := hook.NewDispatcher(registry, hook.NewSessionStore(), slog.Default())
	srv := New(cfg, dispatcher, validator.New(), root)
	srv.idleTick = 50 * time.Millisecond
	socketPath := startServer(t, srv)

	start := time.Now()
	resp := roundTrip(t, socketPath, &protocol.Request{Event: "PostToolUse", RequestID: "r9"})

	// The response must arrive on the request timeout even though the
	// handler never returned on its own.
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("response took %v, want roughly the 1s request timeout", elapsed)
	}
	if resp.Error != protocol.ErrKindHandlerTimeout {
		t.Errorf("error = %q, want handler_timeout", resp.Error)
	}
	if resp.Result == nil || resp.Result.Decision != "allow" {
		t.Errorf("result = %+v, want fail-open allow", resp.Result)
	}
}

func TestSecondSignalForcesExit(t *testing.T) {
	srv, _ := testServer(t, 60)
	exited := make(chan int, 1)
	srv.forceExit = func(code int) { exited <- code }

	sigCh := make(chan os.Signal, 2)
	go srv.handleSignals(context.Background(), sigCh)

	sigCh <- syscall.SIGTERM
	sigCh <- syscall.SIGTERM

	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}
	select {
	case <-srv.stopCh:
	default:
		t.Error("first signal did not start graceful shutdown")
	}
}
