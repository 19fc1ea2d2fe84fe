package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hooksd/hooksd/internal/config"
	"github.com/hooksd/hooksd/internal/hook"
	"github.com/hooksd/hooksd/internal/hook/validator"
	"github.com/hooksd/hooksd/internal/paths"
	"github.com/hooksd/hooksd/internal/protocol"
)

// drainTimeout bounds how long shutdown waits for in-flight requests.
const drainTimeout = 5 * time.Second

// defaultIdleTick is how often the idle watchdog wakes.
const defaultIdleTick = 10 * time.Second

// Server is the per-project hook daemon. One listener goroutine accepts
// connections; each connection is serviced on its own goroutine, reads
// exactly one request, writes exactly one response, and closes.
type Server struct {
	cfg         *config.Config
	dispatcher  *hook.Dispatcher
	validator   *validator.Validator
	projectRoot string

	socketPath string
	pidPath    string

	listener net.Listener
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	// lastActivity is a unix-nano timestamp updated on startup and on
	// every completed request; the idle watchdog compares against it.
	lastActivity atomic.Int64

	// idleTick is overridable in tests.
	idleTick time.Duration

	// forceExit is called when a second signal arrives during shutdown.
	// Stubbed in tests.
	forceExit func(code int)
}

// New builds a server from its collaborators. Call Run to start serving.
func New(cfg *config.Config, dispatcher *hook.Dispatcher, v *validator.Validator, projectRoot string) *Server {
	return &Server{
		cfg:         cfg,
		dispatcher:  dispatcher,
		validator:   v,
		projectRoot: projectRoot,
		stopCh:      make(chan struct{}),
		idleTick:    defaultIdleTick,
		forceExit:   os.Exit,
	}
}

// Run binds the socket, writes the pid and discovery files, and serves
// until a signal, idle timeout, or Shutdown. It returns after cleanup.
// ErrAlreadyRunning means another live daemon owns the socket.
func (s *Server) Run(ctx context.Context) error {
	if err := CleanupStale(s.projectRoot); err != nil {
		return err
	}

	if _, err := paths.EnsureRuntimeDir(s.projectRoot); err != nil {
		return err
	}
	socketPath, err := paths.SocketPath(s.projectRoot)
	if err != nil {
		return err
	}
	pidPath, err := paths.PIDPath(s.projectRoot)
	if err != nil {
		return err
	}
	s.socketPath = socketPath
	s.pidPath = pidPath

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("bind socket %s: %w", socketPath, err)
	}
	s.listener = ln
	// Owner-only: the socket is the project's private control surface.
	if err := os.Chmod(socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	if err := WritePIDFile(pidPath); err != nil {
		ln.Close()
		os.Remove(socketPath)
		return err
	}
	if err := PublishDiscovery(s.projectRoot, socketPath); err != nil {
		slog.Warn("could not publish discovery file", "error", err)
	}

	s.touch()
	slog.Info("daemon listening",
		"socket", socketPath,
		"pid", os.Getpid(),
		"idle_timeout_seconds", s.cfg.Daemon.IdleTimeoutSeconds,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go s.watchIdle()
	go s.handleSignals(ctx, sigCh)

	s.acceptLoop(ctx)

	s.drain()
	s.cleanup()
	slog.Info("daemon stopped")
	return nil
}

// Shutdown initiates graceful shutdown. Safe to call more than once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleSignals triggers graceful shutdown on the first signal and
// forces immediate exit on a second, so a stuck drain cannot trap the
// process.
func (s *Server) handleSignals(ctx context.Context, sigCh <-chan os.Signal) {
	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
		s.Shutdown()
	case <-ctx.Done():
		s.Shutdown()
		return
	case <-s.stopCh:
		return
	}

	sig := <-sigCh
	slog.Warn("second signal during shutdown, exiting immediately", "signal", sig.String())
	s.forceExit(1)
}

// handleConn services one connection: one request, one response.
// Decode and I/O errors are recovered here; nothing from a single
// connection can take the daemon down.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("connection handler panicked", "panic", r)
			_ = protocol.WriteResponse(conn, protocol.ErrorResponse(nil, protocol.ErrKindInternal, nil, nil))
		}
	}()

	start := time.Now()
	conn.SetDeadline(time.Now().Add(time.Duration(s.cfg.Daemon.RequestTimeoutSeconds+5) * time.Second))

	req, err := protocol.ReadRequest(conn, s.cfg.Daemon.MaxRequestBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		kind := protocol.ErrKindInvalidJSON
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			kind = protocol.ErrKindRequestTooLarge
		}
		slog.Warn("bad request frame", "error", err)
		_ = protocol.WriteResponse(conn, protocol.ErrorResponse(nil, kind, nil, nil))
		return
	}
	defer s.touch()

	resp := s.process(ctx, req, start)
	if err := protocol.WriteResponse(conn, resp); err != nil {
		slog.Warn("write response failed", "request_id", req.RequestID, "error", err)
	}
}

// process turns one decoded request into a response.
func (s *Server) process(ctx context.Context, req *protocol.Request, start time.Time) *protocol.Response {
	if req.Event == protocol.EventPing {
		return protocol.SuccessResponse(req.RequestID, s.pong(), msSince(start))
	}

	event := hook.EventType(req.Event)
	if !hook.IsValidEventType(event) {
		evt := req.Event
		rid := req.RequestID
		slog.Warn("unknown event type", "event", req.Event, "request_id", req.RequestID)
		return protocol.ErrorResponse(&rid, protocol.ErrKindInputValidationFailed,
			[]string{fmt.Sprintf("event: unknown event type %q", req.Event)}, &evt)
	}

	if s.cfg.Daemon.InputValidation.Enabled {
		if details := s.validator.Validate(event, req.HookInput); details != nil {
			if s.cfg.Daemon.InputValidation.StrictMode {
				rid := req.RequestID
				evt := req.Event
				return protocol.ErrorResponse(&rid, protocol.ErrKindInputValidationFailed, details, &evt)
			}
			if s.cfg.Daemon.InputValidation.LogValidationErrors {
				slog.Warn("input validation failed, proceeding",
					"event", req.Event,
					"request_id", req.RequestID,
					"details", details,
				)
			}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Daemon.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	// Dispatch runs on its own goroutine so a handler blocked inside
	// Handle cannot hold the response past the deadline; the stuck chain
	// is orphaned and the buffered channel lets it finish eventually.
	type outcome struct {
		result hook.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.dispatcher.Dispatch(reqCtx, &hook.Event{
			Type:      event,
			HookInput: req.HookInput,
			RequestID: req.RequestID,
		})
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, hook.ErrRequestTimeout) {
				slog.Error("request timed out", "event", req.Event, "request_id", req.RequestID)
				return protocol.TimeoutResponse(req.RequestID, msSince(start))
			}
			slog.Error("dispatch failed", "event", req.Event, "request_id", req.RequestID, "error", out.err)
			rid := req.RequestID
			evt := req.Event
			return protocol.ErrorResponse(&rid, protocol.ErrKindInternal, nil, &evt)
		}
		return protocol.SuccessResponse(req.RequestID, out.result, msSince(start))
	case <-reqCtx.Done():
		slog.Error("request timed out in handler", "event", req.Event, "request_id", req.RequestID)
		return protocol.TimeoutResponse(req.RequestID, msSince(start))
	}
}

// watchIdle shuts the daemon down once no request has completed for the
// configured idle timeout. It wakes every tick rather than arming a
// timer per request.
func (s *Server) watchIdle() {
	idle := time.Duration(s.cfg.Daemon.IdleTimeoutSeconds) * time.Second
	ticker := time.NewTicker(s.idleTick)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			last := time.Unix(0, s.lastActivity.Load())
			if time.Since(last) > idle {
				slog.Info("idle timeout reached, shutting down", "idle", idle.String())
				s.Shutdown()
				return
			}
		}
	}
}

// drain waits for in-flight connections, bounded by drainTimeout.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		slog.Warn("drain timeout, abandoning in-flight requests")
	}
}

// cleanup removes the files this daemon owns.
func (s *Server) cleanup() {
	for _, p := range []string{s.socketPath, s.pidPath, paths.DiscoveryPath(s.projectRoot)} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("cleanup failed", "path", p, "error", err)
		}
	}
}

// pong answers a liveness probe with the daemon's runtime facts as
// advisory context lines. Status consumers parse these "key: value"
// lines; keep them stable.
func (s *Server) pong() hook.Result {
	lines := []string{
		fmt.Sprintf("pid: %d", os.Getpid()),
		fmt.Sprintf("last_activity: %s", time.Unix(0, s.lastActivity.Load()).Format(time.RFC3339)),
	}
	state := s.dispatcher.Session()
	if !state.LastUpdated.IsZero() {
		model := state.ModelDisplayName
		if model == "" {
			model = state.ModelID
		}
		if model != "" {
			lines = append(lines, "model: "+model)
		}
		lines = append(lines,
			fmt.Sprintf("context_used_pct: %.1f", state.ContextUsedPercentage),
			"session_updated: "+state.LastUpdated.Format(time.RFC3339),
		)
	}
	return hook.AllowWithContext(lines...)
}

func (s *Server) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
