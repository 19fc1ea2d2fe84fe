package handlers

import (
	"context"
	"log/slog"

	"github.com/hooksd/hooksd/internal/hook"
)

// sessionLog records session starts in the daemon log. It produces no
// decision beyond allow and no context.
type sessionLog struct{}

func newSessionLog(_ map[string]any) (hook.Handler, error) {
	return &sessionLog{}, nil
}

func (h *sessionLog) Name() string              { return "session_log" }
func (h *sessionLog) EventType() hook.EventType { return hook.EventSessionStart }

func (h *sessionLog) Description() string {
	return "Records session start metadata (session id, source, model) in the daemon log."
}

func (h *sessionLog) Matches(_ *hook.Event) bool { return true }

func (h *sessionLog) Handle(_ context.Context, ev *hook.Event, session hook.SessionState) hook.Result {
	sessionID, _ := ev.HookInput["session_id"].(string)
	source, _ := ev.HookInput["source"].(string)
	slog.Info("session started",
		"session_id", sessionID,
		"source", source,
		"model", session.ModelID,
	)
	return hook.Allow()
}
