package hook

import (
	"sync/atomic"
	"time"
)

// SessionState is the daemon-wide cache of runtime facts extracted from
// Status events. Values are immutable once published; readers always see
// a consistent snapshot. Never persisted across daemon restarts.
type SessionState struct {
	ModelID               string
	ModelDisplayName      string
	ContextUsedPercentage float64
	WorkspaceDir          string
	LastUpdated           time.Time
}

// SessionStore holds the current session state behind an atomic pointer.
// The dispatcher is the single writer; handlers read snapshots only.
type SessionStore struct {
	state atomic.Pointer[SessionState]
}

// NewSessionStore returns a store holding a zero-value snapshot.
func NewSessionStore() *SessionStore {
	s := &SessionStore{}
	s.state.Store(&SessionState{})
	return s
}

// Snapshot returns the current state by value.
func (s *SessionStore) Snapshot() SessionState {
	return *s.state.Load()
}

// UpdateFromStatus folds the fields of a Status event's hook input into
// a fresh snapshot and publishes it. Unknown or malformed fields keep
// their previous values. Accepts both the nested statusline shape
// ({"model": {"id": ...}, "workspace": {"current_dir": ...}}) and flat
// keys ("model_id", "workspace_dir").
func (s *SessionStore) UpdateFromStatus(hookInput map[string]any) {
	next := *s.state.Load()
	next.LastUpdated = time.Now()

	if model, ok := hookInput["model"].(map[string]any); ok {
		if id, ok := model["id"].(string); ok {
			next.ModelID = id
		}
		if name, ok := model["display_name"].(string); ok {
			next.ModelDisplayName = name
		}
	}
	if id, ok := hookInput["model_id"].(string); ok {
		next.ModelID = id
	}
	if name, ok := hookInput["model_display_name"].(string); ok {
		next.ModelDisplayName = name
	}

	if ws, ok := hookInput["workspace"].(map[string]any); ok {
		if dir, ok := ws["current_dir"].(string); ok {
			next.WorkspaceDir = dir
		}
	}
	if dir, ok := hookInput["workspace_dir"].(string); ok {
		next.WorkspaceDir = dir
	}

	if pct, ok := asFloat(hookInput["context_used_percentage"]); ok {
		next.ContextUsedPercentage = pct
	}

	s.state.Store(&next)
}

// asFloat coerces JSON number representations to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
