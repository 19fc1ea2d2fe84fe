// Package hook defines the event model of the hooks daemon: the closed
// set of Claude Code lifecycle events, the handler contract, the
// per-request dispatch pipeline, and the shared session state.
package hook

import (
	"context"
	"errors"
	"slices"
	"time"
)

// DefaultRequestTimeout bounds the handler chain for a single request.
// The timeout is a safety net; handlers are expected to be short.
const DefaultRequestTimeout = 60 * time.Second

// EventType represents a Claude Code hook event type. The set is closed;
// adding an event type is a deliberate schema change.
type EventType string

const (
	// EventPreToolUse is triggered before a tool is executed.
	EventPreToolUse EventType = "PreToolUse"

	// EventPostToolUse is triggered after a tool has been executed.
	EventPostToolUse EventType = "PostToolUse"

	// EventSessionStart is triggered when a new Claude Code session begins.
	EventSessionStart EventType = "SessionStart"

	// EventSessionEnd is triggered when a Claude Code session ends.
	EventSessionEnd EventType = "SessionEnd"

	// EventStop is triggered when Claude Code requests a stop.
	EventStop EventType = "Stop"

	// EventSubagentStop is triggered when a subagent stops.
	EventSubagentStop EventType = "SubagentStop"

	// EventPreCompact is triggered before context compaction.
	EventPreCompact EventType = "PreCompact"

	// EventUserPromptSubmit is triggered when a user submits a prompt.
	EventUserPromptSubmit EventType = "UserPromptSubmit"

	// EventPermissionRequest is triggered when a permission check occurs.
	EventPermissionRequest EventType = "PermissionRequest"

	// EventNotification is triggered when Claude Code sends a notification.
	EventNotification EventType = "Notification"

	// EventStatus carries runtime facts (model, context usage, workspace)
	// that the daemon folds into the shared session state.
	EventStatus EventType = "Status"
)

// ValidEventTypes returns all valid event types.
func ValidEventTypes() []EventType {
	return []EventType{
		EventPreToolUse,
		EventPostToolUse,
		EventSessionStart,
		EventSessionEnd,
		EventStop,
		EventSubagentStop,
		EventPreCompact,
		EventUserPromptSubmit,
		EventPermissionRequest,
		EventNotification,
		EventStatus,
	}
}

// IsValidEventType checks if the given event type is valid.
func IsValidEventType(et EventType) bool {
	return slices.Contains(ValidEventTypes(), et)
}

// Decision is the outcome a handler (and ultimately the dispatcher)
// produces for an event.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// Event is one forwarded lifecycle record. HookInput is the opaque
// payload whose required keys depend on the event type; RequestID is
// supplied by the forwarder and echoed in the response.
type Event struct {
	Type      EventType
	HookInput map[string]any
	RequestID string
}

// Result is what a single handler returns from Handle, and also the
// aggregate the dispatcher produces for the whole event.
type Result struct {
	Decision Decision
	Reason   string
	Context  []string
}

// Allow returns an allow result with no reason and no context.
func Allow() Result {
	return Result{Decision: DecisionAllow}
}

// Deny returns a deny result carrying the given reason.
func Deny(reason string) Result {
	return Result{Decision: DecisionDeny, Reason: reason}
}

// Ask returns an ask result carrying the given reason.
func Ask(reason string) Result {
	return Result{Decision: DecisionAsk, Reason: reason}
}

// AllowWithContext returns an allow result carrying advisory context.
func AllowWithContext(context ...string) Result {
	return Result{Decision: DecisionAllow, Context: context}
}

// Handler is a registered capability for exactly one event type.
// Both methods must tolerate malformed or unexpected hook input
// gracefully; the input validator is not guaranteed to have run.
type Handler interface {
	// Name returns the stable handler identifier, unique within its
	// event type.
	Name() string

	// EventType returns the single event type this handler subscribes to.
	EventType() EventType

	// Matches reports whether the handler wants to see this event.
	// It must be cheap and must not mutate state.
	Matches(ev *Event) bool

	// Handle processes the event. It may read the session snapshot but
	// must not mutate shared state or retain references to the event
	// beyond the call.
	Handle(ctx context.Context, ev *Event, session SessionState) Result
}

// Describer is an optional handler extension used by the acceptance
// playbook generator. Handlers that do not implement it are described
// by name alone.
type Describer interface {
	Description() string
}

// ErrRequestTimeout is returned by Dispatch when the per-request
// deadline expires before the handler chain completes.
var ErrRequestTimeout = errors.New("hook: request timeout exceeded")
