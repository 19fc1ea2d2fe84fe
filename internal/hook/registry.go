package hook

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registration pairs a handler implementation with the attributes the
// config assigns to it. Terminal means a deny from this handler stops
// the chain for the event.
type Registration struct {
	Handler  Handler
	Priority int
	Terminal bool
}

// Registry holds the enabled handlers per event type, sorted by
// ascending priority. It is built once at startup and is immutable
// afterwards, so reads need no locking.
type Registry struct {
	byEvent map[EventType][]Registration
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byEvent: make(map[EventType][]Registration)}
}

// Register adds a handler registration for its declared event type.
// Two enabled handlers within one event type must not share a priority;
// config validation rejects such configs before they reach the registry,
// so Register treats a duplicate as a programming error.
func (r *Registry) Register(reg Registration) error {
	if r.frozen {
		return fmt.Errorf("hook: registry is frozen, cannot register %q", reg.Handler.Name())
	}
	event := reg.Handler.EventType()
	for _, existing := range r.byEvent[event] {
		if existing.Priority == reg.Priority {
			return fmt.Errorf("hook: duplicate priority %d for event %s (%q and %q)",
				reg.Priority, event, existing.Handler.Name(), reg.Handler.Name())
		}
	}
	r.byEvent[event] = append(r.byEvent[event], reg)
	slog.Debug("handler registered",
		"event", string(event),
		"handler", reg.Handler.Name(),
		"priority", reg.Priority,
		"terminal", reg.Terminal,
	)
	return nil
}

// Freeze sorts each event's handlers by ascending priority and marks
// the registry immutable.
func (r *Registry) Freeze() {
	for event := range r.byEvent {
		regs := r.byEvent[event]
		sort.Slice(regs, func(i, j int) bool { return regs[i].Priority < regs[j].Priority })
	}
	r.frozen = true
}

// HandlersFor returns the ordered registrations for the given event
// type. Callers must not mutate the returned slice.
func (r *Registry) HandlersFor(event EventType) []Registration {
	return r.byEvent[event]
}

// Events returns the event types that have at least one handler, in
// the canonical event-type order.
func (r *Registry) Events() []EventType {
	var events []EventType
	for _, et := range ValidEventTypes() {
		if len(r.byEvent[et]) > 0 {
			events = append(events, et)
		}
	}
	return events
}
