package hook

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher runs the ordered handler chain for one event and aggregates
// the result. Handler panics are recovered locally and treated as allow
// (fail-open); only the per-request timeout surfaces as an error.
type Dispatcher struct {
	registry *Registry
	session  *SessionStore
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry and
// session store.
func NewDispatcher(registry *Registry, session *SessionStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, session: session, logger: logger}
}

// Session returns the current session state snapshot.
func (d *Dispatcher) Session() SessionState {
	return d.session.Snapshot()
}

// Dispatch processes a single event. The caller bounds ctx with the
// per-request timeout; when the deadline expires between handlers,
// Dispatch abandons the chain and returns ErrRequestTimeout alongside an
// allow result so the server can fail open.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) (Result, error) {
	// Status events update the shared state before dispatch so even this
	// event's handlers see the new snapshot.
	if ev.Type == EventStatus {
		d.session.UpdateFromStatus(ev.HookInput)
	}
	snapshot := d.session.Snapshot()

	regs := d.registry.HandlersFor(ev.Type)
	if len(regs) == 0 {
		return Allow(), nil
	}

	final := Result{Decision: DecisionAllow, Context: []string{}}

	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			d.logger.Error("request timed out mid-chain",
				"event", string(ev.Type),
				"handler", reg.Handler.Name(),
			)
			return Result{Decision: DecisionAllow, Context: []string{}}, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}

		if !d.safeMatches(reg.Handler, ev) {
			continue
		}

		res := d.safeHandle(ctx, reg.Handler, ev, snapshot)

		if len(res.Context) > 0 {
			final.Context = append(final.Context, res.Context...)
		}

		switch res.Decision {
		case DecisionDeny, DecisionAsk:
			// Last-seen denial wins; ask terminates like deny but the
			// ask tag is preserved in the response.
			final.Decision = res.Decision
			final.Reason = res.Reason
			if reg.Terminal {
				d.logger.Info("terminal handler stopped chain",
					"event", string(ev.Type),
					"handler", reg.Handler.Name(),
					"decision", string(res.Decision),
					"reason", res.Reason,
				)
				return final, nil
			}
			d.logger.Info("handler denied, chain continues",
				"event", string(ev.Type),
				"handler", reg.Handler.Name(),
				"decision", string(res.Decision),
			)
		case DecisionAllow:
			// continue
		default:
			// Unknown decision from a misbehaving handler: fail open.
			d.logger.Warn("handler returned unknown decision, treating as allow",
				"event", string(ev.Type),
				"handler", reg.Handler.Name(),
				"decision", string(res.Decision),
			)
		}
	}

	return final, nil
}

// safeMatches calls Matches under a panic guard. A panicking predicate
// is treated as no match.
func (d *Dispatcher) safeMatches(h Handler, ev *Event) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler Matches panicked",
				"event", string(ev.Type),
				"handler", h.Name(),
				"panic", fmt.Sprint(r),
			)
			matched = false
		}
	}()
	return h.Matches(ev)
}

// safeHandle calls Handle under a panic guard. A panicking handler
// contributes an allow with empty context.
func (d *Dispatcher) safeHandle(ctx context.Context, h Handler, ev *Event, session SessionState) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler Handle panicked",
				"event", string(ev.Type),
				"handler", h.Name(),
				"panic", fmt.Sprint(r),
			)
			res = Allow()
		}
	}()
	return h.Handle(ctx, ev, session)
}
