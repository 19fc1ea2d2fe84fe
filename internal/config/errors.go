// Package config loads, validates, and exposes the typed hooks-daemon
// configuration: daemon settings plus the per-event handler registry.
// Validation is exhaustive; every problem in a file is reported, not
// just the first.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for configuration operations. Each maps to one
// validation error category.
var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrInvalidYAML indicates invalid YAML syntax in the configuration file.
	ErrInvalidYAML = errors.New("config: invalid YAML syntax")

	// ErrVersionMismatch indicates an unsupported config version.
	ErrVersionMismatch = errors.New("config: unsupported version")

	// ErrUnknownEventType indicates a handler section keyed by an event
	// type outside the closed set.
	ErrUnknownEventType = errors.New("config: unknown event type")

	// ErrInvalidHandlerName indicates a handler name that does not match
	// ^[a-z][a-z0-9_]*$.
	ErrInvalidHandlerName = errors.New("config: invalid handler name")

	// ErrPriorityOutOfRange indicates a handler priority outside [5, 60].
	ErrPriorityOutOfRange = errors.New("config: priority out of range")

	// ErrDuplicatePriority indicates two enabled handlers sharing a
	// priority within one event type.
	ErrDuplicatePriority = errors.New("config: duplicate priority")

	// ErrDuplicateHandlerName indicates a handler name defined in more
	// than one section (base or plugin) for the same event type.
	ErrDuplicateHandlerName = errors.New("config: duplicate handler name")

	// ErrTypeMismatch indicates a config value of the wrong type.
	ErrTypeMismatch = errors.New("config: type mismatch")

	// ErrUnknownLogLevel indicates an unrecognized daemon.log_level.
	ErrUnknownLogLevel = errors.New("config: unknown log level")

	// ErrUnknownHandler indicates a configured handler name with no
	// matching implementation. Raised at registry build time, not during
	// shape validation; the config package does not know the handler
	// table.
	ErrUnknownHandler = errors.New("config: unknown handler")

	// ErrUnknownKey indicates an unknown top-level or daemon-section key.
	// Unknown keys inside a handler's own block are allowed and pass
	// through to the handler.
	ErrUnknownKey = errors.New("config: unknown key")
)

// ValidationError represents a single validation error with field context.
type ValidationError struct {
	Field   string
	Message string
	Value   any
	Wrapped error // underlying sentinel error for errors.Is support
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: field %q: %s (got: %v)", e.Category(), e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: field %q: %s", e.Category(), e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Wrapped
}

// Category returns the stable category tag for this error kind.
func (e *ValidationError) Category() string {
	switch {
	case errors.Is(e.Wrapped, ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(e.Wrapped, ErrUnknownEventType):
		return "unknown_event_type"
	case errors.Is(e.Wrapped, ErrInvalidHandlerName):
		return "invalid_handler_name"
	case errors.Is(e.Wrapped, ErrPriorityOutOfRange):
		return "priority_out_of_range"
	case errors.Is(e.Wrapped, ErrDuplicatePriority):
		return "duplicate_priority"
	case errors.Is(e.Wrapped, ErrDuplicateHandlerName):
		return "duplicate_handler_name"
	case errors.Is(e.Wrapped, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(e.Wrapped, ErrUnknownLogLevel):
		return "unknown_log_level"
	case errors.Is(e.Wrapped, ErrUnknownHandler):
		return "unknown_handler"
	case errors.Is(e.Wrapped, ErrUnknownKey):
		return "unknown_key"
	default:
		return "invalid_config"
	}
}

// ValidationErrors is the aggregate of every problem found in one file.
type ValidationErrors struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation: no errors"
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Is supports errors.Is by checking contained validation errors against
// the target.
func (e *ValidationErrors) Is(target error) bool {
	if target == ErrInvalidConfig {
		return true
	}
	for _, ve := range e.Errors {
		if ve.Wrapped != nil && errors.Is(ve.Wrapped, target) {
			return true
		}
	}
	return false
}
