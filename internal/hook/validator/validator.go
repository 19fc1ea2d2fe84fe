// Package validator schema-checks incoming hook payloads per event type.
// Validation is a development aid: callers decide whether failures are
// logged (fail-open) or surfaced to the forwarder (strict mode).
package validator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hooksd/hooksd/internal/hook"
)

// schemaSources holds the per-event JSON Schemas. Required keys follow
// the Claude Code hooks payload: tool events carry tool_name/tool_input,
// PostToolUse additionally carries the tool_response.
var schemaSources = map[hook.EventType]string{
	hook.EventPreToolUse: `{
		"type": "object",
		"required": ["tool_name", "tool_input"],
		"properties": {
			"tool_name":  {"type": "string", "minLength": 1},
			"tool_input": {"type": "object"}
		}
	}`,
	hook.EventPostToolUse: `{
		"type": "object",
		"required": ["tool_name", "tool_input", "tool_response"],
		"properties": {
			"tool_name":  {"type": "string", "minLength": 1},
			"tool_input": {"type": "object"}
		}
	}`,
	hook.EventPermissionRequest: `{
		"type": "object",
		"required": ["tool_name", "tool_input"],
		"properties": {
			"tool_name":  {"type": "string", "minLength": 1},
			"tool_input": {"type": "object"}
		}
	}`,
	hook.EventSessionStart: `{
		"type": "object",
		"properties": {
			"session_id": {"type": "string"},
			"source":     {"type": "string"}
		}
	}`,
	hook.EventSessionEnd: `{
		"type": "object",
		"properties": {
			"session_id": {"type": "string"},
			"reason":     {"type": "string"}
		}
	}`,
	hook.EventStop: `{
		"type": "object",
		"properties": {
			"stop_hook_active": {"type": "boolean"}
		}
	}`,
	hook.EventSubagentStop: `{
		"type": "object",
		"properties": {
			"stop_hook_active": {"type": "boolean"}
		}
	}`,
	hook.EventPreCompact: `{
		"type": "object",
		"properties": {
			"trigger":             {"type": "string"},
			"custom_instructions": {"type": "string"}
		}
	}`,
	hook.EventUserPromptSubmit: `{
		"type": "object",
		"required": ["prompt"],
		"properties": {
			"prompt": {"type": "string"}
		}
	}`,
	hook.EventNotification: `{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"title":   {"type": "string"}
		}
	}`,
	hook.EventStatus: `{
		"type": "object",
		"properties": {
			"model":                   {"type": "object"},
			"workspace":               {"type": "object"},
			"context_used_percentage": {"type": "number"}
		}
	}`,
}

// Validator compiles one schema per event type on first use and caches
// the result. Validation itself is a pure function of its inputs.
type Validator struct {
	mu       sync.Mutex
	compiled map[hook.EventType]*jsonschema.Schema
	printer  *message.Printer
}

// New creates a Validator with an empty compile cache.
func New() *Validator {
	return &Validator{
		compiled: make(map[hook.EventType]*jsonschema.Schema),
		printer:  message.NewPrinter(language.English),
	}
}

// Validate checks the hook input against the event's schema and returns
// one human-readable detail per problem, or nil when the input is valid
// or the event has no schema.
func (v *Validator) Validate(event hook.EventType, hookInput map[string]any) []string {
	schema, err := v.schemaFor(event)
	if err != nil {
		// A schema that does not compile is a build defect, not a reason
		// to reject traffic.
		return nil
	}
	if schema == nil {
		return nil
	}

	instance := any(hookInput)
	if hookInput == nil {
		instance = map[string]any{}
	}

	err = schema.Validate(instance)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	return v.details(ve)
}

// schemaFor returns the compiled schema for the event, compiling and
// caching it on first use.
func (v *Validator) schemaFor(event hook.EventType) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.compiled[event]; ok {
		return s, nil
	}
	src, ok := schemaSources[event]
	if !ok {
		return nil, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema for %s: %w", event, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", event, err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", event, err)
	}
	v.compiled[event] = s
	return s, nil
}

// details flattens a validation error tree into one string per leaf
// cause, e.g. "tool_response: required field missing".
func (v *Validator) details(ve *jsonschema.ValidationError) []string {
	var out []string
	for _, leaf := range leaves(ve) {
		loc := strings.Join(leaf.InstanceLocation, ".")
		switch k := leaf.ErrorKind.(type) {
		case *kind.Required:
			prefix := ""
			if loc != "" {
				prefix = loc + "."
			}
			for _, missing := range k.Missing {
				out = append(out, prefix+missing+": required field missing")
			}
		default:
			msg := leaf.ErrorKind.LocalizedString(v.printer)
			if loc == "" {
				out = append(out, msg)
			} else {
				out = append(out, loc+": "+msg)
			}
		}
	}
	return out
}

// leaves returns the leaf causes of a validation error tree.
func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
