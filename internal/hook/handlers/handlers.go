// Package handlers ships the built-in hook handlers and the factory
// table the daemon uses to instantiate them from configuration.
// Handler-specific options pass through the config layer untyped and
// are interpreted here.
package handlers

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/hooksd/hooksd/internal/hook"
)

// Spec describes one built-in handler: the event it subscribes to, its
// default attributes, and its factory.
type Spec struct {
	Event           hook.EventType
	DefaultPriority int
	DefaultTerminal bool
	New             func(options map[string]any) (hook.Handler, error)
}

// builtins maps config handler names to their specs.
var builtins = map[string]Spec{
	"destructive_git": {
		Event:           hook.EventPreToolUse,
		DefaultPriority: 10,
		DefaultTerminal: true,
		New:             newDestructiveGit,
	},
	"secret_files": {
		Event:           hook.EventPreToolUse,
		DefaultPriority: 15,
		DefaultTerminal: true,
		New:             newSecretFiles,
	},
	"british_english": {
		Event:           hook.EventPreToolUse,
		DefaultPriority: 56,
		DefaultTerminal: false,
		New:             newBritishEnglish,
	},
	"session_log": {
		Event:           hook.EventSessionStart,
		DefaultPriority: 20,
		DefaultTerminal: false,
		New:             newSessionLog,
	},
}

// Lookup returns the spec for a built-in handler name.
func Lookup(name string) (Spec, bool) {
	spec, ok := builtins[name]
	return spec, ok
}

// Names returns all built-in handler names.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

// Build instantiates a built-in handler by name with the given options.
func Build(name string, options map[string]any) (hook.Handler, error) {
	spec, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("handlers: unknown handler %q", name)
	}
	return spec.New(options)
}

// toolName extracts the tool name from a tool event, or "".
func toolName(ev *hook.Event) string {
	name, _ := ev.HookInput["tool_name"].(string)
	return name
}

// toolInput extracts the tool_input mapping from a tool event, or nil.
func toolInput(ev *hook.Event) map[string]any {
	in, _ := ev.HookInput["tool_input"].(map[string]any)
	return in
}

// toolCommand extracts the NFC-normalized Bash command, or "".
func toolCommand(ev *hook.Event) string {
	in := toolInput(ev)
	if in == nil {
		return ""
	}
	cmd, _ := in["command"].(string)
	return norm.NFC.String(cmd)
}

// writtenContent collects the textual payload a tool call is about to
// write: the content/new_string fields of Write and Edit style tools,
// plus a top-level content field when present.
func writtenContent(ev *hook.Event) string {
	var parts []string
	if c, ok := ev.HookInput["content"].(string); ok && c != "" {
		parts = append(parts, c)
	}
	if in := toolInput(ev); in != nil {
		for _, key := range []string{"content", "new_string", "file_text"} {
			if c, ok := in[key].(string); ok && c != "" {
				parts = append(parts, c)
			}
		}
	}
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "\n"
		}
		joined += p
	}
	return norm.NFC.String(joined)
}

// stringSliceOption reads a []string option, tolerating the []any shape
// YAML decoding produces.
func stringSliceOption(options map[string]any, key string) []string {
	raw, ok := options[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
