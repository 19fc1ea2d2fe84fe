// Package playbook generates an acceptance playbook from the handlers
// registered at startup: who runs, for which event, in what order, and
// what each one does. The output is ephemeral documentation, regenerated
// on demand rather than checked in.
package playbook

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hooksd/hooksd/internal/hook"
)

// Entry describes one registered handler.
type Entry struct {
	Event       string `json:"event" yaml:"event"`
	Handler     string `json:"handler" yaml:"handler"`
	Priority    int    `json:"priority" yaml:"priority"`
	Terminal    bool   `json:"terminal" yaml:"terminal"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Playbook is the full generated document.
type Playbook struct {
	Project string  `json:"project" yaml:"project"`
	Entries []Entry `json:"handlers" yaml:"handlers"`
}

// Collect walks the frozen registry in canonical event order and
// priority order within each event.
func Collect(project string, registry *hook.Registry) *Playbook {
	pb := &Playbook{Project: project}
	for _, event := range registry.Events() {
		for _, reg := range registry.HandlersFor(event) {
			entry := Entry{
				Event:    string(event),
				Handler:  reg.Handler.Name(),
				Priority: reg.Priority,
				Terminal: reg.Terminal,
			}
			if d, ok := reg.Handler.(hook.Describer); ok {
				entry.Description = d.Description()
			}
			pb.Entries = append(pb.Entries, entry)
		}
	}
	return pb
}

// Formats accepted by Render.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Render serializes the playbook in the requested format.
func Render(pb *Playbook, format string) (string, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(pb), nil
	case FormatJSON:
		data, err := json.MarshalIndent(pb, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode playbook: %w", err)
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(pb)
		if err != nil {
			return "", fmt.Errorf("encode playbook: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown playbook format %q (want md, json, or yaml)", format)
	}
}

func renderMarkdown(pb *Playbook) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Hook Acceptance Playbook\n\nProject: `%s`\n\n", pb.Project)

	if len(pb.Entries) == 0 {
		b.WriteString("No handlers are registered.\n")
		return b.String()
	}

	currentEvent := ""
	for _, e := range pb.Entries {
		if e.Event != currentEvent {
			currentEvent = e.Event
			fmt.Fprintf(&b, "## %s\n\n", e.Event)
			b.WriteString("| Priority | Handler | Terminal | Description |\n")
			b.WriteString("|---|---|---|---|\n")
		}
		terminal := "no"
		if e.Terminal {
			terminal = "yes"
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", e.Priority, e.Handler, terminal, e.Description)
	}
	b.WriteString("\nHandlers run in ascending priority order; a terminal handler's deny stops the chain.\n")
	return b.String()
}
