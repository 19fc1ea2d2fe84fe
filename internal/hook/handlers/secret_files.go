package handlers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hooksd/hooksd/internal/hook"
)

// secretFilePatterns match paths that hold credentials or other material
// an automated edit should never touch.
var secretFilePatterns = []string{
	`secrets?\.(json|ya?ml|toml)$`,
	`credentials?\.(json|ya?ml|toml)$`,
	`(^|/)\.secrets/`,
	`(^|/)\.ssh/`,
	`id_rsa`,
	`id_ed25519`,
	`\.pem$`,
	`\.key$`,
	`\.crt$`,
	`(^|/)\.git/`,
	`(^|/)\.aws/`,
	`(^|/)\.gcloud/`,
	`(^|/)\.kube/`,
	`(^|/)\.env(\.|$)`,
}

// editingTools are the tool names that modify files in place.
var editingTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// secretFiles denies file edits that target credential-looking paths.
type secretFiles struct {
	patterns []*regexp.Regexp
}

// newSecretFiles builds the handler. Options:
//
//	extra_patterns: additional path regexes to deny
func newSecretFiles(options map[string]any) (hook.Handler, error) {
	sources := append([]string{}, secretFilePatterns...)
	sources = append(sources, stringSliceOption(options, "extra_patterns")...)

	h := &secretFiles{}
	for _, src := range sources {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("secret_files: compile pattern %q: %w", src, err)
		}
		h.patterns = append(h.patterns, re)
	}
	return h, nil
}

func (h *secretFiles) Name() string              { return "secret_files" }
func (h *secretFiles) EventType() hook.EventType { return hook.EventPreToolUse }

func (h *secretFiles) Description() string {
	return "Denies edits to credential-looking paths (key material, cloud configs, .env files, git internals)."
}

func (h *secretFiles) Matches(ev *hook.Event) bool {
	return editingTools[toolName(ev)] && h.filePath(ev) != ""
}

func (h *secretFiles) Handle(_ context.Context, ev *hook.Event, _ hook.SessionState) hook.Result {
	path := h.filePath(ev)
	for _, re := range h.patterns {
		if re.MatchString(path) {
			return hook.Deny(fmt.Sprintf("refusing to modify %q: path matches a protected credential pattern", path))
		}
	}
	return hook.Allow()
}

func (h *secretFiles) filePath(ev *hook.Event) string {
	in := toolInput(ev)
	if in == nil {
		return ""
	}
	for _, key := range []string{"file_path", "notebook_path", "path"} {
		if p, ok := in[key].(string); ok && p != "" {
			return p
		}
	}
	return ""
}
