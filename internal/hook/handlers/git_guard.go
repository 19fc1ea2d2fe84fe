package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hooksd/hooksd/internal/hook"
)

// destructiveGitPatterns match git invocations that discard work or
// rewrite published history.
var destructiveGitPatterns = []string{
	`git\s+reset\s+--hard`,
	`git\s+clean\s+-[a-z]*f`,
	`git\s+checkout\s+--\s+\.`,
	`git\s+push\s+[^|;&]*(--force(?:\s|$)|-f\s)`,
	`git\s+branch\s+-D\b`,
	`git\s+stash\s+(drop|clear)\b`,
}

// destructiveGit denies Bash commands that would destroy git state.
type destructiveGit struct {
	patterns []*regexp.Regexp
}

// newDestructiveGit builds the handler. Options:
//
//	extra_patterns: additional regexes treated as destructive
func newDestructiveGit(options map[string]any) (hook.Handler, error) {
	sources := append([]string{}, destructiveGitPatterns...)
	sources = append(sources, stringSliceOption(options, "extra_patterns")...)

	h := &destructiveGit{}
	for _, src := range sources {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("destructive_git: compile pattern %q: %w", src, err)
		}
		h.patterns = append(h.patterns, re)
	}
	return h, nil
}

func (h *destructiveGit) Name() string              { return "destructive_git" }
func (h *destructiveGit) EventType() hook.EventType { return hook.EventPreToolUse }

func (h *destructiveGit) Description() string {
	return "Denies Bash commands that discard git work or rewrite published history (reset --hard, clean -f, force push)."
}

func (h *destructiveGit) Matches(ev *hook.Event) bool {
	return toolName(ev) == "Bash" && toolCommand(ev) != ""
}

func (h *destructiveGit) Handle(_ context.Context, ev *hook.Event, _ hook.SessionState) hook.Result {
	cmd := toolCommand(ev)
	for _, re := range h.patterns {
		if loc := re.FindString(cmd); loc != "" {
			slog.Warn("destructive git command denied", "match", loc)
			return hook.Deny(fmt.Sprintf("destructive git command blocked: %q discards work or rewrites history; run it manually if you are sure", loc))
		}
	}
	return hook.Allow()
}
