package handlers

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/hooksd/hooksd/internal/hook"
)

// americanToBritish maps American spellings to their British forms.
// Matching is case-insensitive; the advisory quotes the canonical
// lower-case pair.
var americanToBritish = map[string]string{
	"analyze":  "analyse",
	"behavior": "behaviour",
	"catalog":  "catalogue",
	"center":   "centre",
	"color":    "colour",
	"defense":  "defence",
	"favorite": "favourite",
	"gray":     "grey",
	"honor":    "honour",
	"organize": "organise",
}

// britishEnglish flags American spellings in content a tool is about to
// write. Advisory only: it never denies.
type britishEnglish struct {
	words       map[string]*regexp.Regexp // american word -> boundary matcher
	suggestions map[string]string         // american word -> british form
}

// newBritishEnglish builds the handler. Options:
//
//	extra_words: mapping of additional american -> british pairs
func newBritishEnglish(options map[string]any) (hook.Handler, error) {
	h := &britishEnglish{words: make(map[string]*regexp.Regexp, len(americanToBritish))}

	pairs := make(map[string]string, len(americanToBritish))
	for amer, brit := range americanToBritish {
		pairs[amer] = brit
	}
	if extra, ok := options["extra_words"].(map[string]any); ok {
		for amer, brit := range extra {
			if b, ok := brit.(string); ok {
				pairs[amer] = b
			}
		}
	}

	h.suggestions = pairs
	for amer := range pairs {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(amer) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("british_english: compile word %q: %w", amer, err)
		}
		h.words[amer] = re
	}
	return h, nil
}

func (h *britishEnglish) Name() string              { return "british_english" }
func (h *britishEnglish) EventType() hook.EventType { return hook.EventPreToolUse }

func (h *britishEnglish) Description() string {
	return "Flags American spellings in written content and suggests the British form. Advisory only."
}

func (h *britishEnglish) Matches(ev *hook.Event) bool {
	return writtenContent(ev) != ""
}

func (h *britishEnglish) Handle(_ context.Context, ev *hook.Event, _ hook.SessionState) hook.Result {
	content := writtenContent(ev)

	var flagged []string
	for amer, re := range h.words {
		if re.MatchString(content) {
			flagged = append(flagged, amer)
		}
	}
	if len(flagged) == 0 {
		return hook.Allow()
	}

	// One advisory per distinct word, in stable alphabetical order.
	sort.Strings(flagged)
	advisories := make([]string, 0, len(flagged))
	for _, amer := range flagged {
		advisories = append(advisories, fmt.Sprintf("American spelling detected: '%s' → '%s'", amer, h.suggestions[amer]))
	}
	return hook.AllowWithContext(advisories...)
}
