package validator

import (
	"strings"
	"testing"

	"github.com/hooksd/hooksd/internal/hook"
)

func TestValidatePreToolUseValid(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventPreToolUse, map[string]any{
		"tool_name":  "Bash",
		"tool_input": map[string]any{"command": "ls"},
	})
	if details != nil {
		t.Errorf("Validate() = %v, want nil", details)
	}
}

func TestValidatePreToolUseMissingToolName(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventPreToolUse, map[string]any{
		"tool_input": map[string]any{},
	})
	if len(details) == 0 {
		t.Fatal("Validate() = nil, want missing-field detail")
	}
	if !containsDetail(details, "tool_name: required field missing") {
		t.Errorf("details = %v, want tool_name required message", details)
	}
}

func TestValidatePostToolUseMissingResponse(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventPostToolUse, map[string]any{
		"tool_name":  "Write",
		"tool_input": map[string]any{"file_path": "a.txt"},
	})
	if !containsDetail(details, "tool_response: required field missing") {
		t.Errorf("details = %v, want tool_response required message", details)
	}
}

func TestValidateWrongType(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventPreToolUse, map[string]any{
		"tool_name":  42,
		"tool_input": map[string]any{},
	})
	if len(details) == 0 {
		t.Error("Validate() accepted numeric tool_name")
	}
	for _, d := range details {
		if !strings.Contains(d, "tool_name") {
			t.Errorf("detail %q does not reference the failing field", d)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	t.Parallel()

	v := New()
	input := map[string]any{"tool_input": map[string]any{}}

	first := v.Validate(hook.EventPreToolUse, input)
	second := v.Validate(hook.EventPreToolUse, input)
	if len(first) != len(second) {
		t.Fatalf("repeated validation differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("detail %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestValidateNilInput(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventPreToolUse, nil)
	if len(details) == 0 {
		t.Error("Validate(nil) = nil, want required-field details")
	}
}

func TestValidateEventWithoutRequiredFields(t *testing.T) {
	t.Parallel()

	v := New()
	if details := v.Validate(hook.EventSessionStart, map[string]any{}); details != nil {
		t.Errorf("Validate(SessionStart, {}) = %v, want nil", details)
	}
	if details := v.Validate(hook.EventStatus, map[string]any{}); details != nil {
		t.Errorf("Validate(Status, {}) = %v, want nil", details)
	}
}

func TestValidateUserPromptSubmitRequiresPrompt(t *testing.T) {
	t.Parallel()

	v := New()
	details := v.Validate(hook.EventUserPromptSubmit, map[string]any{})
	if !containsDetail(details, "prompt: required field missing") {
		t.Errorf("details = %v, want prompt required message", details)
	}
}

func containsDetail(details []string, want string) bool {
	for _, d := range details {
		if d == want {
			return true
		}
	}
	return false
}
