package hook

import "testing"

func TestValidEventTypes(t *testing.T) {
	t.Parallel()

	events := ValidEventTypes()
	if len(events) != 11 {
		t.Errorf("ValidEventTypes() returned %d events, want 11", len(events))
	}

	expected := map[EventType]bool{
		EventPreToolUse:        true,
		EventPostToolUse:       true,
		EventSessionStart:      true,
		EventSessionEnd:        true,
		EventStop:              true,
		EventSubagentStop:      true,
		EventPreCompact:        true,
		EventUserPromptSubmit:  true,
		EventPermissionRequest: true,
		EventNotification:      true,
		EventStatus:            true,
	}

	for _, et := range events {
		if !expected[et] {
			t.Errorf("unexpected event type: %q", et)
		}
	}
}

func TestIsValidEventType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event EventType
		want  bool
	}{
		{"PreToolUse is valid", EventPreToolUse, true},
		{"PostToolUse is valid", EventPostToolUse, true},
		{"Status is valid", EventStatus, true},
		{"empty string is invalid", EventType(""), false},
		{"unknown event is invalid", EventType("UnknownEvent"), false},
		{"case-sensitive", EventType("pretooluse"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidEventType(tt.event); got != tt.want {
				t.Errorf("IsValidEventType(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestResultConstructors(t *testing.T) {
	t.Parallel()

	if r := Allow(); r.Decision != DecisionAllow || r.Reason != "" || len(r.Context) != 0 {
		t.Errorf("Allow() = %+v", r)
	}
	if r := Deny("why"); r.Decision != DecisionDeny || r.Reason != "why" {
		t.Errorf("Deny() = %+v", r)
	}
	if r := Ask("confirm"); r.Decision != DecisionAsk || r.Reason != "confirm" {
		t.Errorf("Ask() = %+v", r)
	}
	if r := AllowWithContext("a", "b"); len(r.Context) != 2 {
		t.Errorf("AllowWithContext() context = %v", r.Context)
	}
}
