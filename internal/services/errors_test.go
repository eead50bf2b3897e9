package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestAssistantErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("chat failed: %w", newAssistantError(ErrTransport, "Could not reach the API.", cause))

	if !errors.Is(err, ErrTransport) {
		t.Error("Expected error to match its kind")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to match its cause")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("Did not expect error to match another kind")
	}
	if got := UserMessage(err); got != "Could not reach the API." {
		t.Errorf("Unexpected user message %q", got)
	}
}

func TestUserMessageFallbacks(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("Expected empty message for nil, got %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "Unknown error while contacting the assistant." {
		t.Errorf("Unexpected fallback message %q", got)
	}
	if got := UserMessage(&AssistantError{Kind: ErrTruncated}); got != ErrTruncated.Error() {
		t.Errorf("Expected kind text, got %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "ok"},
		{newAssistantError(ErrSafetyBlocked, "", nil), "safety"},
		{newAssistantError(ErrInvalidJSON, "", nil), "invalid_json"},
		{newAssistantError(ErrConversationBusy, "", nil), "busy"},
		{errors.New("other"), "error"},
	}
	for _, test := range tests {
		if got := ErrorKind(test.err); got != test.expected {
			t.Errorf("For %v, expected %q, got %q", test.err, test.expected, got)
		}
	}
}
