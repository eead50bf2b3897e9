package services

import (
	"errors"
)

// Error kinds surfaced by the assistant pipeline. Match them with errors.Is.
var (
	ErrDataSource       = errors.New("data source unavailable")
	ErrConfig           = errors.New("assistant not configured")
	ErrTimeout          = errors.New("model request timed out")
	ErrSafetyBlocked    = errors.New("blocked by safety filter")
	ErrTruncated        = errors.New("response truncated")
	ErrEmptyResponse    = errors.New("empty model response")
	ErrInvalidJSON      = errors.New("invalid JSON in model response")
	ErrAPI              = errors.New("model API error")
	ErrTransport        = errors.New("model transport error")
	ErrEmptyMessage     = errors.New("empty message")
	ErrConversationBusy = errors.New("conversation busy")
)

// AssistantError pairs an error kind with the message shown to the operator.
type AssistantError struct {
	Kind       error
	Message    string
	StatusCode int
	Err        error
}

func (e *AssistantError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *AssistantError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newAssistantError(kind error, message string, cause error) *AssistantError {
	return &AssistantError{Kind: kind, Message: message, Err: cause}
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	var ae *AssistantError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	if err == nil {
		return ""
	}
	return "Unknown error while contacting the assistant."
}

// ErrorKind names the kind of err for metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDataSource):
		return "data_source"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrSafetyBlocked):
		return "safety"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	case errors.Is(err, ErrAPI):
		return "api"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrConversationBusy):
		return "busy"
	default:
		return "error"
	}
}
