package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/securelab/backend/internal/config"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) (*GeminiService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gs := NewGeminiService(config.GeminiConfig{
		APIKey:      "test-key",
		APIEndpoint: server.URL + "/v1beta/models/gemini-test:generateContent",
		Temperature: 0.3,
		MaxTokens:   8192,
		Timeout:     5 * time.Second,
		SafetySettings: []config.SafetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		},
	})
	gs.backoff = func(int) time.Duration { return 0 }
	return gs, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestCallModelSendsExpectedPayload(t *testing.T) {
	var captured GenerateContentRequest
	var key, rawQuery string

	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("x-goog-api-key")
		rawQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"admin"}],"role":"model"},"finishReason":"STOP"}]}`)
	})

	turns := []Turn{{Role: RoleUser, Text: "hi"}, {Role: RoleModel, Text: "hello"}, {Role: RoleUser, Text: "status?"}}
	text, err := gs.CallModel(context.Background(), turns, "system prompt", ModeChat)
	if err != nil {
		t.Fatalf("CallModel failed: %v", err)
	}
	if text != "Hello admin" {
		t.Errorf("Expected concatenated text, got %q", text)
	}

	if key != "test-key" {
		t.Errorf("Expected API key header, got %q", key)
	}
	if rawQuery != "" {
		t.Errorf("Expected no query string, got %q", rawQuery)
	}
	if captured.SystemInstruction.Role != "system" || captured.SystemInstruction.Parts[0].Text != "system prompt" {
		t.Errorf("Unexpected system instruction: %+v", captured.SystemInstruction)
	}
	if len(captured.Contents) != 3 || captured.Contents[1].Role != "model" {
		t.Errorf("Unexpected contents: %+v", captured.Contents)
	}
	if captured.GenerationConfig.Temperature != 0.3 || captured.GenerationConfig.MaxOutputTokens != 8192 {
		t.Errorf("Unexpected generation config: %+v", captured.GenerationConfig)
	}
	if len(captured.SafetySettings) != 1 {
		t.Errorf("Expected safety settings to be forwarded, got %+v", captured.SafetySettings)
	}
}

func TestCallModelInsightsUsesLowTemperatureAndExtractsJSON(t *testing.T) {
	var captured GenerateContentRequest
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"`+"```json\\n"+`{\"summary\":\"ok\",\"insights\":[]}`+"\\n```"+`"}]},"finishReason":"STOP"}]}`)
	})

	text, err := gs.CallModel(context.Background(), []Turn{{Role: RoleUser, Text: "go"}}, "p", ModeInsights)
	if err != nil {
		t.Fatalf("CallModel failed: %v", err)
	}
	if text != `{"summary":"ok","insights":[]}` {
		t.Errorf("Expected bare JSON object, got %q", text)
	}
	if captured.GenerationConfig.Temperature != 0.2 {
		t.Errorf("Expected insights temperature 0.2, got %v", captured.GenerationConfig.Temperature)
	}
}

func TestCallModelErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		mode   Mode
		kind   error
	}{
		{
			name:   "finish reason safety",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"partial"}]},"finishReason":"SAFETY","safetyRatings":[{"category":"HARM_CATEGORY_HARASSMENT","probability":"HIGH","blocked":true}]}]}`,
			mode:   ModeChat,
			kind:   ErrSafetyBlocked,
		},
		{
			name:   "prompt blocked",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			mode:   ModeChat,
			kind:   ErrSafetyBlocked,
		},
		{
			name:   "max tokens",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"long"}]},"finishReason":"MAX_TOKENS"}]}`,
			mode:   ModeChat,
			kind:   ErrTruncated,
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			mode:   ModeChat,
			kind:   ErrEmptyResponse,
		},
		{
			name:   "empty text without stop",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[]},"finishReason":"RECITATION"}]}`,
			mode:   ModeChat,
			kind:   ErrEmptyResponse,
		},
		{
			name:   "invalid insights json",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"no json {here"}]},"finishReason":"STOP"}]}`,
			mode:   ModeInsights,
			kind:   ErrInvalidJSON,
		},
		{
			name:   "api error",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			mode:   ModeChat,
			kind:   ErrAPI,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, test.status, test.body)
			})

			text, err := gs.CallModel(context.Background(), []Turn{{Role: RoleUser, Text: "q"}}, "p", test.mode)
			if !errors.Is(err, test.kind) {
				t.Fatalf("Expected %v, got %v", test.kind, err)
			}
			if text != "" {
				t.Errorf("Expected no text on error, got %q", text)
			}
		})
	}
}

func TestCallModelSafetyMessageNamesCategory(t *testing.T) {
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"finishReason":"SAFETY","safetyRatings":[{"category":"HARM_CATEGORY_HATE_SPEECH","probability":"LOW"},{"category":"HARM_CATEGORY_DANGEROUS_CONTENT","probability":"HIGH","blocked":true}]}]}`)
	})

	_, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := UserMessage(err); got != "The answer was blocked by the safety filter (HARM_CATEGORY_DANGEROUS_CONTENT)." {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestCallModelAPIErrorMessage(t *testing.T) {
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"Permission denied"}}`)
	})

	_, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if got := UserMessage(err); got != "Gemini API error: Permission denied" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestCallModelEmptyTextWithStop(t *testing.T) {
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`)
	})

	text, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if err != nil {
		t.Fatalf("Expected no error for an empty STOP answer, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
}

func TestCallModelRequiresConfig(t *testing.T) {
	gs := NewGeminiService(config.GeminiConfig{APIEndpoint: "http://localhost"})
	_, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestCallModelTimeout(t *testing.T) {
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	gs.cfg.Timeout = 50 * time.Millisecond

	_, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestCallModelRetryPolicy(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		maxRetries    int
		expectedCalls int32
	}{
		{"no retries by default", http.StatusServiceUnavailable, 0, 1},
		{"retries server errors", http.StatusServiceUnavailable, 2, 3},
		{"retries rate limits", http.StatusTooManyRequests, 1, 2},
		{"never retries client errors", http.StatusBadRequest, 3, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var calls atomic.Int32
			gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, test.status, `{"error":{"message":"unavailable"}}`)
			})
			gs.cfg.MaxRetries = test.maxRetries

			if _, err := gs.CallModel(context.Background(), nil, "p", ModeChat); !errors.Is(err, ErrAPI) {
				t.Fatalf("Expected ErrAPI, got %v", err)
			}
			if got := calls.Load(); got != test.expectedCalls {
				t.Errorf("Expected %d calls, got %d", test.expectedCalls, got)
			}
		})
	}
}

func TestCallModelRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`)
	})
	gs.cfg.MaxRetries = 1

	text, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if err != nil || text != "ok" {
		t.Fatalf("Expected recovery on retry, got %q, %v", text, err)
	}
	if got := len(gs.GetAPICalls()); got != 2 {
		t.Errorf("Expected both attempts to be tracked, got %d", got)
	}
}

func TestAPICallLogIsBounded(t *testing.T) {
	gs := NewGeminiService(config.GeminiConfig{})
	for i := 0; i < 150; i++ {
		gs.addAPICall(GeminiAPICall{Attempt: i})
	}

	calls := gs.GetAPICalls()
	if len(calls) != 100 {
		t.Fatalf("Expected 100 tracked calls, got %d", len(calls))
	}
	if calls[0].Attempt != 50 || calls[99].Attempt != 149 {
		t.Errorf("Expected the oldest calls to be evicted, got first=%d last=%d", calls[0].Attempt, calls[99].Attempt)
	}

	gs.ClearAPICalls()
	if len(gs.GetAPICalls()) != 0 {
		t.Error("Expected empty call log after clear")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"Here you go:\n```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"no braces", "", false},
		{"} reversed {", "", false},
		{`{"a":}`, "", false},
	}

	for _, test := range tests {
		got, ok := extractJSONObject(test.input)
		if ok != test.ok || got != test.expected {
			t.Errorf("For input %q, expected (%q, %v), got (%q, %v)", test.input, test.expected, test.ok, got, ok)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	var path, key string
	gs, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		writeJSON(w, http.StatusOK, `{"name":"models/gemini-test"}`)
	})

	if err := gs.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if path != "/v1beta/models/gemini-test" {
		t.Errorf("Expected model resource path, got %q", path)
	}
	if key != "test-key" {
		t.Errorf("Expected API key header, got %q", key)
	}
}

func TestTransportErrorsDoNotExposeAPIKey(t *testing.T) {
	const secret = "SECRET123"
	gs, server := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()
	gs.cfg.APIKey = secret

	_, err := gs.CallModel(context.Background(), nil, "p", ModeChat)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
	if strings.Contains(err.Error(), secret) || strings.Contains(UserMessage(err), secret) {
		t.Errorf("CallModel error exposes the API key: %v", err)
	}

	calls := gs.GetAPICalls()
	if len(calls) == 0 {
		t.Fatal("Expected failed calls to be recorded")
	}
	for _, call := range calls {
		if strings.Contains(call.Error, secret) || strings.Contains(call.Endpoint, secret) {
			t.Errorf("Call log exposes the API key: %+v", call)
		}
	}

	err = gs.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("Expected CheckHealth to fail against a closed server")
	}
	if strings.Contains(err.Error(), secret) {
		t.Errorf("Health error exposes the API key: %v", err)
	}
}
