package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/metrics"
)

const (
	insightsTemperature = 0.2
	maxTrackedCalls     = 100

	// apiKeyHeader carries the API key. Request URLs never include it.
	apiKeyHeader = "x-goog-api-key"
)

type GeminiService struct {
	cfg    config.GeminiConfig
	client *http.Client

	apiCalls  []GeminiAPICall
	callMutex sync.RWMutex

	// backoff returns the wait before retry number attempt (1-based).
	backoff func(attempt int) time.Duration
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type GenerateContentRequest struct {
	SystemInstruction geminiContent          `json:"systemInstruction"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  generationConfig       `json:"generationConfig"`
	SafetySettings    []config.SafetySetting `json:"safetySettings"`
}

type safetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

type candidate struct {
	Content       geminiContent  `json:"content"`
	FinishReason  string         `json:"finishReason"`
	SafetyRatings []safetyRating `json:"safetyRatings"`
}

type promptFeedback struct {
	BlockReason   string         `json:"blockReason"`
	SafetyRatings []safetyRating `json:"safetyRatings"`
}

type GenerateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiAPICall records one generate-content request for the admin call log.
type GeminiAPICall struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Endpoint  string                 `json:"endpoint"`
	Mode      Mode                   `json:"mode"`
	Attempt   int                    `json:"attempt"`
	Payload   map[string]interface{} `json:"payload"`
	Status    int                    `json:"status"`
	Duration  time.Duration          `json:"duration"`
	Response  string                 `json:"response,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

func NewGeminiService(cfg config.GeminiConfig) *GeminiService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	return &GeminiService{
		cfg:      cfg,
		client:   &http.Client{},
		apiCalls: make([]GeminiAPICall, 0),
		backoff:  jitteredBackoff,
	}
}

// Configured reports whether an API key and endpoint are set.
func (gs *GeminiService) Configured() bool {
	return gs.cfg.APIKey != "" && gs.cfg.APIEndpoint != ""
}

// GetAPICalls returns the tracked calls, oldest first
func (gs *GeminiService) GetAPICalls() []GeminiAPICall {
	gs.callMutex.RLock()
	defer gs.callMutex.RUnlock()

	calls := make([]GeminiAPICall, len(gs.apiCalls))
	copy(calls, gs.apiCalls)
	return calls
}

// ClearAPICalls clears the API call history
func (gs *GeminiService) ClearAPICalls() {
	gs.callMutex.Lock()
	defer gs.callMutex.Unlock()
	gs.apiCalls = make([]GeminiAPICall, 0)
}

func (gs *GeminiService) addAPICall(call GeminiAPICall) {
	gs.callMutex.Lock()
	defer gs.callMutex.Unlock()

	if len(gs.apiCalls) >= maxTrackedCalls {
		gs.apiCalls = gs.apiCalls[1:]
	}
	gs.apiCalls = append(gs.apiCalls, call)
}

// CallModel sends the conversation and system prompt to the generate-content endpoint and
// returns the model text. In insights mode the text is reduced to its outermost JSON object.
func (gs *GeminiService) CallModel(ctx context.Context, turns []Turn, systemPrompt string, mode Mode) (string, error) {
	if !gs.Configured() {
		return "", newAssistantError(ErrConfig, "Gemini API key or endpoint is not configured.", nil)
	}

	temperature := gs.cfg.Temperature
	if mode == ModeInsights {
		temperature = insightsTemperature
	}

	request := GenerateContentRequest{
		SystemInstruction: geminiContent{
			Role:  "system",
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		Contents: make([]geminiContent, 0, len(turns)),
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: gs.cfg.MaxTokens,
		},
		SafetySettings: gs.cfg.SafetySettings,
	}
	for _, t := range turns {
		request.Contents = append(request.Contents, geminiContent{
			Role:  string(t.Role),
			Parts: []geminiPart{{Text: t.Text}},
		})
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	payload := map[string]interface{}{
		"turns":         len(turns),
		"prompt_length": len(systemPrompt),
		"temperature":   temperature,
	}

	start := time.Now()
	var resp *GenerateContentResponse
	for attempt := 1; ; attempt++ {
		resp, err = gs.send(ctx, body, mode, attempt, payload)
		if err == nil || attempt > gs.cfg.MaxRetries || !retryable(err) {
			break
		}

		wait := gs.backoff(attempt)
		logger.WithAssistant(string(mode)).WithFields(map[string]interface{}{
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("Gemini call failed, retrying")

		select {
		case <-ctx.Done():
			err = classifyTransportError(ctx.Err())
		case <-time.After(wait):
			continue
		}
		break
	}

	var text string
	if err == nil {
		text, err = interpretResponse(resp, mode)
	}

	metrics.ModelLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	metrics.ModelCalls.WithLabelValues(string(mode), ErrorKind(err)).Inc()

	if err != nil {
		logger.WithAssistant(string(mode)).WithError(err).Error("Gemini call failed")
		return "", err
	}
	return text, nil
}

// send performs one HTTP attempt and records it in the call log.
func (gs *GeminiService) send(ctx context.Context, body []byte, mode Mode, attempt int, payload map[string]interface{}) (*GenerateContentResponse, error) {
	call := GeminiAPICall{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Endpoint:  gs.cfg.APIEndpoint,
		Mode:      mode,
		Attempt:   attempt,
		Payload:   payload,
	}
	defer func() {
		call.Duration = time.Since(call.Timestamp)
		gs.addAPICall(call)
	}()

	ctx, cancel := context.WithTimeout(ctx, gs.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gs.cfg.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		call.Error = fmt.Sprintf("failed to create request: %v", err)
		return nil, newAssistantError(ErrConfig, "Gemini API endpoint is invalid.", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, gs.cfg.APIKey)

	logger.WithAssistant(string(mode)).WithFields(map[string]interface{}{
		"endpoint":      gs.cfg.APIEndpoint,
		"attempt":       attempt,
		"request_bytes": len(body),
	}).Debug("Sending Gemini request")

	httpResp, err := gs.client.Do(req)
	if err != nil {
		call.Error = fmt.Sprintf("HTTP request failed: %v", err)
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()
	call.Status = httpResp.StatusCode

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		call.Error = fmt.Sprintf("failed to read response: %v", err)
		return nil, classifyTransportError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		message := httpResp.Status
		var apiErr apiErrorBody
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		call.Error = fmt.Sprintf("Gemini API returned status %d: %s", httpResp.StatusCode, message)
		ae := newAssistantError(ErrAPI, fmt.Sprintf("Gemini API error: %s", message), nil)
		ae.StatusCode = httpResp.StatusCode
		return nil, ae
	}

	var resp GenerateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		call.Error = fmt.Sprintf("failed to decode response: %v", err)
		return nil, newAssistantError(ErrAPI, "Gemini API returned an unreadable response.", err)
	}
	call.Response = string(respBody)
	return &resp, nil
}

// interpretResponse applies the block and finish-reason checks to a decoded response.
func interpretResponse(resp *GenerateContentResponse, mode Mode) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", newAssistantError(ErrSafetyBlocked,
			fmt.Sprintf("Your request was blocked by the safety filter (%s).", resp.PromptFeedback.BlockReason), nil)
	}
	if len(resp.Candidates) == 0 {
		return "", newAssistantError(ErrEmptyResponse, "Gemini returned no answer.", nil)
	}

	c := resp.Candidates[0]
	switch c.FinishReason {
	case "SAFETY":
		category := "unknown"
		for _, r := range c.SafetyRatings {
			if r.Blocked {
				category = r.Category
				break
			}
		}
		return "", newAssistantError(ErrSafetyBlocked,
			fmt.Sprintf("The answer was blocked by the safety filter (%s).", category), nil)
	case "MAX_TOKENS":
		return "", newAssistantError(ErrTruncated, "The answer exceeded the maximum length and was truncated.", nil)
	}

	var parts []string
	for _, p := range c.Content.Parts {
		parts = append(parts, p.Text)
	}
	text := strings.Join(parts, "")

	if text == "" && c.FinishReason != "STOP" {
		return "", newAssistantError(ErrEmptyResponse,
			fmt.Sprintf("Gemini returned an empty answer (finish reason: %s).", finishReasonOrUnknown(c.FinishReason)), nil)
	}

	if mode == ModeInsights {
		obj, ok := extractJSONObject(text)
		if !ok {
			return "", newAssistantError(ErrInvalidJSON, "The insights response was not valid JSON.", nil)
		}
		return obj, nil
	}
	return text, nil
}

// extractJSONObject returns the span from the first '{' to the last '}' if it is valid JSON.
func extractJSONObject(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first < 0 || last < first {
		return "", false
	}
	candidate := text[first : last+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// CheckHealth fetches the model resource the endpoint points at.
func (gs *GeminiService) CheckHealth(ctx context.Context) error {
	if !gs.Configured() {
		return newAssistantError(ErrConfig, "Gemini API key or endpoint is not configured.", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := strings.TrimSuffix(gs.cfg.APIEndpoint, ":generateContent")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	req.Header.Set(apiKeyHeader, gs.cfg.APIKey)
	resp, err := gs.client.Do(req)
	if err != nil {
		return fmt.Errorf("Gemini API not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Gemini API returned status %d", resp.StatusCode)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newAssistantError(ErrTimeout, "The request to Gemini timed out. Please try again.", err)
	}
	return newAssistantError(ErrTransport, "Could not reach the Gemini API. Check the network connection.", err)
}

// retryable limits retries to network failures and 429/5xx responses.
func retryable(err error) bool {
	if errors.Is(err, ErrTransport) {
		return true
	}
	var ae *AssistantError
	if errors.As(err, &ae) && errors.Is(ae.Kind, ErrAPI) {
		return ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode >= 500
	}
	return false
}

func jitteredBackoff(attempt int) time.Duration {
	base := time.Duration(500*(1<<(attempt-1))) * time.Millisecond
	return base + time.Duration(rand.Int63n(int64(250*time.Millisecond)))
}

func finishReasonOrUnknown(reason string) string {
	if reason == "" {
		return "unknown"
	}
	return reason
}
