package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/logger"
	"golang.org/x/sync/singleflight"
)

const (
	SourceGemini      = "gemini"
	SourceGeminiError = "gemini-error"

	latestInsightsKey = "latest"
)

// ModelClient is the generate-content backend used by the assistant.
type ModelClient interface {
	CallModel(ctx context.Context, turns []Turn, systemPrompt string, mode Mode) (string, error)
}

// SnapshotProvider supplies the system context for prompts.
type SnapshotProvider interface {
	GetSystemSnapshot(ctx context.Context) (*SystemSnapshot, error)
}

type Insight struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Priority        string   `json:"priority"`
	RelatedItems    []string `json:"relatedItems"`
}

type InsightResult struct {
	Summary     string    `json:"summary"`
	Insights    []Insight `json:"insights"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type ChatReply struct {
	Text          string `json:"text"`
	HTML          string `json:"html"`
	HistoryLength int    `json:"historyLength"`
}

// AssistantService runs chat and insight requests through snapshot, prompt, model and renderer.
type AssistantService struct {
	snapshots    SnapshotProvider
	model        ModelClient
	conversation *Conversation
	maxInsights  int

	sendMu       sync.Mutex
	insightCache *cache.Cache
	insightGroup singleflight.Group
	now          func() time.Time
}

func NewAssistantService(snapshots SnapshotProvider, model ModelClient, cfg config.AssistantConfig) *AssistantService {
	interval := cfg.Insights.RefreshInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	maxInsights := cfg.Insights.MaxInsights
	if maxInsights <= 0 {
		maxInsights = 4
	}
	return &AssistantService{
		snapshots:    snapshots,
		model:        model,
		conversation: NewConversation(cfg.MaxHistoryPairs),
		maxInsights:  maxInsights,
		insightCache: cache.New(interval, 2*interval),
		now:          time.Now,
	}
}

// SendChatMessage sends text with the conversation so far. Only one send may be in flight.
func (s *AssistantService) SendChatMessage(ctx context.Context, text string) (ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatReply{}, newAssistantError(ErrEmptyMessage, "Message cannot be empty.", nil)
	}
	if !s.sendMu.TryLock() {
		return ChatReply{}, newAssistantError(ErrConversationBusy, "Please wait for the previous answer.", nil)
	}
	defer s.sendMu.Unlock()

	snapshot, err := s.snapshots.GetSystemSnapshot(ctx)
	if err != nil {
		return ChatReply{}, err
	}
	prompt := BuildPrompt(snapshot, ModeChat)

	s.conversation.AppendUserTurn(text)
	reply, err := s.model.CallModel(ctx, s.conversation.RequestTurns(), prompt, ModeChat)
	if err != nil {
		return ChatReply{}, err
	}
	s.conversation.AppendModelTurn(reply)

	logger.WithAssistant(string(ModeChat)).WithFields(map[string]interface{}{
		"message_length": len(text),
		"reply_length":   len(reply),
		"history":        s.conversation.Len(),
	}).Info("Chat message answered")

	return ChatReply{
		Text:          reply,
		HTML:          RenderMarkdown(reply),
		HistoryLength: s.conversation.Len(),
	}, nil
}

// GetInsights asks the model for insights. Failures come back as a single error insight.
func (s *AssistantService) GetInsights(ctx context.Context) InsightResult {
	result, err := s.generateInsights(ctx)
	if err != nil {
		logger.WithAssistant(string(ModeInsights)).WithError(err).Warn("Insight generation failed")
		return s.insightErrorResult(err)
	}
	return result
}

func (s *AssistantService) generateInsights(ctx context.Context) (InsightResult, error) {
	snapshot, err := s.snapshots.GetSystemSnapshot(ctx)
	if err != nil {
		return InsightResult{}, err
	}

	prompt := BuildPrompt(snapshot, ModeInsights)
	turns := []Turn{{Role: RoleUser, Text: BuildInsightRequest(s.maxInsights)}}

	raw, err := s.model.CallModel(ctx, turns, prompt, ModeInsights)
	if err != nil {
		return InsightResult{}, err
	}

	result, err := parseInsights(raw, s.maxInsights)
	if err != nil {
		return InsightResult{}, err
	}
	result.GeneratedAt = s.now()
	return result, nil
}

// LatestInsights serves the cached result unless forceRefresh is set or it has expired.
func (s *AssistantService) LatestInsights(ctx context.Context, forceRefresh bool) InsightResult {
	if !forceRefresh {
		if v, ok := s.insightCache.Get(latestInsightsKey); ok {
			return v.(InsightResult)
		}
	}
	return s.RefreshInsights(ctx)
}

// RefreshInsights generates insights and caches successful results. Concurrent refreshes share
// one model call.
func (s *AssistantService) RefreshInsights(ctx context.Context) InsightResult {
	v, _, _ := s.insightGroup.Do(latestInsightsKey, func() (interface{}, error) {
		result := s.GetInsights(ctx)
		if result.Source == SourceGemini {
			s.insightCache.Set(latestInsightsKey, result, cache.DefaultExpiration)
		}
		return result, nil
	})
	return v.(InsightResult)
}

func (s *AssistantService) ClearConversation() {
	s.conversation.Clear()
	logger.WithAssistant(string(ModeChat)).Info("Conversation cleared")
}

func (s *AssistantService) History() []Turn {
	return s.conversation.History()
}

func (s *AssistantService) insightErrorResult(err error) InsightResult {
	return InsightResult{
		Summary: "Analysis error",
		Insights: []Insight{{
			Type:            "error",
			Title:           "Failed to generate insights",
			Description:     UserMessage(err),
			DescriptionHTML: RenderMarkdown(UserMessage(err)),
			Priority:        "high",
			RelatedItems:    []string{},
		}},
		Source:      SourceGeminiError,
		GeneratedAt: s.now(),
	}
}

// parseInsights validates the {summary, insights} shape and normalizes every entry.
func parseInsights(raw string, maxInsights int) (InsightResult, error) {
	invalid := func(cause error) error {
		return newAssistantError(ErrInvalidJSON, "The insights response has an unexpected format.", cause)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return InsightResult{}, invalid(err)
	}

	var result InsightResult
	summary, ok := fields["summary"]
	if !ok || json.Unmarshal(summary, &result.Summary) != nil {
		return InsightResult{}, invalid(errors.New("summary is missing or not a string"))
	}
	list, ok := fields["insights"]
	if !ok || json.Unmarshal(list, &result.Insights) != nil || result.Insights == nil {
		return InsightResult{}, invalid(errors.New("insights is missing or not an array"))
	}

	if len(result.Insights) > maxInsights {
		result.Insights = result.Insights[:maxInsights]
	}
	for i := range result.Insights {
		in := &result.Insights[i]
		in.Type = normalizeInsightType(in.Type)
		in.Priority = normalizePriority(in.Priority)
		if strings.TrimSpace(in.Title) == "" {
			in.Title = "Insight"
		}
		if in.RelatedItems == nil {
			in.RelatedItems = []string{}
		}
		in.DescriptionHTML = RenderMarkdown(in.Description)
	}
	result.Source = SourceGemini
	return result, nil
}

func normalizePriority(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "low", "minor":
		return "low"
	case "high", "critical", "major":
		return "high"
	default:
		return "medium"
	}
}

func normalizeInsightType(kind string) string {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "anomaly", "pattern", "recommendation", "info":
		return k
	case "warning", "alert":
		return "anomaly"
	case "suggestion":
		return "recommendation"
	default:
		return "info"
	}
}
