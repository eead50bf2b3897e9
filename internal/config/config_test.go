package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Assistant.CacheTTL != 60*time.Second {
		t.Errorf("Expected cache TTL 60s, got %v", cfg.Assistant.CacheTTL)
	}
	if cfg.Assistant.Limits.Users != 150 || cfg.Assistant.Limits.Logs != 300 || cfg.Assistant.Limits.LogDays != 7 {
		t.Errorf("Unexpected default limits: %+v", cfg.Assistant.Limits)
	}
	if cfg.Assistant.MaxHistoryPairs != 10 {
		t.Errorf("Expected 10 history pairs, got %d", cfg.Assistant.MaxHistoryPairs)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.Gemini.Timeout)
	}
	if cfg.Gemini.MaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", cfg.Gemini.MaxRetries)
	}
	if len(cfg.Gemini.SafetySettings) != 4 {
		t.Errorf("Expected 4 safety settings, got %d", len(cfg.Gemini.SafetySettings))
	}
	if cfg.Assistant.Insights.RefreshInterval != 15*time.Minute {
		t.Errorf("Expected 15m refresh interval, got %v", cfg.Assistant.Insights.RefreshInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ASSISTANT_CACHE_TTL_SECONDS", "5")
	t.Setenv("GEMINI_TEMPERATURE", "0.7")
	t.Setenv("GEMINI_SAFETY_THRESHOLD", "BLOCK_ONLY_HIGH")
	t.Setenv("INSIGHTS_REFRESH_INTERVAL", "120")
	t.Setenv("CHAT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Assistant.CacheTTL != 5*time.Second {
		t.Errorf("Expected cache TTL 5s, got %v", cfg.Assistant.CacheTTL)
	}
	if cfg.Gemini.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", cfg.Gemini.Temperature)
	}
	for _, s := range cfg.Gemini.SafetySettings {
		if s.Threshold != "BLOCK_ONLY_HIGH" {
			t.Errorf("Expected BLOCK_ONLY_HIGH for %s, got %s", s.Category, s.Threshold)
		}
	}
	if cfg.Assistant.Insights.RefreshInterval != 2*time.Minute {
		t.Errorf("Expected 2m refresh interval, got %v", cfg.Assistant.Insights.RefreshInterval)
	}
	if cfg.Assistant.Chat.Enabled {
		t.Error("Expected chat to be disabled")
	}
}

func TestLoadRejectsBadHistoryBound(t *testing.T) {
	t.Setenv("ASSISTANT_MAX_HISTORY_PAIRS", "0")
	if _, err := Load(); err == nil {
		t.Error("Expected error for zero history pairs")
	}
}

func TestLoadJWTSecretRequirement(t *testing.T) {
	tests := []struct {
		env     string
		secret  string
		wantErr bool
	}{
		{"local", "", false},
		{"production", "", true},
		{"staging", "", true},
		{"production", "s3cret", false},
	}

	for _, test := range tests {
		t.Run(test.env+"/"+test.secret, func(t *testing.T) {
			t.Setenv("ENV", test.env)
			t.Setenv("JWT_SECRET", test.secret)

			cfg, err := Load()
			if test.wantErr {
				if err == nil {
					t.Errorf("Expected error for ENV=%s without JWT_SECRET", test.env)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.JWTSecret != test.secret {
				t.Errorf("Expected secret %q, got %q", test.secret, cfg.JWTSecret)
			}
		})
	}
}
