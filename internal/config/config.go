package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SafetySetting maps a harm category to the block threshold sent with every generate call.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type GeminiConfig struct {
	APIKey         string
	APIEndpoint    string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MaxRetries     int
	SafetySettings []SafetySetting
}

// DataLimits caps how many records of each collection go into an assistant snapshot.
type DataLimits struct {
	Users   int `json:"users"`
	Doors   int `json:"doors"`
	Devices int `json:"devices"`
	Logs    int `json:"logs"`
	LogDays int `json:"logDays"`
}

type ChatConfig struct {
	Enabled         bool `json:"enabled"`
	InitiallyOpen   bool `json:"initiallyOpen"`
	AutoInitialize  bool `json:"autoInitialize"`
	InitialDelayMs  int  `json:"initialDelay"`
	MobileMinimized bool `json:"mobileMinimized"`
}

type InsightsConfig struct {
	AutoRefresh     bool          `json:"autoRefresh"`
	RefreshInterval time.Duration `json:"-"`
	MaxInsights     int           `json:"maxInsights"`
}

type AssistantConfig struct {
	CacheTTL        time.Duration
	Limits          DataLimits
	MaxHistoryPairs int
	Chat            ChatConfig
	Insights        InsightsConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	Port       string
	Env        string
	GinMode    string
	CORSOrigin string
	JWTSecret  string
	LogLevel   string
	LogFile    string

	Database  DatabaseConfig
	Gemini    GeminiConfig
	Assistant AssistantConfig
}

// Load reads the configuration from the environment. Call godotenv.Load first if a .env file
// should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "local"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		LogLevel:   getEnv("LOG_LEVEL", "INFO"),
		LogFile:    os.Getenv("LOG_FILE"),

		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "securelab"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "securelab"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			APIEndpoint: getEnv("GEMINI_API_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:generateContent"),
			Temperature: getEnvFloat("GEMINI_TEMPERATURE", 0.3),
			MaxTokens:   getEnvInt("GEMINI_MAX_TOKENS", 8192),
			Timeout:     time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 60)) * time.Second,
			MaxRetries:  getEnvInt("GEMINI_MAX_RETRIES", 0),
		},

		Assistant: AssistantConfig{
			CacheTTL: time.Duration(getEnvInt("ASSISTANT_CACHE_TTL_SECONDS", 60)) * time.Second,
			Limits: DataLimits{
				Users:   getEnvInt("ASSISTANT_LIMIT_USERS", 150),
				Doors:   getEnvInt("ASSISTANT_LIMIT_DOORS", 100),
				Devices: getEnvInt("ASSISTANT_LIMIT_DEVICES", 100),
				Logs:    getEnvInt("ASSISTANT_LIMIT_LOGS", 300),
				LogDays: getEnvInt("ASSISTANT_LOG_DAYS", 7),
			},
			MaxHistoryPairs: getEnvInt("ASSISTANT_MAX_HISTORY_PAIRS", 10),
			Chat: ChatConfig{
				Enabled:         getEnvBool("CHAT_ENABLED", true),
				InitiallyOpen:   getEnvBool("CHAT_INITIALLY_OPEN", false),
				AutoInitialize:  getEnvBool("CHAT_AUTO_INITIALIZE", true),
				InitialDelayMs:  getEnvInt("CHAT_INITIAL_DELAY_MS", 1500),
				MobileMinimized: getEnvBool("CHAT_MOBILE_MINIMIZED", true),
			},
			Insights: InsightsConfig{
				AutoRefresh:     getEnvBool("INSIGHTS_AUTO_REFRESH", true),
				RefreshInterval: getEnvDuration("INSIGHTS_REFRESH_INTERVAL", 15*time.Minute),
				MaxInsights:     getEnvInt("INSIGHTS_MAX", 4),
			},
		},
	}

	threshold := getEnv("GEMINI_SAFETY_THRESHOLD", "BLOCK_MEDIUM_AND_ABOVE")
	for _, category := range harmCategories {
		cfg.Gemini.SafetySettings = append(cfg.Gemini.SafetySettings, SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}

	if cfg.JWTSecret == "" && cfg.Env != "local" {
		return nil, fmt.Errorf("JWT_SECRET is required when ENV is %q", cfg.Env)
	}
	if cfg.Assistant.MaxHistoryPairs <= 0 {
		return nil, fmt.Errorf("ASSISTANT_MAX_HISTORY_PAIRS must be positive, got %d", cfg.Assistant.MaxHistoryPairs)
	}
	if cfg.Assistant.Insights.RefreshInterval <= 0 {
		return nil, fmt.Errorf("INSIGHTS_REFRESH_INTERVAL must be positive")
	}

	return cfg, nil
}

// DSN builds the libpq-style connection string used by both postgres drivers.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
