package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	OpenAI       OpenAIConfig
	Agent        AgentConfig
	Followup     FollowupConfig
	Notification NotificationConfig
	Redis        RedisConfig
	Logger       LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig locates the flat-file stores.
type StorageConfig struct {
	EventLogPath     string
	OutboxPath       string
	TextLogPath      string
	UsersPath        string
	ConversationsDir string
	KnowledgeDir     string
}

// OpenAIConfig holds language model API settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	TimeoutSeconds int
	Temperature    float64
}

// AgentConfig tunes the policy driver.
type AgentConfig struct {
	MaxToolRounds     int
	FallbackThreshold float64
}

// FollowupConfig tunes the stale-ticket sweeper.
type FollowupConfig struct {
	Enabled        bool
	Interval       time.Duration
	StaleThreshold time.Duration
}

// NotificationConfig holds outbound email addressing.
type NotificationConfig struct {
	SupportAddress string
	EmailFrom      string
}

// RedisConfig holds optional conversation-memory backend settings. An empty
// Addr selects the in-process store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Storage: StorageConfig{
			EventLogPath:     getEnv("STORAGE_EVENT_LOG", "storage/tickets.jsonl"),
			OutboxPath:       getEnv("STORAGE_OUTBOX", "outbox/emails.jsonl"),
			TextLogPath:      getEnv("STORAGE_TEXT_LOG", "storage/logs.jsonl"),
			UsersPath:        getEnv("STORAGE_USERS", "storage/users.json"),
			ConversationsDir: getEnv("STORAGE_CONVERSATIONS_DIR", "storage/conversations"),
			KnowledgeDir:     getEnv("STORAGE_KNOWLEDGE_DIR", "data"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ChatModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			TimeoutSeconds: getEnvAsInt("OPENAI_TIMEOUT_SECONDS", 120),
			Temperature:    getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
		},
		Agent: AgentConfig{
			MaxToolRounds:     getEnvAsInt("AGENT_MAX_TOOL_ROUNDS", 6),
			FallbackThreshold: getEnvAsFloat("AGENT_FALLBACK_THRESHOLD", 0.92),
		},
		Followup: FollowupConfig{
			Enabled:        getEnvAsBool("FOLLOWUP_ENABLED", true),
			Interval:       getEnvAsDuration("FOLLOWUP_INTERVAL", 24*time.Hour),
			StaleThreshold: getEnvAsDuration("FOLLOWUP_STALE_THRESHOLD", 24*time.Hour),
		},
		Notification: NotificationConfig{
			SupportAddress: getEnv("NOTIFY_SUPPORT_ADDRESS", "support@example.com"),
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the configured API call timeout.
func (o OpenAIConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
