package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SessionLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	// Connection is the postgres DSN. Empty selects the in-memory store.
	Connection string
}

type AuthConfig struct {
	Enabled   bool
	JwtSecret string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "none"
	LLMModel      string
	OllamaBaseURL string
}

// SessionConfig holds the live session options. Durations come from *_MS variables.
type SessionConfig struct {
	HeartbeatInterval    time.Duration
	PongTimeout          time.Duration
	MaxConsecutiveErrors int
	IdleTimeout          time.Duration
	IdleCheckInterval    time.Duration
	MaxRabbitholeDepth   int
	EvaluationTimeout    time.Duration
	SchedulerLookahead   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SessionLogFilePath: getEnv("SESSION_LOG_FILE_PATH", "logs/session.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Session: SessionConfig{
			HeartbeatInterval:    getEnvAsMillis("SESSION_HEARTBEAT_INTERVAL_MS", 30000),
			PongTimeout:          getEnvAsMillis("SESSION_PONG_TIMEOUT_MS", 10000),
			MaxConsecutiveErrors: getEnvAsInt("SESSION_MAX_CONSECUTIVE_ERRORS", 5),
			IdleTimeout:          getEnvAsMillis("SESSION_IDLE_TIMEOUT_MS", 300000),
			IdleCheckInterval:    getEnvAsMillis("SESSION_IDLE_CHECK_INTERVAL_MS", 10000),
			MaxRabbitholeDepth:   getEnvAsInt("SESSION_MAX_RABBITHOLE_DEPTH", 3),
			EvaluationTimeout:    getEnvAsMillis("SESSION_EVALUATION_TIMEOUT_MS", 60000),
			SchedulerLookahead:   getEnvAsMillis("SCHEDULER_LOOKAHEAD_MS", 0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func getEnvAsMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
