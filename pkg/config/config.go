package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Document store: "firestore", "sqlite" or "memory"
	StoreBackend        string
	SQLitePath          string
	GoogleProjectID     string
	FirebaseCredentials string

	// Auth: "firebase", "jwt" or "none"
	AuthMode  string
	JWTSecret string

	// LLM providers
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	MindsDBBaseURL string
	MindsDBAPIKey  string
	MindsDBModel   string
	LLMTimeout     time.Duration
	LLMFallback    string

	// Notifications
	PubSubTopic      string
	PubSubEnabled    bool
	DatabaseURL      string
	ReminderInterval time.Duration
	ReminderWindow   time.Duration

	// Conversation search
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	LinkageWorkers int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		StoreBackend:        getEnv("STORE_BACKEND", "memory"),
		SQLitePath:          getEnv("SQLITE_PATH", "data/pmchat.db"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		AuthMode:            getEnv("AUTH_MODE", "none"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_API_BASE", "https://api.openai.com"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		MindsDBBaseURL:      getEnv("MINDSDB_API_BASE", ""),
		MindsDBAPIKey:       getEnv("MINDSDB_API_KEY", ""),
		MindsDBModel:        getEnv("MINDSDB_MODEL", ""),
		LLMTimeout:          getDuration("LLM_TIMEOUT", 2*time.Minute),
		LLMFallback:         getEnv("LLM_FALLBACK", ""),
		PubSubTopic:         getEnv("PUBSUB_TOPIC", "task-events"),
		PubSubEnabled:       getEnv("PUBSUB_ENABLED", "false") == "true",
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ReminderInterval:    getDuration("REMINDER_INTERVAL", time.Minute),
		ReminderWindow:      getDuration("REMINDER_WINDOW", time.Hour),
		ChromaAPIKey:        getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:        getEnv("CHROMA_TENANT", ""),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", ""),
		LinkageWorkers:      getInt("LINKAGE_WORKERS", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
