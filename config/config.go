package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	// MongoDB.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisDedupDB  int    `mapstructure:"REDIS_DEDUP_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Gemini.
	GeminiAPIKey   string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel    string `mapstructure:"GEMINI_MODEL"`
	EmbeddingModel string `mapstructure:"EMBEDDING_MODEL"`

	// Qdrant knowledge base.
	QdrantURL         string  `mapstructure:"QDRANT_URL"`
	QdrantAPIKey      string  `mapstructure:"QDRANT_API_KEY"`
	QdrantCollection  string  `mapstructure:"QDRANT_COLLECTION"`
	RetrievalTopK     int     `mapstructure:"RETRIEVAL_TOP_K"`
	RetrievalMinScore float64 `mapstructure:"RETRIEVAL_MIN_SCORE"`

	// YouClients booking API.
	YouclientsBaseURL   string `mapstructure:"YOUCLIENTS_BASE_URL"`
	YouclientsAPIKey    string `mapstructure:"YOUCLIENTS_API_KEY"`
	YouclientsCompanyID string `mapstructure:"YOUCLIENTS_COMPANY_ID"`
	CatalogCacheTTLMin  int    `mapstructure:"CATALOG_CACHE_TTL_MIN"`

	// Dialog engine.
	SessionTimeoutHours int `mapstructure:"SESSION_TIMEOUT_HOURS"`
	HistoryLimit        int `mapstructure:"HISTORY_LIMIT"`
	TurnQueueDepth      int `mapstructure:"TURN_QUEUE_DEPTH"`
	DedupWindowSec      int `mapstructure:"DEDUP_WINDOW_SEC"`

	// Per-collaborator timeouts (seconds).
	ModelTimeoutSec     int `mapstructure:"MODEL_TIMEOUT_SEC"`
	RetrievalTimeoutSec int `mapstructure:"RETRIEVAL_TIMEOUT_SEC"`
	BookingTimeoutSec   int `mapstructure:"BOOKING_TIMEOUT_SEC"`

	// Booking retry policy.
	BookingMaxAttempts int `mapstructure:"BOOKING_MAX_ATTEMPTS"`
	BookingBackoffMS   int `mapstructure:"BOOKING_BACKOFF_MS"`

	// Reminders.
	RemindAfterDays int    `mapstructure:"REMIND_AFTER_DAYS"`
	TransportURL    string `mapstructure:"TRANSPORT_URL"`

	// Admin views.
	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "clientera")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_DEDUP_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("EMBEDDING_MODEL", "models/text-embedding-004")
	viper.SetDefault("QDRANT_URL", "http://localhost:6333")
	viper.SetDefault("QDRANT_COLLECTION", "knowledge_base")
	viper.SetDefault("RETRIEVAL_TOP_K", 3)
	viper.SetDefault("RETRIEVAL_MIN_SCORE", 0.55)
	viper.SetDefault("YOUCLIENTS_BASE_URL", "https://api.youclients.ru/api/v1")
	viper.SetDefault("CATALOG_CACHE_TTL_MIN", 15)
	viper.SetDefault("SESSION_TIMEOUT_HOURS", 6)
	viper.SetDefault("HISTORY_LIMIT", 20)
	viper.SetDefault("TURN_QUEUE_DEPTH", 4)
	viper.SetDefault("DEDUP_WINDOW_SEC", 600)
	viper.SetDefault("MODEL_TIMEOUT_SEC", 30)
	viper.SetDefault("RETRIEVAL_TIMEOUT_SEC", 10)
	viper.SetDefault("BOOKING_TIMEOUT_SEC", 15)
	viper.SetDefault("BOOKING_MAX_ATTEMPTS", 4)
	viper.SetDefault("BOOKING_BACKOFF_MS", 500)
	viper.SetDefault("REMIND_AFTER_DAYS", 21)
	viper.SetDefault("ADMIN_USERNAME", "admin")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// SessionTimeout returns the idle duration after which a session expires.
func SessionTimeout() time.Duration {
	return time.Duration(AppConfig.SessionTimeoutHours) * time.Hour
}
