package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Retrieval backends
const (
	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Qdrant     QdrantConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Retrieval  RetrievalConfig
	Ingest     IngestConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // Model for extraction, intent detection and recommendations
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// QdrantConfig holds Qdrant connection configuration
type QdrantConfig struct {
	Host       string
	Port       int // gRPC port
	APIKey     string
	UseTLS     bool
	Collection string
}

// PostgreSQLConfig holds PostgreSQL database configuration.
// Postgres is optional unless RETRIEVAL_BACKEND=pgvector; it also stores search logs.
type PostgreSQLConfig struct {
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// RedisConfig holds the embedding cache configuration
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	TTLSeconds int
	Enabled    bool
}

// RetrievalConfig holds retrieval and ranking parameters
type RetrievalConfig struct {
	Backend            string
	DefaultTopK        int
	MaxTopK            int
	BaseThreshold      float64
	MinThreshold       float64
	ThresholdIncrement float64
	EnumerateBatchSize int
}

// IngestConfig holds catalog ingestion parameters
type IngestConfig struct {
	File              string
	Concurrency       int
	RequestsPerSecond float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:9000"}),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.7),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1000),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Qdrant: QdrantConfig{
			Host:       getEnv("QDRANT_HOST", "localhost"),
			Port:       getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			UseTLS:     getEnvAsBool("QDRANT_USE_TLS", false),
			Collection: getEnv("QDRANT_COLLECTION", "cars"),
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "carfinder"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			Prefix:     getEnv("REDIS_PREFIX", "carfinder:"),
			TTLSeconds: getEnvAsInt("REDIS_EMBEDDING_TTL", 86400),
		},
		Retrieval: RetrievalConfig{
			Backend:            strings.ToLower(getEnv("RETRIEVAL_BACKEND", BackendQdrant)),
			DefaultTopK:        getEnvAsInt("RAG_DEFAULT_TOP_K", 5),
			MaxTopK:            getEnvAsInt("RAG_MAX_TOP_K", 20),
			BaseThreshold:      getEnvAsFloat("RAG_BASE_THRESHOLD", 0.5),
			MinThreshold:       getEnvAsFloat("RAG_MIN_THRESHOLD", 0.3),
			ThresholdIncrement: getEnvAsFloat("RAG_THRESHOLD_INCREMENT", 0.05),
			EnumerateBatchSize: getEnvAsInt("RAG_ENUMERATE_BATCH", 100),
		},
		Ingest: IngestConfig{
			File:              getEnv("INGEST_FILE", "dataset/cars.json"),
			Concurrency:       getEnvAsInt("INGEST_CONCURRENCY", 4),
			RequestsPerSecond: getEnvAsFloat("INGEST_RPS", 5),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	cfg.PostgreSQL.Enabled = cfg.PostgreSQL.DSN != "" || cfg.PostgreSQL.Host != ""
	cfg.Redis.Enabled = cfg.Redis.Addr != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Retrieval.Backend {
	case BackendQdrant:
	case BackendPGVector:
		if !c.PostgreSQL.Enabled {
			return fmt.Errorf("RETRIEVAL_BACKEND=pgvector requires DATABASE_URL or PG_HOST")
		}
	default:
		return fmt.Errorf("unknown RETRIEVAL_BACKEND %q (expected %q or %q)", c.Retrieval.Backend, BackendQdrant, BackendPGVector)
	}

	r := c.Retrieval
	if r.MinThreshold < 0 || r.BaseThreshold > 1 || r.MinThreshold > r.BaseThreshold {
		return fmt.Errorf("thresholds must satisfy 0 <= RAG_MIN_THRESHOLD (%.2f) <= RAG_BASE_THRESHOLD (%.2f) <= 1", r.MinThreshold, r.BaseThreshold)
	}
	if r.ThresholdIncrement < 0 {
		return fmt.Errorf("RAG_THRESHOLD_INCREMENT must not be negative")
	}
	if r.DefaultTopK < 1 || r.DefaultTopK > r.MaxTopK {
		return fmt.Errorf("RAG_DEFAULT_TOP_K must be between 1 and RAG_MAX_TOP_K (%d)", r.MaxTopK)
	}
	if r.EnumerateBatchSize <= 0 {
		return fmt.Errorf("RAG_ENUMERATE_BATCH must be positive")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
