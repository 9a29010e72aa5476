package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	LLM        LLMConfig
	OCR        OCRConfig
	Search     SearchConfig
	Feedback   FeedbackConfig
	Extraction ExtractionConfig
}

// DatabaseConfig holds taxonomy database configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// LLMConfig holds hosted-model configuration for both tiers.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	FastModel   string
	VisionModel string
	Temperature float32
	Timeout     time.Duration
}

// OCRConfig holds the structured-table extraction service endpoint.
type OCRConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// SearchConfig holds optional web-search tool credentials. The tool is
// silently disabled when APIKey is empty.
type SearchConfig struct {
	APIKey   string
	Endpoint string
}

// FeedbackConfig holds the correction store location.
type FeedbackConfig struct {
	DBPath string
}

// ExtractionConfig holds batch enrichment knobs.
type ExtractionConfig struct {
	GroupSize  int
	GroupDelay time.Duration
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			FastModel:   getEnv("OPENAI_FAST_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		OCR: OCRConfig{
			Endpoint: getEnv("TABLE_EXTRACT_URL", ""),
			APIKey:   getEnv("TABLE_EXTRACT_API_KEY", ""),
			Timeout:  getEnvAsDuration("TABLE_EXTRACT_TIMEOUT", 60*time.Second),
		},
		Search: SearchConfig{
			APIKey:   getEnv("SEARCH_API_KEY", ""),
			Endpoint: getEnv("SEARCH_ENDPOINT", "https://serpapi.com/search"),
		},
		Feedback: FeedbackConfig{
			DBPath: getEnv("FEEDBACK_DB_PATH", "./feedback.db"),
		},
		Extraction: ExtractionConfig{
			GroupSize:  getEnvAsInt("EXTRACT_GROUP_SIZE", 4),
			GroupDelay: getEnvAsDuration("EXTRACT_GROUP_DELAY", 500*time.Millisecond),
			Workers:    getEnvAsInt("EXTRACT_WORKERS", 4),
			QueueSize:  getEnvAsInt("EXTRACT_QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("EXTRACT_JOB_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. Called once at startup;
// clients are constructed from the validated config and passed by reference,
// never read from process-global state.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return ConfigurationError("DB_URL is required")
	}
	if c.LLM.APIKey == "" {
		return ConfigurationError("OPENAI_API_KEY is required")
	}
	if c.Server.GRPCAddr == "" {
		return ConfigurationError("GRPC_ADDR is required")
	}
	if c.Server.HTTPAddr == "" {
		return ConfigurationError("HTTP_ADDR is required")
	}
	if c.Extraction.GroupSize < 1 {
		return ConfigurationError("EXTRACT_GROUP_SIZE must be at least 1")
	}
	return nil
}
