package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey      = errors.New("NLI_API_KEY is required")
	ErrInvalidBaseURL     = errors.New("NLI_BASE_URL must be an http(s) url")
	ErrInvalidConcurrency = errors.New("NLI_MAX_CONCURRENCY must not be negative")
)

type Config struct {
	NLI       NLIConfig
	Database  DatabaseConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type NLIConfig struct {
	APIKey  string
	BaseURL string
	// Timeout per HTTP request
	Timeout time.Duration
	// SearchTimeout for a whole search including all pages, 0 = none
	SearchTimeout  time.Duration
	MaxConcurrency int
}

// DatabaseConfig - архив включается только если задан URL.
type DatabaseConfig struct {
	URL string
}

func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

type LogConfig struct {
	Level    string
	Encoding string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func Load() (*Config, error) {
	cfg := &Config{
		NLI: NLIConfig{
			APIKey:         os.Getenv("NLI_API_KEY"),
			BaseURL:        getEnvOrDefault("NLI_BASE_URL", "https://api.nli.org.il/openlibrary/search"),
			Timeout:        time.Duration(getEnvIntOrDefault("NLI_TIMEOUT_SEC", 30)) * time.Second,
			SearchTimeout:  time.Duration(getEnvIntOrDefault("NLI_SEARCH_TIMEOUT_SEC", 0)) * time.Second,
			MaxConcurrency: getEnvIntOrDefault("NLI_MAX_CONCURRENCY", 0),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:    getEnvOrDefault("LOG_LEVEL", "info"),
			Encoding: os.Getenv("LOG_ENCODING"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("NLI_RATE_LIMIT_PER_MINUTE", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.NLI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if !strings.HasPrefix(c.NLI.BaseURL, "http://") && !strings.HasPrefix(c.NLI.BaseURL, "https://") {
		return ErrInvalidBaseURL
	}
	if c.NLI.MaxConcurrency < 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
