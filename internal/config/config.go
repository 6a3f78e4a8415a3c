package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config defines service configuration.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	StoreBackend  string `yaml:"store_backend"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	APIBaseURL       string        `yaml:"api_base_url"`
	APIToken         string        `yaml:"api_token"`
	APIRatePerSecond float64       `yaml:"api_rate_per_second"`
	APITimeout       time.Duration `yaml:"api_timeout"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	PollConcurrency int           `yaml:"poll_concurrency"`

	CompletionWebhookURL string `yaml:"completion_webhook_url"`

	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads defaults, then env vars, then the YAML file named by DER_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		StoreBackend:         getenvDefault("STORE_BACKEND", StoreMemory),
		DatabaseURL:          getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		RedisAddr:            getenvDefault("REDIS_ADDR", ""),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getenvIntDefault("REDIS_DB", 0),
		APIBaseURL:           getenvDefault("DER_API_BASE_URL", ""),
		APIToken:             os.Getenv("DER_API_TOKEN"),
		APIRatePerSecond:     getenvFloatDefault("DER_API_RATE_PER_SECOND", 5),
		APITimeout:           getenvDuration("DER_API_TIMEOUT", 10*time.Second),
		PollInterval:         getenvDuration("POLL_INTERVAL", 10*time.Second),
		PollConcurrency:      getenvIntDefault("POLL_CONCURRENCY", 4),
		CompletionWebhookURL: os.Getenv("COMPLETION_WEBHOOK_URL"),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}

	if path := os.Getenv("DER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings needed to start the service.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL or PG_DSN is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	if c.APIBaseURL == "" {
		return errors.New("config: DER_API_BASE_URL is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}
	if c.PollConcurrency < 0 {
		return errors.New("config: POLL_CONCURRENCY must not be negative")
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
