package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DatabaseURL   string
	RunMigrations bool

	JWTSecret          string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration

	RabbitMQURL     string
	OutboxInterval  time.Duration
	OutboxBatchSize int

	LogLevel string
	GinMode  string
}

// Load reads the process environment. Call sites that want .env support
// import github.com/joho/godotenv/autoload before calling it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        databaseURL(),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		OutboxInterval:     getEnvDuration("OUTBOX_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 50),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		GinMode:            getEnv("GIN_MODE", "release"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET not set")
	}
	if cfg.OutboxBatchSize <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.OutboxBatchSize)
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// BLUEPRINT_DB_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
		getEnv("BLUEPRINT_DB_PASSWORD", "postgres"),
		getEnv("BLUEPRINT_DB_HOST", "localhost"),
		getEnv("BLUEPRINT_DB_PORT", "5432"),
		getEnv("BLUEPRINT_DB_DATABASE", "storefront"),
		getEnv("BLUEPRINT_DB_SCHEMA", "public"),
	)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
