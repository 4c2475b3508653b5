package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	LOG_MODE     string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Selection workflow
	LOCK_BACKEND           string
	// SELECTION_HOOK_TIMEOUT also bounds an outbox sweep per student. The
	// Redis student lock lives twice this plus 10s (at least 15s).
	SELECTION_HOOK_TIMEOUT time.Duration
	OUTBOX_MAX_ATTEMPTS    int
	CRON_ENABLED           bool
	// HTTP
	ALLOWED_ORIGINS string
}

func Get() (*EnviornmentVariable, error) {
	goEnv := os.Getenv("GO_ENV")

	lockBackend := strings.ToLower(os.Getenv("LOCK_BACKEND"))
	if lockBackend != LockBackendRedis {
		lockBackend = LockBackendLocal
	}

	return &EnviornmentVariable{
		GO_ENV:       goEnv,
		LOG_MODE:     envOr("LOG_MODE", goEnv),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      envOr("DB_HOST", "localhost"),
		DB_PORT:      envOr("DB_PORT", "5432"),
		DB_SSL_MODE:  envOr("DB_SSL_MODE", "disable"),
		PORT:         envInt("PORT", 8080),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: envOr("JWT_ISSUER", "ai-counsellor-api"),
		// Redis
		REDIS_URL: envOr("REDIS_URL", "redis://localhost:6379/0"),
		// Selection workflow
		LOCK_BACKEND:           lockBackend,
		SELECTION_HOOK_TIMEOUT: envDuration("SELECTION_HOOK_TIMEOUT", 5*time.Second),
		OUTBOX_MAX_ATTEMPTS:    envInt("OUTBOX_MAX_ATTEMPTS", 10),
		CRON_ENABLED:           os.Getenv("CRON_ENABLED") != "false", // Default to enabled
		// HTTP
		ALLOWED_ORIGINS: envOr("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns fallback unless key holds a positive integer
func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// envDuration returns fallback unless key holds a positive duration
func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
