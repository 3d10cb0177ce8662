package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/liga-hub/tabellen-service/models"
)

// Config holds all configuration parameters of the service.
type Config struct {
	DatabaseURL string
	ServerPort  int

	// Automation / queue tuning.
	AutomationEnabled bool
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffFactor     float64
	BackoffCap        time.Duration
	JobTimeout        time.Duration
	ReconcileInterval time.Duration // 0 disables the reconciliation ticker

	// Enqueue priorities per trigger type.
	PriorityCreate    models.JobPriority
	PriorityUpdate    models.JobPriority
	PriorityDelete    models.JobPriority
	PriorityMigration models.JobPriority

	// Cloudflare R2 snapshot storage; snapshots are disabled when unset.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// SnapshotsEnabled reports whether all R2 settings are present.
func (c *Config) SnapshotsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load reads the configuration from environment variables, optionally
// seeded from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	maxAttempts, err := getEnvInt("QUEUE_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	backoffBase, err := getEnvDuration("QUEUE_BACKOFF_BASE", time.Second)
	if err != nil {
		return nil, err
	}
	backoffFactor, err := getEnvFloat("QUEUE_BACKOFF_FACTOR", 2)
	if err != nil {
		return nil, err
	}
	backoffCap, err := getEnvDuration("QUEUE_BACKOFF_CAP", time.Minute)
	if err != nil {
		return nil, err
	}
	jobTimeout, err := getEnvDuration("JOB_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	reconcileInterval, err := getEnvDuration("RECONCILE_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: dbURL,
		ServerPort:  port,

		AutomationEnabled: getEnvBool("AUTOMATION_ENABLED", true),
		MaxAttempts:       maxAttempts,
		BackoffBase:       backoffBase,
		BackoffFactor:     backoffFactor,
		BackoffCap:        backoffCap,
		JobTimeout:        jobTimeout,
		ReconcileInterval: reconcileInterval,

		PriorityCreate:    models.ParseJobPriority(getEnvOrDefault("PRIORITY_CREATE", "normal")),
		PriorityUpdate:    models.ParseJobPriority(getEnvOrDefault("PRIORITY_UPDATE", "normal")),
		PriorityDelete:    models.ParseJobPriority(getEnvOrDefault("PRIORITY_DELETE", "high")),
		PriorityMigration: models.ParseJobPriority(getEnvOrDefault("PRIORITY_MIGRATION", "high")),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
