package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           int
	LogLevel       string
	LogFormat      string
	ServiceName    string
	Version        string
	Environment    string
	APIKey         string   // API key protecting the trigger/admin endpoints
	TrustedProxies []string // proxy IPs whose X-Forwarded-For we believe

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Remote inventory API
	RemoteBaseURL string
	RemoteTimeout time.Duration

	// Sync engine knobs
	PageSize         int           // collection fetch page size
	ChunkSize        int           // max entities per batch job
	ChunkMaxBytes    int           // max serialized payload per batch job
	Workers          int           // queue executor count
	FanoutDelay      time.Duration // per-child delay step for entity fan-out
	QueuePollPeriod  time.Duration // executor idle poll interval
	RetentionWindow  time.Duration // completed/failed job retention
	RetentionPeriod  time.Duration // how often retention runs
	MetadataCacheTTL time.Duration // batch metadata cache entry lifetime
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		ServiceName:    getEnv("SERVICE_NAME", "stocklink"),
		Version:        getEnv("VERSION", "dev"),
		Environment:    getEnv("ENVIRONMENT", "dev"),
		APIKey:         getEnv("API_KEY", ""),
		TrustedProxies: splitCSV(getEnv("TRUSTED_PROXIES", "")),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "stocklink"),

		RemoteBaseURL: getEnv("REMOTE_BASE_URL", "https://api.example.com/entity"),
		RemoteTimeout: getEnvAsDuration("REMOTE_TIMEOUT", 30*time.Second),

		PageSize:         getEnvAsInt("SYNC_PAGE_SIZE", DefaultPageSize),
		ChunkSize:        getEnvAsInt("SYNC_CHUNK_SIZE", DefaultChunkSize),
		ChunkMaxBytes:    getEnvAsInt("SYNC_CHUNK_MAX_BYTES", DefaultChunkMaxBytes),
		Workers:          getEnvAsInt("SYNC_WORKERS", DefaultWorkers),
		FanoutDelay:      getEnvAsDuration("SYNC_FANOUT_DELAY", DefaultFanoutDelay),
		QueuePollPeriod:  getEnvAsDuration("SYNC_QUEUE_POLL_PERIOD", DefaultQueuePollPeriod),
		RetentionWindow:  getEnvAsDuration("SYNC_RETENTION_WINDOW", DefaultRetentionWindow),
		RetentionPeriod:  getEnvAsDuration("SYNC_RETENTION_PERIOD", DefaultRetentionPeriod),
		MetadataCacheTTL: getEnvAsDuration("SYNC_METADATA_CACHE_TTL", DefaultMetadataCacheTTL),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("SYNC_CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("SYNC_PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}

	return cfg, nil
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an int, falling back to
// the default on absence or parse failure
func getEnvAsInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvAsDuration retrieves an environment variable as a time.Duration,
// falling back to the default on absence or parse failure
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
