package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	DataDir      string

	// Firestore
	FirestoreProjectID    string
	GoogleCredentialsFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleLedgerSheet   string

	// Insights backend
	InsightsBaseURL  string
	InsightsTimeout  time.Duration
	InsightsCacheTTL time.Duration

	// Auth
	AuthJWTSecret string
	AuthIssuer    string
	SessionTTL    time.Duration

	// Ledger calendar
	LedgerTimezone string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Logging
	LogLevel  string
	LogFormat string

	// Worker
	SyncBatchSize     int
	SyncInterval      time.Duration
	WorkerMetricsPort string
}

var (
	validBackends   = []string{"memory", "sqlite", "firestore"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gigledger.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		FirestoreProjectID:    getEnv("FIRESTORE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gigledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:   getEnv("GOOGLE_LEDGER_SHEET", "Ledger"),

		InsightsBaseURL:  getEnv("INSIGHTS_BASE_URL", ""),
		InsightsTimeout:  getEnvDuration("INSIGHTS_TIMEOUT", 15*time.Second),
		InsightsCacheTTL: getEnvDuration("INSIGHTS_CACHE_TTL", 10*time.Minute),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthIssuer:    getEnv("AUTH_ISSUER", "gigledger"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		LedgerTimezone: getEnv("LEDGER_TIMEZONE", "Asia/Kolkata"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 30),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", "9091"),
	}

	return cfg
}

// Location resolves LedgerTimezone; the ledger's "today" is computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.LedgerTimezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.LedgerTimezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "firestore":
		if c.FirestoreProjectID == "" {
			errors = append(errors, "Firestore project ID is required when using firestore backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleLedgerSheet == "" {
		errors = append(errors, "Google ledger sheet name is required when a spreadsheet ID is set")
	}

	if c.InsightsBaseURL != "" {
		if u, err := url.Parse(c.InsightsBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid insights base URL '%s': must be an absolute http(s) URL", c.InsightsBaseURL))
		}
	}
	if c.InsightsTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid insights timeout %v: must be positive", c.InsightsTimeout))
	}
	if c.InsightsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insights cache TTL %v: cannot be negative", c.InsightsCacheTTL))
	}

	if len(c.AuthJWTSecret) < 32 {
		errors = append(errors, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if !oneOf(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !oneOf(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.WorkerMetricsPort != "" {
		if port, err := strconv.Atoi(c.WorkerMetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid worker metrics port '%s': must be between 1 and 65535", c.WorkerMetricsPort))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func oneOf(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
