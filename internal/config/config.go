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
	// Storage
	DataBackend    string
	SQLiteDBPath   string
	CategoriesFile string // memory backend seed, optional

	// AMQP
	AMQPURL           string
	AMQPExchange      string
	AMQPMessagesQueue string
	AMQPRepliesQueue  string
	AMQPAlertsQueue   string
	AMQPEventsQueue   string
	AMQPPrefetch      int

	// Engines
	CategoryCacheTTL       time.Duration
	AlertSuppressionWindow time.Duration
	StorageTimeout         time.Duration
	CacheCleanupInterval   time.Duration

	// Google Sheets category directory (optional)
	GoogleSpreadsheetID   string
	GoogleCategoriesSheet string
	CategorySyncInterval  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:    getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/gastos.db"),
		CategoriesFile: getEnv("CATEGORIES_FILE", ""),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPMessagesQueue: getEnv("AMQP_MESSAGES_QUEUE", "gastos.messages"),
		AMQPRepliesQueue:  getEnv("AMQP_REPLIES_QUEUE", "gastos.replies"),
		AMQPAlertsQueue:   getEnv("AMQP_ALERTS_QUEUE", "gastos.alerts"),
		AMQPEventsQueue:   getEnv("AMQP_EVENTS_QUEUE", "gastos.events"),
		AMQPPrefetch:      getEnvInt("AMQP_PREFETCH", 10),

		CategoryCacheTTL:       getEnvDuration("CATEGORY_CACHE_TTL", 5*time.Minute),
		AlertSuppressionWindow: getEnvDuration("ALERT_SUPPRESSION_WINDOW", time.Hour),
		StorageTimeout:         getEnvDuration("STORAGE_TIMEOUT", 3*time.Second),
		CacheCleanupInterval:   getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCategoriesSheet: getEnv("GOOGLE_CATEGORIES_SHEET_NAME", "Categories"),
		CategorySyncInterval:  getEnvDuration("CATEGORY_SYNC_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether categories come from a spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "memory" && c.CategoriesFile != "" {
		if _, err := os.Stat(c.CategoriesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("categories file does not exist: %s", c.CategoriesFile))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		queues := []struct{ key, value string }{
			{"AMQP_MESSAGES_QUEUE", c.AMQPMessagesQueue},
			{"AMQP_REPLIES_QUEUE", c.AMQPRepliesQueue},
			{"AMQP_ALERTS_QUEUE", c.AMQPAlertsQueue},
			{"AMQP_EVENTS_QUEUE", c.AMQPEventsQueue},
		}
		for _, q := range queues {
			if q.value == "" {
				errors = append(errors, fmt.Sprintf("%s cannot be empty when AMQP URL is provided", q.key))
			}
		}
		if c.AMQPPrefetch < 0 {
			errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must not be negative", c.AMQPPrefetch))
		}
	}

	// Validate engine timings
	if c.CategoryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must be at least 1 second", c.CategoryCacheTTL))
	}
	if c.AlertSuppressionWindow < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid alert suppression window %v: must be at least 1 minute", c.AlertSuppressionWindow))
	} else if c.AlertSuppressionWindow > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid alert suppression window %v: must be at most 7 days", c.AlertSuppressionWindow))
	}
	if c.StorageTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid storage timeout %v: must be at least 100ms", c.StorageTimeout))
	} else if c.StorageTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid storage timeout %v: must be at most 1 minute", c.StorageTimeout))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	// Validate Google Sheets configuration if enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleCategoriesSheet == "" {
			errors = append(errors, "Google categories sheet name is required when a spreadsheet ID is set")
		}
		if c.CategorySyncInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid category sync interval %v: must be at least 1 minute", c.CategorySyncInterval))
		}
	}

	// Validate logging
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the extra requirements of the message worker.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.AMQPEnabled() {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required for the worker")
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
