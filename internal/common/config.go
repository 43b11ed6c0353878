package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Ledger  LedgerConfig
	Catalog CatalogConfig
	Import  ImportConfig
	Export  ExportConfig
	Log     LogConfig
}

// LedgerConfig holds import-ledger database configuration
type LedgerConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// CatalogConfig points at the inventory catalog snapshot
type CatalogConfig struct {
	Path string
}

// ImportConfig holds importer and queue configuration
type ImportConfig struct {
	Timezone       string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	SinkRatePerSec float64
	SinkBurst      int
}

// ExportConfig holds report export configuration
type ExportConfig struct {
	Dir string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Ledger: LedgerConfig{
			DSN:             getEnv("LEDGER_DSN", "file:receipts-ledger.db"),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", "catalog.json"),
		},
		Import: ImportConfig{
			Timezone:       getEnv("RECEIPT_TIMEZONE", "Local"),
			Workers:        getEnvAsInt("IMPORT_WORKERS", 2),
			QueueSize:      getEnvAsInt("IMPORT_QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("IMPORT_TIMEOUT", time.Minute),
			SinkRatePerSec: getEnvAsFloat64("SINK_RATE_PER_SEC", 0),
			SinkBurst:      getEnvAsInt("SINK_BURST", 1),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "."),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// Location resolves Import.Timezone; "Local" and "" mean time.Local.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Import.Timezone)
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("LEDGER_DSN", c.Ledger.DSN, Required).
		Field("IMPORT_WORKERS", float64(c.Import.Workers), Positive).
		Field("IMPORT_QUEUE_SIZE", float64(c.Import.QueueSize), Positive)
	if c.Import.SinkRatePerSec < 0 {
		v.errors = append(v.errors, ValidationError{Field: "SINK_RATE_PER_SEC", Value: c.Import.SinkRatePerSec, Message: "must not be negative"})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	if _, err := c.Location(); err != nil {
		return NewAppError("CONFIG_ERROR", "RECEIPT_TIMEZONE is not a known location", err)
	}
	return nil
}
