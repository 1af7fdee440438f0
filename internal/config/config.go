// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for ledger.db and market.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool
	// MaintenanceSchedule runs WAL checkpoints and intraday pruning; empty disables it
	MaintenanceSchedule string
	Market              *MarketConfig
	Backup              *BackupConfig
}

// MarketConfig configures the market data provider and its ingest schedule.
type MarketConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	SyncSchedule string // cron spec; empty disables scheduled issuer sync
}

// BackupConfig configures off-site ledger backups to S3-compatible storage.
type BackupConfig struct {
	Schedule        string // cron spec; empty disables scheduled backups
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every backup
}

// Enabled reports whether enough is configured to upload backups.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DALIA_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("DALIA_PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 3 * * *"),
		Market: &MarketConfig{
			BaseURL:      getEnv("DATABURSATIL_BASE_URL", "https://api.databursatil.com/v2"),
			Token:        getEnv("DATABURSATIL_TOKEN", ""),
			Timeout:      time.Duration(getEnvAsInt("MARKET_TIMEOUT_SECONDS", 10)) * time.Second,
			SyncSchedule: getEnv("MARKET_SYNC_SCHEDULE", ""),
		},
		Backup: &BackupConfig{
			Schedule:        getEnv("BACKUP_SCHEDULE", ""),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Market == nil {
		return fmt.Errorf("market configuration missing")
	}
	if c.Market.Timeout <= 0 {
		return fmt.Errorf("market timeout must be positive, got %s", c.Market.Timeout)
	}
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market base URL must not be empty")
	}
	if c.Backup != nil && c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative, got %d", c.Backup.RetentionDays)
	}
	// Token is optional: without it the market endpoints degrade to "unavailable".
	return nil
}

// LedgerDBPath returns the location of the ledger database.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// MarketDBPath returns the location of the market data database.
func (c *Config) MarketDBPath() string {
	return filepath.Join(c.DataDir, "market.db")
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
