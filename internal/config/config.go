// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for databases and uploaded statements (always absolute)
	LogLevel        string
	Port            int
	DevMode         bool
	BaseCurrency    string
	PriceCacheTTL   time.Duration // Expiry of cached oracle responses
	HistoryStep     int           // Sampling step of the history replay
	TickerBlacklist []string      // Tickers never sent to the price oracle
	YahooRateLimit  float64       // Requests per second allowed against the quote provider
	CleanupSchedule string        // Cron expression for expired cache cleanup
	Backup          *BackupConfig
}

// BackupConfig holds settings of the optional S3-compatible ledger backup
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Empty means the AWS default endpoint
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron expression, with seconds
	RetentionDays   int    // Older archives are rotated out; 0 keeps everything
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WALLET_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("GO_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		BaseCurrency:    strings.ToUpper(getEnv("BASE_CURRENCY", "BRL")),
		PriceCacheTTL:   getEnvAsDuration("PRICE_CACHE_TTL", 4*time.Hour),
		HistoryStep:     getEnvAsInt("HISTORY_STEP", 5),
		TickerBlacklist: getEnvAsList("TICKER_BLACKLIST", []string{"VVAR3"}),
		YahooRateLimit:  getEnvAsFloat("YAHOO_RATE_LIMIT", 2),
		CleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT: %d", c.Port)
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("invalid BASE_CURRENCY: %q", c.BaseCurrency)
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must be positive, got %s", c.PriceCacheTTL)
	}
	if c.HistoryStep <= 0 {
		return fmt.Errorf("HISTORY_STEP must be positive, got %d", c.HistoryStep)
	}
	if c.YahooRateLimit <= 0 {
		return fmt.Errorf("YAHOO_RATE_LIMIT must be positive, got %v", c.YahooRateLimit)
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}
	return nil
}

// LedgerPath returns the path of the transaction ledger database
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// ClientDataPath returns the path of the oracle response cache database
func (c *Config) ClientDataPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// UploadsDir returns the directory where imported statements are kept
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks and upper-casing entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Prefix:          getEnv("BACKUP_PREFIX", "wallet"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
