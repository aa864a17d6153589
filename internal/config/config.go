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
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for the sqlite database and backup staging (always absolute)
	DatabaseURL string // When set, PostgreSQL is used instead of sqlite
	LogLevel    string
	Port        int
	DevMode     bool

	Fetch    FetchConfig
	Snapshot SnapshotConfig
	Backup   BackupConfig

	SourcesFile  string // Optional YAML overriding the symbol allow-lists
	KeepAliveURL string

	// RequestTimeout bounds HTTP API requests; it must cover a full refresh.
	RequestTimeout time.Duration
	// WSOriginPatterns lists the host patterns allowed to open the event
	// stream from another origin. Empty allows same-origin clients only.
	WSOriginPatterns []string
}

// persistMargin is the time a refresh request gets beyond the fetch batch
// timeout for writing its results.
const persistMargin = 30 * time.Second

// FetchConfig tunes quote acquisition.
type FetchConfig struct {
	CacheTTL      time.Duration
	Workers       int
	TaskTimeout   time.Duration
	BatchTimeout  time.Duration
	HTTPTimeout   time.Duration
	HumanizeMin   time.Duration
	HumanizeMax   time.Duration
	HumanizeOff   bool
	FallbackRate  decimal.Decimal // USD/JPY used when every rate lookup fails
	LastKnownKeep time.Duration   // Retention of persisted last-known quotes
}

// SnapshotConfig tunes the daily snapshot job.
type SnapshotConfig struct {
	TZOffsetHours   int
	Schedule        string // Six-field cron spec, evaluated in the reporting zone
	RetryAttempts   int
	RetryBackoff    time.Duration
	HistoryDays     int
	SweepSchedule   string
	CleanupSchedule string
}

// BackupConfig holds Cloudflare R2 settings. Backups are disabled unless all
// credentials are present.
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Schedule        string
	RetentionCount  int
}

// Enabled reports whether R2 credentials are complete.
func (b BackupConfig) Enabled() bool {
	return b.AccountID != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.BucketName != ""
}

// Location returns the fixed reporting timezone.
func (s SnapshotConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", s.TZOffsetHours), s.TZOffsetHours*60*60)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HOLDINGS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	databaseURL := getEnv("DATABASE_URL", "")
	if strings.HasPrefix(databaseURL, "postgres://") {
		databaseURL = "postgresql://" + strings.TrimPrefix(databaseURL, "postgres://")
	}

	batchTimeout := getEnvAsDuration("FETCH_BATCH_TIMEOUT", 180*time.Second)

	cfg := &Config{
		DataDir:     absDataDir,
		DatabaseURL: databaseURL,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvAsInt("PORT", 8001),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		Fetch: FetchConfig{
			CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
			Workers:       getEnvAsInt("FETCH_WORKERS", 5),
			TaskTimeout:   getEnvAsDuration("FETCH_TASK_TIMEOUT", 15*time.Second),
			BatchTimeout:  batchTimeout,
			HTTPTimeout:   getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
			HumanizeMin:   getEnvAsDuration("HUMANIZE_MIN", 500*time.Millisecond),
			HumanizeMax:   getEnvAsDuration("HUMANIZE_MAX", 1500*time.Millisecond),
			HumanizeOff:   getEnvAsBool("HUMANIZE_DISABLED", false),
			FallbackRate:  getEnvAsDecimal("DEFAULT_USD_JPY", decimal.NewFromInt(150)),
			LastKnownKeep: getEnvAsDuration("LAST_QUOTE_RETENTION", 7*24*time.Hour),
		},
		Snapshot: SnapshotConfig{
			TZOffsetHours:   getEnvAsInt("REPORT_TZ_OFFSET_HOURS", 9),
			Schedule:        getEnv("SNAPSHOT_SCHEDULE", "0 58 23 * * *"),
			RetryAttempts:   getEnvAsInt("SNAPSHOT_RETRY_ATTEMPTS", 3),
			RetryBackoff:    getEnvAsDuration("SNAPSHOT_RETRY_BACKOFF", 500*time.Millisecond),
			HistoryDays:     getEnvAsInt("HISTORY_DAYS", 365),
			SweepSchedule:   getEnv("CACHE_SWEEP_SCHEDULE", "0 */5 * * * *"),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 15 4 * * *"),
		},
		Backup: BackupConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
			RetentionCount:  getEnvAsInt("BACKUP_RETENTION", 14),
		},
		SourcesFile:  getEnv("SOURCES_FILE", ""),
		KeepAliveURL: getEnv("KEEPALIVE_URL", ""),

		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", batchTimeout+persistMargin),
		WSOriginPatterns: getEnvAsList("WS_ORIGIN_PATTERNS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are usable
func (c *Config) Validate() error {
	f := c.Fetch
	if f.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if f.Workers <= 0 {
		return fmt.Errorf("FETCH_WORKERS must be positive, got %d", f.Workers)
	}
	if f.TaskTimeout <= 0 || f.BatchTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}
	if c.RequestTimeout < f.BatchTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than FETCH_BATCH_TIMEOUT (%s)",
			c.RequestTimeout, f.BatchTimeout)
	}
	if f.HTTPTimeout < time.Second || f.HTTPTimeout > 30*time.Second {
		return fmt.Errorf("HTTP_TIMEOUT must be between 1s and 30s, got %s", f.HTTPTimeout)
	}
	if f.HumanizeMin < 0 || f.HumanizeMin > f.HumanizeMax {
		return fmt.Errorf("invalid humanize bounds %s..%s", f.HumanizeMin, f.HumanizeMax)
	}
	if !f.FallbackRate.IsPositive() {
		return fmt.Errorf("DEFAULT_USD_JPY must be positive")
	}
	if c.Snapshot.TZOffsetHours < -12 || c.Snapshot.TZOffsetHours > 14 {
		return fmt.Errorf("REPORT_TZ_OFFSET_HOURS out of range: %d", c.Snapshot.TZOffsetHours)
	}
	if c.Snapshot.RetryAttempts <= 0 {
		return fmt.Errorf("SNAPSHOT_RETRY_ATTEMPTS must be positive")
	}
	return nil
}

// SQLitePath returns the sqlite database file inside DataDir.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "holdings.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
