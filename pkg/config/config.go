package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for statline-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (PGPASSWORD)
// must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8087"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory containing SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Engine behavior
	Sync      SyncConfig      `yaml:"sync"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Freshness FreshnessConfig `yaml:"freshness"`
	Retention RetentionConfig `yaml:"retention"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"statline"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"statline_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// Pool recycling. Zero falls back to the database package defaults.
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes" env:"PGCONN_MAX_LIFETIME_MINUTES" env-default:"60"`
	ConnMaxIdleMinutes     int `yaml:"conn_max_idle_minutes" env:"PGCONN_MAX_IDLE_MINUTES" env-default:"30"`
}

// SyncConfig holds synchronization engine settings.
type SyncConfig struct {
	// MaxDepth bounds the length of a propagation chain. A chain that runs
	// past this bound aborts with PropagationDepthExceeded.
	MaxDepth int `yaml:"max_depth" env:"SYNC_MAX_DEPTH" env-default:"8"`
}

// EvaluatorConfig holds anomaly evaluator settings.
type EvaluatorConfig struct {
	// TimeoutSeconds caps a single Evaluate call. Zero means no timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"EVALUATOR_TIMEOUT_SECONDS" env-default:"30"`
	// StaleAfterDays is the window used by the staleness anomaly rule.
	StaleAfterDays int `yaml:"stale_after_days" env:"EVALUATOR_STALE_AFTER_DAYS" env-default:"30"`
}

// FreshnessConfig holds freshness monitor settings.
type FreshnessConfig struct {
	// DefaultMaxAgeDays applies to categories without their own threshold.
	DefaultMaxAgeDays   int `yaml:"default_max_age_days" env:"FRESHNESS_DEFAULT_MAX_AGE_DAYS" env-default:"14"`
	ScanIntervalMinutes int `yaml:"scan_interval_minutes" env:"FRESHNESS_SCAN_INTERVAL_MINUTES" env-default:"60"`
}

// RetentionConfig holds history retention settings.
type RetentionConfig struct {
	// HistoryKeep is the number of newest history rows kept per entity.
	HistoryKeep            int `yaml:"history_keep" env:"RETENTION_HISTORY_KEEP" env-default:"200"`
	CompactIntervalMinutes int `yaml:"compact_interval_minutes" env:"RETENTION_COMPACT_INTERVAL_MINUTES" env-default:"360"`
}

// IngestConfig holds ingestion adapter settings.
type IngestConfig struct {
	// MappingsFile is a YAML file mapping path prefixes to component names.
	MappingsFile string `yaml:"mappings_file" env:"INGEST_MAPPINGS_FILE" env-default:""`
	// WatchEnabled starts the file-system watcher over the mapped roots.
	WatchEnabled   bool `yaml:"watch_enabled" env:"INGEST_WATCH_ENABLED" env-default:"false"`
	DebounceMillis int  `yaml:"debounce_millis" env:"INGEST_DEBOUNCE_MILLIS" env-default:"500"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. A missing config.yaml is not an error; env defaults apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sync.MaxDepth < 1 {
		return fmt.Errorf("sync.max_depth must be at least 1, got %d", c.Sync.MaxDepth)
	}
	if c.Retention.HistoryKeep < 1 {
		return fmt.Errorf("retention.history_keep must be at least 1, got %d", c.Retention.HistoryKeep)
	}
	if c.Freshness.DefaultMaxAgeDays < 1 {
		return fmt.Errorf("freshness.default_max_age_days must be at least 1, got %d", c.Freshness.DefaultMaxAgeDays)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns a postgres:// connection URL.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
