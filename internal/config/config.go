// Package config provides centralized configuration management for the
// synchronizer. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Workbook WorkbookConfig
	Sync     SyncConfig
	Audit    AuditConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// URL selects the store: postgres://, postgresql://, sqlite:// or file: (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds establishing a connection (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// WorkbookConfig holds the input locations.
type WorkbookConfig struct {
	// Path is the XLSX workbook to synchronize
	Path string `env:"WORKBOOK_PATH"`

	// AliasMapPath is the optional clinician alias CSV
	AliasMapPath string `env:"ALIAS_MAP_PATH"`

	// TimeZone is the wall-clock zone of workbook dates (default: America/Montevideo)
	TimeZone string `env:"WORKBOOK_TIMEZONE" default:"America/Montevideo"`

	// HeaderSearchRows is how many leading rows are searched for headers (default: 20)
	HeaderSearchRows int `env:"HEADER_SEARCH_ROWS" default:"20"`
}

// SyncConfig holds run settings.
type SyncConfig struct {
	// Mode is the default sync mode: full or incremental (default: full)
	Mode string `env:"SYNC_MODE" default:"full"`

	// Workers is the number of key buckets written concurrently per group (default: 1)
	Workers int `env:"SYNC_WORKERS" default:"1"`

	// MatchThreshold is the minimum name similarity for clinician matches (default: 0.8)
	MatchThreshold float64 `env:"MATCH_THRESHOLD" default:"0.8"`

	// Timeout is the maximum duration of a run (default: 30m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"30m"`
}

// AuditConfig holds run artifact settings.
type AuditConfig struct {
	// Dir receives one JSON artifact per run (default: logs)
	Dir string `env:"AUDIT_LOG_DIR" default:"logs"`
}

// ArchiveConfig holds the optional S3 copy of audit artifacts.
type ArchiveConfig struct {
	// Bucket enables archiving when set
	Bucket string `env:"ARCHIVE_S3_BUCKET"`

	// Prefix is prepended to every object key (default: periop-sync/)
	Prefix string `env:"ARCHIVE_S3_PREFIX" default:"periop-sync/"`

	// Region overrides the SDK's region resolution
	Region string `env:"ARCHIVE_S3_REGION" envAlt:"AWS_REGION"`

	// Endpoint points at an S3-compatible service such as MinIO
	Endpoint string `env:"ARCHIVE_S3_ENDPOINT"`

	// UsePathStyle forces path-style addressing (default: false)
	UsePathStyle bool `env:"ARCHIVE_S3_PATH_STYLE" default:"false"`

	// AccessKeyID and SecretAccessKey set static credentials; otherwise the
	// default credential chain is used
	AccessKeyID     string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
}

// Enabled reports whether artifacts are archived.
func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

// MetricsConfig holds the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile is written after every run when set
	Textfile string `env:"METRICS_TEXTFILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File adds a rotating log file next to stderr when set
	File string `env:"LOG_FILE"`

	// MaxSizeMB is the size at which the log file rotates (default: 50)
	MaxSizeMB int `env:"LOG_MAX_SIZE_MB" default:"50"`

	// MaxBackups is the number of rotated files kept (default: 5)
	MaxBackups int `env:"LOG_MAX_BACKUPS" default:"5"`

	// MaxAgeDays is how long rotated files are kept (default: 30)
	MaxAgeDays int `env:"LOG_MAX_AGE_DAYS" default:"30"`
}
