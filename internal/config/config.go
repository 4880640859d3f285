// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Upload     UploadConfig
	Submission SubmissionConfig
	Storage    StorageConfig
	Feed       FeedConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// UploadConfig holds catalog feed (CSV) processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed feed size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of reconciliation runs at once (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single reconciliation run (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// SubmissionConfig holds course completion submission settings.
type SubmissionConfig struct {
	// MaxFileSize is the certificate size limit in bytes (default: 2MiB)
	MaxFileSize int64 `env:"SUBMISSION_MAX_FILE_SIZE" default:"2097152"`

	// UnlistedCourseCode is the sentinel code for self-declared courses
	// that bypass the catalog lookup (default: UNLISTED)
	UnlistedCourseCode string `env:"SUBMISSION_UNLISTED_COURSE_CODE" default:"UNLISTED"`
}

// StorageConfig selects and configures the certificate blob store.
type StorageConfig struct {
	// Destination is LOCAL or SFTP (default: LOCAL)
	Destination string `env:"STORAGE_DESTINATION" default:"LOCAL"`

	// LocalDir is where LOCAL certificates are written (default: ./certificates)
	LocalDir string `env:"STORAGE_LOCAL_DIR" default:"./certificates"`

	// PublicBaseURL prefixes object names in returned certificate URLs.
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL"`

	SFTPHost      string `env:"SFTP_HOST"`
	SFTPPort      int    `env:"SFTP_PORT" default:"22"`
	SFTPUser      string `env:"SFTP_USER"`
	SFTPPass      string `env:"SFTP_PASS"`
	SFTPRemoteDir string `env:"SFTP_REMOTE_DIR" default:"/certificates"`

	// SFTPKnownHosts is a known_hosts file; when empty host keys are not verified.
	SFTPKnownHosts string        `env:"SFTP_KNOWN_HOSTS"`
	SFTPTimeout    time.Duration `env:"SFTP_TIMEOUT" default:"20s"`
}

// FeedConfig controls the catalog feed directory watcher.
type FeedConfig struct {
	Enabled  bool          `env:"FEED_ENABLED" default:"false"`
	Dir      string        `env:"FEED_DIR" default:"./feeds"`
	Interval time.Duration `env:"FEED_INTERVAL" default:"1h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
