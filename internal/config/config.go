// Package config provides centralized configuration management for the monitor.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Monitor  MonitorConfig
	Fetch    FetchConfig
	Notify   NotifyConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including stopping monitors (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty, settings and
	// change history live in memory only.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// MonitorConfig holds the defaults every new or reset session starts with.
type MonitorConfig struct {
	// DefaultInterval is the polling interval (default: 60s)
	DefaultInterval time.Duration `env:"MONITOR_DEFAULT_INTERVAL" default:"60s"`

	// DefaultThreshold is the minimum changes per notification (default: 1)
	DefaultThreshold int `env:"MONITOR_DEFAULT_THRESHOLD" default:"1"`

	// MaxErrorCount is the consecutive fetch failures before monitoring stops (default: 3)
	MaxErrorCount int `env:"MONITOR_MAX_ERROR_COUNT" default:"3"`

	// DefaultFormat is detailed or compact (default: detailed)
	DefaultFormat string `env:"MONITOR_DEFAULT_FORMAT" default:"detailed"`

	// RestartGrace is added to the interval when waiting for a replaced monitor (default: 1s)
	RestartGrace time.Duration `env:"MONITOR_RESTART_GRACE" default:"1s"`
}

// FetchConfig holds sheet download settings.
type FetchConfig struct {
	// Timeout bounds one fetch (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// RequestsPerSecond paces outbound requests across all users (default: 5, 0 disables)
	RequestsPerSecond float64 `env:"FETCH_REQUESTS_PER_SECOND" default:"5"`
	Burst             int     `env:"FETCH_BURST" default:"5"`

	// MaxConcurrent is the number of downloads in flight (default: 8)
	MaxConcurrent int           `env:"FETCH_MAX_CONCURRENT" default:"8"`
	MaxWait       time.Duration `env:"FETCH_MAX_WAIT" default:"10s"`

	// MaxBytes caps a downloaded sheet (default: 20MB)
	MaxBytes int64 `env:"FETCH_MAX_BYTES" default:"20971520"`

	UserAgent string `env:"FETCH_USER_AGENT" default:"sheetwatch/1.0"`

	// AllowFiles accepts file:// sheet URLs (default: false)
	AllowFiles bool `env:"FETCH_ALLOW_FILES" default:"false"`
}

// NotifyConfig holds message delivery settings.
type NotifyConfig struct {
	// ChunkSize is the maximum characters per message (default: 4096)
	ChunkSize int `env:"NOTIFY_CHUNK_SIZE" default:"4096"`

	// InboxSize is the undrained messages kept per user (default: 100)
	InboxSize int `env:"NOTIFY_INBOX_SIZE" default:"100"`

	// WebhookURL receives every message as JSON when set
	WebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"NOTIFY_WEBHOOK_TIMEOUT" default:"10s"`

	// LogMessages writes every message to the log (default: false)
	LogMessages bool `env:"NOTIFY_LOG_MESSAGES" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CheckLimit is requests per minute for the on-demand check endpoint (default: 10)
	CheckLimit int `env:"RATE_LIMIT_CHECK" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// HistoryConfig holds change history settings.
type HistoryConfig struct {
	// RetentionDays is days to keep notified change batches (default: 30)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"30"`

	// CheckInterval is how often to prune old batches (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`

	// PerUser bounds the in-memory history per user (default: 200)
	PerUser int `env:"HISTORY_PER_USER" default:"200"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
