package config

import (
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.Enabled() {
		t.Error("Database should be disabled without DATABASE_URL")
	}
	if cfg.Monitor.DefaultInterval != 60*time.Second {
		t.Errorf("Monitor.DefaultInterval = %v, want 60s", cfg.Monitor.DefaultInterval)
	}
	if cfg.Monitor.MaxErrorCount != 3 {
		t.Errorf("Monitor.MaxErrorCount = %d, want 3", cfg.Monitor.MaxErrorCount)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 30s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.RequestsPerSecond != 5 {
		t.Errorf("Fetch.RequestsPerSecond = %g, want 5", cfg.Fetch.RequestsPerSecond)
	}
	if cfg.Notify.ChunkSize != 4096 {
		t.Errorf("Notify.ChunkSize = %d, want 4096", cfg.Notify.ChunkSize)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONITOR_DEFAULT_THRESHOLD", "5")
	t.Setenv("MONITOR_DEFAULT_FORMAT", "compact")
	t.Setenv("FETCH_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Fetch.RequestsPerSecond != 0.5 {
		t.Errorf("Fetch.RequestsPerSecond = %g, want 0.5", cfg.Fetch.RequestsPerSecond)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	d := cfg.SessionDefaults()
	if d.Threshold != 5 || d.Format != core.FormatCompact || d.Interval != time.Minute {
		t.Errorf("SessionDefaults() = %+v", d)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "postgres://localhost/alttest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
	if !cfg.Database.Enabled() {
		t.Error("Database should be enabled")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "FETCH_TIMEOUT") {
		t.Errorf("error should name the variable, got %v", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("MONITOR_DEFAULT_INTERVAL", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Monitor.DefaultInterval != 90*time.Second {
		t.Errorf("Monitor.DefaultInterval = %v, want %v", cfg.Monitor.DefaultInterval, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

// validConfig returns a config that passes validation.
func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Monitor: MonitorConfig{DefaultInterval: time.Minute, DefaultThreshold: 1, MaxErrorCount: 3, DefaultFormat: "detailed"},
		Fetch:   FetchConfig{Timeout: time.Second, MaxConcurrent: 1, MaxBytes: 1024},
		Notify:  NotifyConfig{ChunkSize: 4096},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, CheckLimit: 10},
		History: HistoryConfig{RetentionDays: 30, CheckInterval: time.Hour},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"zero interval", func(c *Config) { c.Monitor.DefaultInterval = 0 }, "MONITOR_DEFAULT_INTERVAL"},
		{"bad format", func(c *Config) { c.Monitor.DefaultFormat = "loud" }, "MONITOR_DEFAULT_FORMAT"},
		{"zero chunk", func(c *Config) { c.Notify.ChunkSize = 0 }, "NOTIFY_CHUNK_SIZE"},
		{"bad webhook", func(c *Config) { c.Notify.WebhookURL = "ftp://x" }, "NOTIFY_WEBHOOK_URL"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{
			name: "db pool inverted",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{URL: "postgres://x", MaxConns: 1, MinConns: 5}
			},
			wantErr: "DB_MAX_CONNS",
		},
		{
			name:    "db pool ignored when disabled",
			mutate:  func(c *Config) { c.Database = DatabaseConfig{MaxConns: 0} },
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Fetch.Timeout = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected errors")
	}
	for _, want := range []string{"SERVER_PORT", "FETCH_TIMEOUT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestConfigString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://user:secret@db/monitor"
	cfg.Notify.WebhookURL = "https://hooks.example.com/token123"

	s := cfg.String()
	if strings.Contains(s, "secret") || strings.Contains(s, "token123") {
		t.Errorf("String() leaked a secret: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() should mark masked values: %s", s)
	}
}

func TestServerAddr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := c.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
	c.Host = ""
	if got := c.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q", got)
	}
}
