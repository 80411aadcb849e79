package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetwatch/internal/config"
	"github.com/JonMunkholm/sheetwatch/internal/core"
	"github.com/JonMunkholm/sheetwatch/internal/database"
	"github.com/JonMunkholm/sheetwatch/internal/logging"
	"github.com/JonMunkholm/sheetwatch/internal/notify"
	"github.com/JonMunkholm/sheetwatch/internal/source"
	"github.com/JonMunkholm/sheetwatch/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"fetch_max_concurrent", cfg.Fetch.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	// Optional persistence
	var (
		pool     *pgxpool.Pool
		history  core.HistoryStore
		settings core.SettingsStore
	)
	if cfg.Database.Enabled() {
		pool, err = connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := database.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		history, settings = store, store
	} else {
		slog.Warn("DATABASE_URL not set; settings and history are kept in memory only")
		history = core.NewMemoryHistory(cfg.History.PerUser)
	}

	// Sheet source
	client := source.NewClient(source.Options{
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		MaxConcurrent:     cfg.Fetch.MaxConcurrent,
		MaxWait:           cfg.Fetch.MaxWait,
		MaxBytes:          cfg.Fetch.MaxBytes,
		Timeout:           cfg.Fetch.Timeout,
		AllowFiles:        cfg.Fetch.AllowFiles,
	})

	// Message delivery
	inbox := notify.NewInbox(cfg.Notify.InboxSize)
	sinks := notify.Fanout{inbox}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.WebhookURL,
			notify.WithWebhookTimeout(cfg.Notify.WebhookTimeout),
			notify.WithUserAgent(cfg.Fetch.UserAgent),
		))
	}
	if cfg.Notify.LogMessages {
		sinks = append(sinks, notify.Log{})
	}

	service, err := core.NewService(core.ServiceConfig{
		Defaults: cfg.SessionDefaults(),
		Fetcher:  client,
		Sink:     sinks,
		History:  history,
		Settings: settings,
		Scheduler: core.SchedulerOptions{
			FetchTimeout: cfg.Fetch.Timeout,
			RestartGrace: cfg.Monitor.RestartGrace,
			ChunkSize:    cfg.Notify.ChunkSize,
		},
		ValidateLocator: client.Validate,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Monitoring is not resumed; users start it again after a restart.
	restored, err := service.RestoreSettings(ctx)
	if err != nil {
		slog.Error("failed to restore settings", "error", err)
	} else if restored > 0 {
		slog.Info("settings restored", "users", restored)
	}

	opts := web.Options{
		Service:      service,
		Config:       cfg,
		Inbox:        inbox,
		FetchLimiter: client.Limiter(),
	}
	if pool != nil {
		opts.Ping = pool.Ping
	}
	server := web.NewServer(opts)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go core.StartHistoryPruner(jobCtx, history, core.PruneConfig{
		RetentionDays: cfg.History.RetentionDays,
		CheckInterval: cfg.History.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("monitoring tasks did not stop in time", "error", err)
		}

		// Let in-flight downloads finish
		if st := client.Limiter().Status(); st.Active > 0 {
			slog.Info("waiting for sheet downloads to complete", "active", st.Active)
			if err := client.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("downloads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
