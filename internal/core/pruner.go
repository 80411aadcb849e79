package core

// pruner.go provides background pruning of the change history.
//
// The pruner is long-running and context-aware for graceful shutdown. It logs
// progress and errors but never fails the application when a single pass
// fails.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig holds configuration for the history pruner.
type PruneConfig struct {
	RetentionDays int           // Days to keep change batches (default: 30)
	CheckInterval time.Duration // How often to run (default: 24h)
}

// StartHistoryPruner periodically deletes change batches older than the
// retention window. It runs immediately on start, then every CheckInterval,
// and stops when ctx is cancelled.
func StartHistoryPruner(ctx context.Context, store HistoryStore, cfg PruneConfig) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("history pruner started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval,
	)

	runPrune(ctx, store, cfg.RetentionDays)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case <-ticker.C:
			runPrune(ctx, store, cfg.RetentionDays)
		}
	}
}

// runPrune performs one pruning pass.
func runPrune(ctx context.Context, store HistoryStore, retentionDays int) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -retentionDays)

	pruned, err := store.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}

	slog.Info("pruned change history",
		"batches_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
