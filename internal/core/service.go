package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ShortIntervalWarning is the interval below which SetInterval warns.
const ShortIntervalWarning = 10 * time.Second

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Defaults  Defaults
	Fetcher   Fetcher
	Sink      Sink
	History   HistoryStore  // Defaults to an in-memory store
	Settings  SettingsStore // Optional; settings are not persisted when nil
	Scheduler SchedulerOptions

	// ValidateLocator rejects locators the fetcher cannot serve (optional).
	ValidateLocator func(Locator) error
}

// Service is the command surface of the monitor: every front end (HTTP API,
// CLI, tests) goes through it.
type Service struct {
	registry  *Registry
	scheduler *Scheduler
	history   HistoryStore
	settings  SettingsStore
	validate  func(Locator) error
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("new service: fetcher is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("new service: sink is required")
	}
	if cfg.History == nil {
		cfg.History = NewMemoryHistory(DefaultHistoryPerUser)
	}

	registry := NewRegistry(cfg.Defaults)
	opts := cfg.Scheduler
	opts.History = cfg.History

	return &Service{
		registry:  registry,
		scheduler: NewScheduler(registry, cfg.Fetcher, cfg.Sink, opts),
		history:   cfg.History,
		settings:  cfg.Settings,
		validate:  cfg.ValidateLocator,
	}, nil
}

// Registry exposes the session registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Status returns the status of userKey's session.
func (s *Service) Status(userKey string) Status {
	return s.registry.Session(userKey).Status()
}

// Statuses returns the status of every known session, sorted by user key.
func (s *Service) Statuses() []Status {
	keys := s.registry.Keys()
	out := make([]Status, 0, len(keys))
	for _, k := range keys {
		if sess, ok := s.registry.Lookup(k); ok {
			out = append(out, sess.Status())
		}
	}
	return out
}

// SetSheet sets the sheet URL and name. The baseline is cleared and a running
// monitor is stopped.
func (s *Service) SetSheet(ctx context.Context, userKey, url, sheet string) error {
	loc := Locator{URL: strings.TrimSpace(url), Sheet: strings.TrimSpace(sheet)}
	if s.validate != nil && loc.IsSet() {
		if err := s.validate(loc); err != nil {
			return err
		}
	}
	if err := s.scheduler.SetLocator(ctx, userKey, loc); err != nil {
		return err
	}
	s.persist(ctx, userKey)
	return nil
}

// SetInterval sets the polling interval in seconds. A non-empty warning is
// returned for intervals shorter than ShortIntervalWarning.
func (s *Service) SetInterval(ctx context.Context, userKey string, seconds int) (string, error) {
	d := time.Duration(seconds) * time.Second
	if err := s.registry.Session(userKey).SetInterval(d); err != nil {
		return "", err
	}
	s.persist(ctx, userKey)

	if d < ShortIntervalWarning {
		return "A short interval may cause the sheet host to throttle requests.", nil
	}
	return "", nil
}

// SetThreshold sets the minimum number of changes per notification.
func (s *Service) SetThreshold(ctx context.Context, userKey string, n int) error {
	if err := s.registry.Session(userKey).SetThreshold(n); err != nil {
		return err
	}
	s.persist(ctx, userKey)
	return nil
}

// SetColumns restricts diffing to the named columns. No names resets the
// filter to all columns.
func (s *Service) SetColumns(ctx context.Context, userKey string, columns []string) {
	trimmed := make([]string, 0, len(columns))
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			trimmed = append(trimmed, c)
		}
	}
	s.registry.Session(userKey).SetColumnFilter(NewColumnFilter(trimmed...))
	s.persist(ctx, userKey)
}

// SetFormat sets the notification format ("detailed" or "compact").
func (s *Service) SetFormat(ctx context.Context, userKey, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	s.registry.Session(userKey).SetFormat(f)
	s.persist(ctx, userKey)
	return nil
}

// Start begins monitoring for userKey.
func (s *Service) Start(ctx context.Context, userKey string) error {
	return s.scheduler.Start(ctx, userKey)
}

// Stop ends monitoring for userKey.
func (s *Service) Stop(ctx context.Context, userKey string) {
	s.scheduler.Stop(ctx, userKey)
}

// Reset restores userKey's session to defaults.
func (s *Service) Reset(ctx context.Context, userKey string) {
	s.scheduler.Reset(ctx, userKey)
	s.persist(ctx, userKey)
}

// Preview diffs the live sheet against the stored baseline without changing
// the session.
func (s *Service) Preview(ctx context.Context, userKey string) ([]Change, error) {
	return s.scheduler.Preview(ctx, userKey)
}

// History returns up to limit notified batches for userKey, newest first.
func (s *Service) History(ctx context.Context, userKey string, limit int) ([]ChangeBatch, error) {
	return s.history.ListBatches(ctx, userKey, limit)
}

// HistoryStore returns the store change batches are recorded in.
func (s *Service) HistoryStore() HistoryStore {
	return s.history
}

// RestoreSettings loads persisted settings into the registry. Monitoring is
// not restarted; users start it explicitly.
func (s *Service) RestoreSettings(ctx context.Context) (int, error) {
	if s.settings == nil {
		return 0, nil
	}
	all, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore settings: %w", err)
	}
	for _, st := range all {
		s.registry.Session(st.UserKey).restore(st)
	}
	return len(all), nil
}

// Shutdown stops every monitoring loop.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.scheduler.Shutdown(ctx)
}

// persist saves userKey's settings. Failures are logged; the in-memory
// settings stay authoritative.
func (s *Service) persist(ctx context.Context, userKey string) {
	if s.settings == nil {
		return
	}
	st := s.registry.Session(userKey).Settings()
	if err := s.settings.SaveSettings(ctx, st); err != nil {
		slog.Error("failed to persist settings", "user", userKey, "error", err)
	}
}
