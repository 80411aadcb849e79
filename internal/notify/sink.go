// Package notify delivers monitoring messages to users.
//
// Every type here implements core.Sink:
//
//   - Inbox keeps the latest messages per user for the HTTP API to drain
//   - Webhook POSTs each message as JSON to a configured URL
//   - Log writes messages to the structured logger
//   - Fanout delivers to several sinks and joins their errors
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

// Fanout delivers every message to all of its sinks. A failing sink does not
// stop delivery to the others.
type Fanout []core.Sink

func (f Fanout) Deliver(ctx context.Context, userKey, text string) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, userKey, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes delivered messages to a logger.
type Log struct {
	Logger *slog.Logger // Defaults to slog.Default()
}

func (l Log) Deliver(_ context.Context, userKey, text string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "user", userKey, "chars", len([]rune(text)), "text", text)
	return nil
}
