package core

// history.go records change batches that triggered a notification.
//
// Two stores implement HistoryStore: MemoryHistory (default, bounded per
// user) and the PostgreSQL store in internal/database. Sessions' settings are
// persisted through SettingsStore when a database is configured.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryPerUser bounds MemoryHistory per user.
const DefaultHistoryPerUser = 200

// ChangeBatch is one notified set of changes.
type ChangeBatch struct {
	ID         uuid.UUID `json:"id"`
	UserKey    string    `json:"user"`
	Locator    Locator   `json:"locator"`
	DetectedAt time.Time `json:"detected_at"`
	Changes    []Change  `json:"changes"`
}

// HistoryStore persists change batches.
type HistoryStore interface {
	AppendBatch(ctx context.Context, batch ChangeBatch) error
	ListBatches(ctx context.Context, userKey string, limit int) ([]ChangeBatch, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SettingsStore persists user-editable session settings across restarts.
type SettingsStore interface {
	SaveSettings(ctx context.Context, st Settings) error
	LoadSettings(ctx context.Context) ([]Settings, error)
}

// MemoryHistory is an in-process HistoryStore.
type MemoryHistory struct {
	perUser int

	mu      sync.RWMutex
	batches map[string][]ChangeBatch
}

// NewMemoryHistory keeps at most perUser batches per user (oldest dropped).
func NewMemoryHistory(perUser int) *MemoryHistory {
	if perUser <= 0 {
		perUser = DefaultHistoryPerUser
	}
	return &MemoryHistory{
		perUser: perUser,
		batches: make(map[string][]ChangeBatch),
	}
}

// AppendBatch stores a batch.
func (m *MemoryHistory) AppendBatch(_ context.Context, batch ChangeBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.batches[batch.UserKey], batch)
	if len(list) > m.perUser {
		list = list[len(list)-m.perUser:]
	}
	m.batches[batch.UserKey] = list
	return nil
}

// ListBatches returns up to limit batches, newest first. limit <= 0 means all.
func (m *MemoryHistory) ListBatches(_ context.Context, userKey string, limit int) ([]ChangeBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.batches[userKey]
	out := make([]ChangeBatch, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneBefore drops batches detected before cutoff.
func (m *MemoryHistory) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pruned int64
	for user, list := range m.batches {
		kept := list[:0]
		for _, b := range list {
			if b.DetectedAt.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			delete(m.batches, user)
		} else {
			m.batches[user] = kept
		}
	}
	return pruned, nil
}
