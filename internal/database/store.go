// Package database persists monitor settings and notified change history in
// PostgreSQL.
//
// The query layer (db.go, models.go, queries.sql.go) is generated by sqlc
// from sql/queries.sql. Store adapts it to core.HistoryStore and
// core.SettingsStore.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

//go:embed sql/schema.sql
var schemaSQL string

var (
	_ core.HistoryStore  = (*Store)(nil)
	_ core.SettingsStore = (*Store)(nil)
)

// Store is the PostgreSQL-backed history and settings store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool. Call Migrate once before use.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// AppendBatch stores a batch and its changes in one transaction.
func (s *Store) AppendBatch(ctx context.Context, batch core.ChangeBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	q := New(s.pool).WithTx(tx)
	batchID := toPgUUID(batch.ID)

	err = q.InsertChangeBatch(ctx, InsertChangeBatchParams{
		ID:          batchID,
		UserKey:     batch.UserKey,
		SheetUrl:    batch.Locator.URL,
		SheetName:   batch.Locator.Sheet,
		DetectedAt:  toPgTimestamptz(batch.DetectedAt),
		ChangeCount: int32(len(batch.Changes)),
	})
	if err != nil {
		return fmt.Errorf("insert change batch: %w", err)
	}

	for i, c := range batch.Changes {
		if err := q.InsertCellChange(ctx, changeParams(batchID, i, c)); err != nil {
			return fmt.Errorf("insert change %s: %w", c.Cell, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListBatches returns up to limit batches for userKey, newest first.
// limit <= 0 means all.
func (s *Store) ListBatches(ctx context.Context, userKey string, limit int) ([]core.ChangeBatch, error) {
	q := New(s.pool)

	rowLimit := pgtype.Int8{}
	if limit > 0 {
		rowLimit = pgtype.Int8{Int64: int64(limit), Valid: true}
	}

	rows, err := q.ListChangeBatches(ctx, ListChangeBatchesParams{
		UserKey:  userKey,
		RowLimit: rowLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list change batches: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]pgtype.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	changeRows, err := q.ListCellChanges(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list cell changes: %w", err)
	}

	return assembleBatches(rows, changeRows), nil
}

// PruneBefore deletes batches detected before cutoff. Their changes go with
// them.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := New(s.pool).DeleteChangeBatchesBefore(ctx, toPgTimestamptz(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete change batches: %w", err)
	}
	return n, nil
}

// SaveSettings upserts the settings for st.UserKey.
func (s *Store) SaveSettings(ctx context.Context, st core.Settings) error {
	if err := New(s.pool).UpsertSettings(ctx, settingsParams(st)); err != nil {
		return fmt.Errorf("upsert settings for %s: %w", st.UserKey, err)
	}
	return nil
}

// LoadSettings returns every saved user's settings.
func (s *Store) LoadSettings(ctx context.Context) ([]core.Settings, error) {
	rows, err := New(s.pool).ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make([]core.Settings, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToSettings(row))
	}
	return out, nil
}

// assembleBatches attaches changes to their batches, keeping the batch order
// of rows and the stored position order of changes.
func assembleBatches(rows []ChangeBatch, changes []CellChange) []core.ChangeBatch {
	byBatch := make(map[[16]byte][]core.Change, len(rows))
	for _, c := range changes {
		byBatch[c.BatchID.Bytes] = append(byBatch[c.BatchID.Bytes], rowToChange(c))
	}

	out := make([]core.ChangeBatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.ChangeBatch{
			ID:         fromPgUUID(row.ID),
			UserKey:    row.UserKey,
			Locator:    core.Locator{URL: row.SheetUrl, Sheet: row.SheetName},
			DetectedAt: fromPgTimestamptz(row.DetectedAt),
			Changes:    byBatch[row.ID.Bytes],
		})
	}
	return out
}
