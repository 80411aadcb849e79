package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchAt(user string, at time.Time) ChangeBatch {
	return ChangeBatch{ID: uuid.New(), UserKey: user, DetectedAt: at}
}

func TestMemoryHistory_BoundedPerUser(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.AppendBatch(ctx, batchAt("u1", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, h.AppendBatch(ctx, batchAt("u2", base)))

	got, err := h.ListBatches(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(4*time.Minute), got[0].DetectedAt)
	assert.Equal(t, base.Add(3*time.Minute), got[1].DetectedAt)

	other, err := h.ListBatches(ctx, "u2", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMemoryHistory_PruneBefore(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, h.AppendBatch(ctx, batchAt("u1", base.AddDate(0, 0, -5))))
	require.NoError(t, h.AppendBatch(ctx, batchAt("u1", base.AddDate(0, 0, 1))))
	require.NoError(t, h.AppendBatch(ctx, batchAt("u2", base.AddDate(0, 0, -1))))

	pruned, err := h.PruneBefore(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	left, _ := h.ListBatches(ctx, "u1", 0)
	assert.Len(t, left, 1)
	gone, _ := h.ListBatches(ctx, "u2", 0)
	assert.Empty(t, gone)
}

func TestStartHistoryPruner_RunsImmediately(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx, cancel := context.WithCancel(context.Background())

	old := time.Now().AddDate(0, 0, -40)
	require.NoError(t, h.AppendBatch(ctx, batchAt("u1", old)))
	require.NoError(t, h.AppendBatch(ctx, batchAt("u1", time.Now())))

	done := make(chan struct{})
	go func() {
		StartHistoryPruner(ctx, h, PruneConfig{RetentionDays: 30, CheckInterval: time.Hour})
		close(done)
	}()

	require.Eventually(t, func() bool {
		list, _ := h.ListBatches(context.Background(), "u1", 0)
		return len(list) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop after cancellation")
	}
}
