package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("<b>bad</b>", "Try again", "VAL001").Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "&lt;b&gt;bad&lt;/b&gt;")
	assert.Contains(t, out, "Try again")
	assert.Contains(t, out, "VAL001")
}

func TestStatusPage(t *testing.T) {
	var buf bytes.Buffer
	params := StatusPageParams{
		Status: core.Status{
			UserKey:       "alice",
			URL:           "https://example.com/s.csv",
			Sheet:         "Sheet1",
			IntervalSecs:  60,
			Running:       true,
			MaxErrorCount: 3,
			Threshold:     1,
			Format:        "detailed",
		},
		Pending: 2,
		History: []core.ChangeBatch{{
			DetectedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Changes:    []core.Change{{Cell: "A2", Column: "A", Kind: core.ChangeModified, Old: core.NumberCell(1), New: core.TextCell("<x>")}},
		}},
	}
	require.NoError(t, StatusPage(params).Render(context.Background(), &buf))

	out := buf.String()
	for _, want := range []string{"alice", "Sheet1", "60 seconds", "all columns", "none", "&lt;x&gt;", "/api/users/alice/history.xlsx"} {
		assert.Contains(t, out, want)
	}
	assert.False(t, strings.Contains(out, "<x>"), "cell values are escaped")
}

func TestDashboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dashboard(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No users yet.")
}
