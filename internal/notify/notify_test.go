package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

func TestInbox_DeliverAndDrain(t *testing.T) {
	box := NewInbox(3)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three", "four"} {
		require.NoError(t, box.Deliver(ctx, "u1", text))
	}
	require.NoError(t, box.Deliver(ctx, "u2", "other"))
	assert.Equal(t, 3, box.Pending("u1"))

	msgs, dropped := box.Drain("u1")
	require.Len(t, msgs, 3)
	assert.Equal(t, "two", msgs[0].Text, "oldest message dropped first")
	assert.Equal(t, "four", msgs[2].Text)
	assert.Equal(t, 1, dropped)

	msgs, dropped = box.Drain("u1")
	assert.Empty(t, msgs)
	assert.Zero(t, dropped)
	assert.Equal(t, 1, box.Pending("u2"))
}

func TestWebhook_Deliver(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, WithUserAgent("test-agent"))
	require.NoError(t, hook.Deliver(context.Background(), "u1", "Changes:\nA2: 1 → 2\n"))

	assert.Equal(t, "u1", got.User)
	assert.Equal(t, "Changes:\nA2: 1 → 2\n", got.Text)
	assert.False(t, got.SentAt.IsZero())
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithHTTPClient(srv.Client())).Deliver(context.Background(), "u1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

type failingSink struct{ err error }

func (f failingSink) Deliver(context.Context, string, string) error { return f.err }

func TestFanout(t *testing.T) {
	box := NewInbox(0)
	boom := errors.New("boom")

	var sink core.Sink = Fanout{failingSink{err: boom}, box}
	err := sink.Deliver(context.Background(), "u1", "hello")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, box.Pending("u1"), "later sinks still receive the message")
}

func TestLog_Deliver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NoError(t, Log{Logger: logger}.Deliver(context.Background(), "u1", "hi"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notification", entry["msg"])
	assert.Equal(t, "u1", entry["user"])
	assert.Equal(t, "hi", entry["text"])
}
