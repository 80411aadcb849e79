package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 10 * time.Second

// Webhook POSTs each message to a URL as JSON:
//
//	{"user": "...", "text": "...", "sent_at": "..."}
type Webhook struct {
	url        string
	httpClient *http.Client
	userAgent  string
	now        func() time.Time
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.httpClient = c
	}
}

// WithWebhookTimeout sets the per-request timeout.
func WithWebhookTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) WebhookOption {
	return func(w *Webhook) {
		w.userAgent = ua
	}
}

// NewWebhook creates a webhook sink for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
		userAgent:  "sheetwatch/1.0",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type webhookPayload struct {
	User   string    `json:"user"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

func (w *Webhook) Deliver(ctx context.Context, userKey, text string) error {
	body, err := json.Marshal(webhookPayload{User: userKey, Text: text, SentAt: w.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
