// Package source fetches monitored sheets and parses them into snapshots.
//
// Three kinds of locator URL are understood:
//
//   - Google Sheets links (https://docs.google.com/spreadsheets/d/<id>/...):
//     the named sheet is exported through the gviz CSV endpoint
//   - any other http(s) URL: downloaded as CSV, the sheet name is ignored
//   - file:// URLs: read from the local disk when files are allowed
//
// Client implements core.Fetcher. Identical concurrent fetches share one
// download, outbound requests are paced, and the number of downloads in
// flight is capped.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

const (
	googleSheetsHost = "docs.google.com"

	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "sheetwatch/1.0"

	// DefaultMaxBytes caps a downloaded body.
	DefaultMaxBytes = 20 << 20

	// DefaultTimeout bounds one shared download.
	DefaultTimeout = 30 * time.Second
)

// TargetKind tells how a resolved target is read.
type TargetKind int

const (
	TargetHTTP TargetKind = iota
	TargetFile
)

// Target is a locator resolved to something readable.
type Target struct {
	Kind  TargetKind
	URL   string // Download URL for TargetHTTP
	Path  string // File path for TargetFile
	Sheet string // Sheet name for workbook files
}

func (t Target) key() string {
	if t.Kind == TargetFile {
		if t.Sheet != "" {
			return "file:" + t.Path + "#" + t.Sheet
		}
		return "file:" + t.Path
	}
	return t.URL
}

// Resolve maps a locator to a download target.
func Resolve(loc core.Locator) (Target, error) {
	raw := strings.TrimSpace(loc.URL)
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return Target{}, invalidURL(loc, "not a URL")
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Path == "" {
			return Target{}, invalidURL(loc, "file URL has no path")
		}
		t := Target{Kind: TargetFile, Path: u.Path}
		if isWorkbook(u.Path) {
			t.Sheet = strings.TrimSpace(loc.Sheet)
		}
		return t, nil
	case "http", "https":
	default:
		return Target{}, invalidURL(loc, "unsupported scheme")
	}

	if u.Host == "" {
		return Target{}, invalidURL(loc, "missing host")
	}
	if !strings.EqualFold(u.Hostname(), googleSheetsHost) {
		return Target{Kind: TargetHTTP, URL: u.String()}, nil
	}

	id, published, ok := spreadsheetID(u.Path)
	if !ok {
		return Target{}, invalidURL(loc, "no spreadsheet id in link")
	}
	if published {
		// Published-to-web links already serve CSV for output=csv.
		return Target{Kind: TargetHTTP, URL: u.String()}, nil
	}
	return Target{Kind: TargetHTTP, URL: GvizCSVURL(id, loc.Sheet)}, nil
}

// spreadsheetID extracts the id from /spreadsheets/d/<id>/... paths.
// Published links (/spreadsheets/d/e/<id>/pub) are reported separately.
func spreadsheetID(path string) (id string, published bool, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "spreadsheets" || parts[1] != "d" || parts[2] == "" {
		return "", false, false
	}
	if parts[2] == "e" {
		return "", true, len(parts) > 3 && parts[3] != ""
	}
	return parts[2], false, true
}

// GvizCSVURL builds the CSV export URL for one sheet of a spreadsheet.
func GvizCSVURL(id, sheet string) string {
	q := url.Values{}
	q.Set("tqx", "out:csv")
	q.Set("sheet", sheet)
	return fmt.Sprintf("https://%s/spreadsheets/d/%s/gviz/tq?%s",
		googleSheetsHost, url.PathEscape(id), q.Encode())
}

func invalidURL(loc core.Locator, msg string) error {
	return core.ValidationError{
		Field:   "url",
		Value:   loc.URL,
		Message: msg,
		Err:     core.ErrInvalidSheetURL,
	}
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	HTTPClient        *http.Client
	UserAgent         string
	RequestsPerSecond float64 // Outbound pacing (0: unpaced)
	Burst             int
	MaxConcurrent     int           // Downloads in flight (default: 8)
	MaxWait           time.Duration // Wait for a download slot (default: 10s)
	MaxBytes          int64         // Body cap (default: 20 MiB)
	Timeout           time.Duration // Upper bound for one shared download (default: 30s)
	AllowFiles        bool          // Accept file:// locators
	Now               func() time.Time
}

// Client fetches sheets over HTTP or from disk.
type Client struct {
	http  *http.Client
	opts  Options
	pace  *rate.Limiter
	slots *FetchLimiter
	group singleflight.Group
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		http:  opts.HTTPClient,
		opts:  opts,
		slots: NewFetchLimiter(opts.MaxConcurrent, opts.MaxWait),
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		c.pace = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Validate reports whether loc can be fetched by this client.
func (c *Client) Validate(loc core.Locator) error {
	t, err := Resolve(loc)
	if err != nil {
		return err
	}
	if t.Kind == TargetFile && !c.opts.AllowFiles {
		return invalidURL(loc, "local files are not allowed")
	}
	return nil
}

// Limiter exposes the download limiter.
func (c *Client) Limiter() *FetchLimiter {
	return c.slots
}

// Fetch implements core.Fetcher.
//
// Concurrent fetches of the same target share one download. The download is
// detached from every caller and bounded by Options.Timeout, so a caller that
// gives up only stops waiting for it.
func (c *Client) Fetch(ctx context.Context, loc core.Locator) (*core.Snapshot, error) {
	if err := c.Validate(loc); err != nil {
		return nil, core.NewFetchError(loc, err)
	}
	t, _ := Resolve(loc)

	ch := c.group.DoChan(t.key(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()
		return c.load(loadCtx, t)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, core.NewFetchError(loc, res.Err)
		}
		if res.Shared {
			slog.Debug("sheet download shared", "url", t.key())
		}
		return res.Val.(*core.Snapshot), nil
	case <-ctx.Done():
		return nil, core.NewFetchError(loc, ctx.Err())
	}
}

func (c *Client) load(ctx context.Context, t Target) (*core.Snapshot, error) {
	if t.Kind == TargetFile {
		return ReadFile(t.Path, t.Sheet, c.opts.Now(), c.opts.MaxBytes)
	}

	if err := c.slots.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.slots.Release()

	if c.pace != nil {
		if err := c.pace.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	return c.download(ctx, t.URL)
}

func (c *Client) download(ctx context.Context, target string) (*core.Snapshot, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Unshared sheets redirect to a sign-in page instead of failing.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(strings.ToLower(ct), "text/html") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	body := newCappedReader(resp.Body, c.opts.MaxBytes)
	snap, err := ParseCSV(body, c.opts.Now())
	if err != nil {
		return nil, err
	}

	slog.Debug("sheet downloaded",
		"url", target,
		"bytes", body.BytesRead(),
		"rows", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}
