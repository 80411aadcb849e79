package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locator identifies the monitored source: a sheet URL plus a sheet (tab) name.
type Locator struct {
	URL   string `json:"url"`
	Sheet string `json:"sheet"`
}

// IsSet reports whether both parts of the locator are present.
func (l Locator) IsSet() bool {
	return strings.TrimSpace(l.URL) != "" && strings.TrimSpace(l.Sheet) != ""
}

func (l Locator) String() string {
	return fmt.Sprintf("%s [%s]", l.URL, l.Sheet)
}

// NotificationFormat selects how change batches are rendered.
type NotificationFormat int

const (
	FormatDetailed NotificationFormat = iota
	FormatCompact
)

func (f NotificationFormat) String() string {
	if f == FormatCompact {
		return "compact"
	}
	return "detailed"
}

// ParseFormat converts "detailed" or "compact" (case-insensitive).
func ParseFormat(s string) (NotificationFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detailed":
		return FormatDetailed, nil
	case "compact":
		return FormatCompact, nil
	default:
		return FormatDetailed, ValidationError{
			Field:   "format",
			Value:   s,
			Message: "must be detailed or compact",
			Err:     ErrInvalidFormat,
		}
	}
}

// Defaults holds the values a new or reset session starts with.
type Defaults struct {
	Interval      time.Duration // Polling interval (default: 60s)
	Threshold     int           // Minimum changes per notification (default: 1)
	MaxErrorCount int           // Consecutive fetch failures before stopping (default: 3)
	Format        NotificationFormat
}

// DefaultSessionDefaults returns the stock session settings.
func DefaultSessionDefaults() Defaults {
	return Defaults{
		Interval:      60 * time.Second,
		Threshold:     1,
		MaxErrorCount: 3,
		Format:        FormatDetailed,
	}
}

func (d Defaults) withFallbacks() Defaults {
	std := DefaultSessionDefaults()
	if d.Interval <= 0 {
		d.Interval = std.Interval
	}
	if d.Threshold <= 0 {
		d.Threshold = std.Threshold
	}
	if d.MaxErrorCount <= 0 {
		d.MaxErrorCount = std.MaxErrorCount
	}
	return d
}

// task is the handle of a running monitoring loop.
type task struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

// Session is the monitoring state of one user.
//
// Every field is guarded by mu. The previous snapshot is replaced wholesale
// each cycle and never mutated in place.
type Session struct {
	userKey  string
	defaults Defaults

	mu            sync.Mutex
	locator       Locator
	generation    uint64 // Bumped whenever the locator changes
	interval      time.Duration
	running       bool
	previous      *Snapshot
	threshold     int
	columns       ColumnFilter
	format        NotificationFormat
	errorCount    int
	maxErrorCount int
	lastCheck     time.Time
	lastError     string
	task          *task
}

// NewSession creates a session for userKey with the given defaults.
func NewSession(userKey string, d Defaults) *Session {
	s := &Session{userKey: userKey, defaults: d.withFallbacks()}
	s.resetLocked()
	return s
}

// resetLocked restores defaults. Caller must hold mu (or own s exclusively).
func (s *Session) resetLocked() {
	s.locator = Locator{}
	s.generation++
	s.interval = s.defaults.Interval
	s.running = false
	s.previous = nil
	s.threshold = s.defaults.Threshold
	s.columns = ColumnFilter{}
	s.format = s.defaults.Format
	s.errorCount = 0
	s.maxErrorCount = s.defaults.MaxErrorCount
	s.lastCheck = time.Time{}
	s.lastError = ""
	s.task = nil
}

// UserKey returns the key the session is registered under.
func (s *Session) UserKey() string {
	return s.userKey
}

// Locator returns the current source locator.
func (s *Session) Locator() Locator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locator
}

// Interval returns the polling interval.
func (s *Session) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether monitoring is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Previous returns the last accepted snapshot, or nil before the baseline.
func (s *Session) Previous() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// ErrorCount returns the consecutive fetch error count.
func (s *Session) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount
}

// Evaluate applies the threshold policy: notify iff the batch holds at least
// threshold changes.
func (s *Session) Evaluate(changes []Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(changes) >= s.threshold
}

// SetInterval changes the polling interval. It must be positive.
func (s *Session) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ValidationError{
			Field:   "interval",
			Value:   d.String(),
			Message: "must be greater than 0",
			Err:     ErrInvalidInterval,
		}
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
	return nil
}

// SetThreshold changes the notification threshold. It must be positive.
func (s *Session) SetThreshold(n int) error {
	if n <= 0 {
		return ValidationError{
			Field:   "threshold",
			Value:   fmt.Sprint(n),
			Message: "must be greater than 0",
			Err:     ErrInvalidThreshold,
		}
	}
	s.mu.Lock()
	s.threshold = n
	s.mu.Unlock()
	return nil
}

// SetColumnFilter replaces the column allow-list. An empty filter watches
// every column.
func (s *Session) SetColumnFilter(f ColumnFilter) {
	s.mu.Lock()
	s.columns = f.Clone()
	s.mu.Unlock()
}

// SetFormat changes the notification format.
func (s *Session) SetFormat(f NotificationFormat) {
	s.mu.Lock()
	s.format = f
	s.mu.Unlock()
}

// setLocator stores a new locator, clears the baseline and detaches any
// running task. The detached task, if any, is returned for cancellation.
func (s *Session) setLocator(loc Locator) *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locator = loc
	s.generation++
	s.previous = nil

	t := s.task
	if t != nil {
		s.running = false
		s.task = nil
	}
	return t
}

// reset restores defaults and returns the detached task, if any.
func (s *Session) reset() *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.task
	s.resetLocked()
	return t
}

// Settings is a copy of the user-editable part of a session.
type Settings struct {
	UserKey   string
	Locator   Locator
	Interval  time.Duration
	Threshold int
	Columns   []string
	Format    NotificationFormat
}

// Settings returns the user-editable configuration.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Settings{
		UserKey:   s.userKey,
		Locator:   s.locator,
		Interval:  s.interval,
		Threshold: s.threshold,
		Columns:   s.columns.Names(),
		Format:    s.format,
	}
}

// restore applies persisted settings without touching runtime state.
func (s *Session) restore(st Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Locator != s.locator {
		s.locator = st.Locator
		s.generation++
		s.previous = nil
	}
	if st.Interval > 0 {
		s.interval = st.Interval
	}
	if st.Threshold > 0 {
		s.threshold = st.Threshold
	}
	s.columns = NewColumnFilter(st.Columns...)
	s.format = st.Format
}

// Status is a point-in-time view of a session for reporting.
type Status struct {
	UserKey       string    `json:"user"`
	URL           string    `json:"url"`
	Sheet         string    `json:"sheet"`
	IntervalSecs  int       `json:"interval_seconds"`
	Running       bool      `json:"running"`
	LastCheck     time.Time `json:"last_check,omitzero"`
	ErrorCount    int       `json:"error_count"`
	MaxErrorCount int       `json:"max_error_count"`
	Threshold     int       `json:"threshold"`
	Columns       []string  `json:"columns"`
	Format        string    `json:"format"`
	LastError     string    `json:"last_error,omitempty"`
	HasBaseline   bool      `json:"has_baseline"`
	TaskID        string    `json:"task_id,omitempty"`
}

// Status returns a copy of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		UserKey:       s.userKey,
		URL:           s.locator.URL,
		Sheet:         s.locator.Sheet,
		IntervalSecs:  int(s.interval / time.Second),
		Running:       s.running,
		LastCheck:     s.lastCheck,
		ErrorCount:    s.errorCount,
		MaxErrorCount: s.maxErrorCount,
		Threshold:     s.threshold,
		Columns:       s.columns.Names(),
		Format:        s.format.String(),
		LastError:     s.lastError,
		HasBaseline:   s.previous != nil,
	}
	if s.task != nil {
		st.TaskID = s.task.id.String()
	}
	return st
}

// String renders the status report shown to users.
func (st Status) String() string {
	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	lastCheck := "no data"
	if !st.LastCheck.IsZero() {
		lastCheck = st.LastCheck.UTC().Format("2006-01-02 15:04:05") + " UTC"
	}

	columns := "all columns"
	if len(st.Columns) > 0 {
		quoted := make([]string, len(st.Columns))
		for i, c := range st.Columns {
			quoted[i] = "'" + c + "'"
		}
		columns = strings.Join(quoted, ", ")
	}

	running := "no"
	if st.Running {
		running = "yes"
	}

	var b strings.Builder
	b.WriteString("Monitoring status:\n\n")
	fmt.Fprintf(&b, "Sheet URL: %s\n", orDefault(st.URL, "not set"))
	fmt.Fprintf(&b, "Sheet name: %s\n", orDefault(st.Sheet, "not set"))
	fmt.Fprintf(&b, "Check interval: %d seconds\n", st.IntervalSecs)
	fmt.Fprintf(&b, "Monitoring active: %s\n", running)
	fmt.Fprintf(&b, "Last check: %s\n", lastCheck)
	fmt.Fprintf(&b, "Errors: %d/%d\n", st.ErrorCount, st.MaxErrorCount)
	fmt.Fprintf(&b, "Notification threshold: %d changes\n", st.Threshold)
	fmt.Fprintf(&b, "Watched columns: %s\n", columns)
	fmt.Fprintf(&b, "Notification format: %s\n", st.Format)
	fmt.Fprintf(&b, "Last error: %s\n", orDefault(st.LastError, "none"))
	return b.String()
}
