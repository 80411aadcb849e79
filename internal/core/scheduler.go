package core

// scheduler.go runs one cancellable monitoring loop per user.
//
// Each loop repeats a check cycle:
//  1. Fetch the sheet through the Fetcher
//  2. On the first successful fetch, store the baseline and report it
//  3. Otherwise diff against the previous snapshot, apply the threshold and
//     deliver the rendered batch through the Sink
//  4. Replace the previous snapshot and sleep for the session interval
//
// Fetch failures increment the session's error count. Reaching the limit stops
// the loop; the user must start monitoring again.
//
// Cancellation is cooperative. The sleep between cycles is the only point
// where a loop notices it was cancelled. A fetch already in flight runs to
// completion (bounded by FetchTimeout). Once its loop was stopped or
// replaced, the result may only seed a missing baseline for the same
// locator: it never touches the error count and never reaches the Sink.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRestartGrace is added to the interval when waiting for a replaced
// loop to finish.
const DefaultRestartGrace = time.Second

// Fetcher reads the current state of a monitored sheet.
// Returned snapshots have normalized columns. Errors are treated as
// recoverable fetch failures.
type Fetcher interface {
	Fetch(ctx context.Context, loc Locator) (*Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, loc Locator) (*Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, loc Locator) (*Snapshot, error) {
	return f(ctx, loc)
}

// Sink delivers human-readable messages to a user. Delivery is
// fire-and-forget: failures are logged and never count as fetch errors.
type Sink interface {
	Deliver(ctx context.Context, userKey, text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, userKey, text string) error

func (f SinkFunc) Deliver(ctx context.Context, userKey, text string) error {
	return f(ctx, userKey, text)
}

// SchedulerOptions tunes a Scheduler. Zero values select defaults.
type SchedulerOptions struct {
	FetchTimeout time.Duration    // Upper bound for one fetch (0: no timeout)
	RestartGrace time.Duration    // Extra wait for a replaced loop (default: 1s)
	ChunkSize    int              // Max characters per delivered message (default: 4096)
	History      HistoryStore     // Where notified batches are recorded (optional)
	Now          func() time.Time // Clock (default: time.Now)
}

// Scheduler owns the per-user monitoring loops.
type Scheduler struct {
	registry *Registry
	fetcher  Fetcher
	sink     Sink
	opts     SchedulerOptions

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler over registry.
func NewScheduler(registry *Registry, fetcher Fetcher, sink Sink, opts SchedulerOptions) *Scheduler {
	if opts.RestartGrace <= 0 {
		opts.RestartGrace = DefaultRestartGrace
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry:  registry,
		fetcher:   fetcher,
		sink:      sink,
		opts:      opts,
		baseCtx:   ctx,
		cancelAll: cancel,
	}
}

// Registry returns the session registry the scheduler works on.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start begins monitoring for userKey.
//
// If a loop is already running it is cancelled first, and Start waits up to
// interval+RestartGrace for it to end before installing the new one. Returns
// ErrLocatorNotSet when the session has no sheet configured.
func (s *Scheduler) Start(ctx context.Context, userKey string) error {
	sess := s.registry.Session(userKey)

	sess.mu.Lock()
	if !sess.locator.IsSet() {
		sess.mu.Unlock()
		return ErrLocatorNotSet
	}
	old := sess.task
	sess.task = nil
	sess.running = false
	wait := sess.interval + s.opts.RestartGrace
	sess.mu.Unlock()

	if old != nil {
		old.cancel()
		if !waitTask(ctx, old, wait) {
			slog.Warn("previous monitoring task still running after restart wait",
				"user", userKey,
				"task_id", old.id,
				"waited_ms", wait.Milliseconds(),
			)
		}
	}

	taskCtx, cancel := context.WithCancel(s.baseCtx)
	t := &task{id: uuid.New(), cancel: cancel, done: make(chan struct{})}

	sess.mu.Lock()
	if stale := sess.task; stale != nil {
		// A concurrent Start won the race; replace it.
		stale.cancel()
	}
	sess.running = true
	sess.errorCount = 0
	sess.task = t
	interval := sess.interval
	threshold := sess.threshold
	sess.mu.Unlock()

	s.deliver(ctx, userKey, fmt.Sprintf(
		"Monitoring started\nCheck interval: %d seconds\nNotification threshold: %d changes",
		int(interval/time.Second), threshold,
	))

	s.wg.Add(1)
	go s.run(taskCtx, sess, t)
	return nil
}

// Stop ends monitoring for userKey and resets its error count.
func (s *Scheduler) Stop(ctx context.Context, userKey string) {
	sess := s.registry.Session(userKey)

	sess.mu.Lock()
	t := sess.task
	sess.running = false
	sess.task = nil
	sess.errorCount = 0
	sess.mu.Unlock()

	if t != nil {
		t.cancel()
	}
	s.deliver(ctx, userKey, "Monitoring stopped")
}

// SetLocator points the session at a new sheet. The previous snapshot is
// dropped so the next run captures a fresh baseline. A running loop is
// stopped and must be restarted explicitly.
func (s *Scheduler) SetLocator(ctx context.Context, userKey string, loc Locator) error {
	if !loc.IsSet() {
		return ValidationError{
			Field:   "sheet",
			Value:   loc.String(),
			Message: "sheet url and sheet name are both required",
			Err:     ErrInvalidSheetURL,
		}
	}

	sess := s.registry.Session(userKey)
	if t := sess.setLocator(loc); t != nil {
		t.cancel()
		s.deliver(ctx, userKey,
			"Monitoring stopped because the sheet settings changed. Start monitoring again to continue.")
	}
	return nil
}

// Reset restores the session to defaults, cancelling any running loop.
func (s *Scheduler) Reset(ctx context.Context, userKey string) {
	sess := s.registry.Session(userKey)
	if t := sess.reset(); t != nil {
		t.cancel()
	}
	slog.Info("session reset", "user", userKey)
}

// Preview fetches the sheet once and diffs it against the stored baseline
// without changing the session. With no baseline yet, it returns no changes.
func (s *Scheduler) Preview(ctx context.Context, userKey string) ([]Change, error) {
	sess := s.registry.Session(userKey)

	sess.mu.Lock()
	loc := sess.locator
	prev := sess.previous
	filter := sess.columns.Clone()
	sess.mu.Unlock()

	if !loc.IsSet() {
		return nil, ErrLocatorNotSet
	}

	fetchCtx, cancel := s.fetchContext(ctx)
	defer cancel()

	snap, err := s.fetcher.Fetch(fetchCtx, loc)
	if err != nil {
		return nil, NewFetchError(loc, err)
	}
	if prev == nil || snap.Empty() {
		return nil, nil
	}
	return Diff(prev, snap, filter), nil
}

// Shutdown cancels every loop and waits for them to exit or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the body of one monitoring loop.
func (s *Scheduler) run(ctx context.Context, sess *Session, t *task) {
	logger := slog.With("user", sess.userKey, "task_id", t.id)

	defer s.wg.Done()
	defer close(t.done)
	defer sess.detach(t)

	logger.Info("monitoring task started")

	for sess.owns(t) {
		if halted := s.cycle(ctx, sess, t, logger); halted {
			return
		}
		if !sleep(ctx, sess.Interval()) {
			logger.Info("monitoring task cancelled")
			return
		}
	}
	logger.Info("monitoring task finished")
}

// cycle performs one fetch-diff-notify round. It reports whether the loop
// must stop: the error limit was reached or the loop lost its session.
func (s *Scheduler) cycle(ctx context.Context, sess *Session, t *task, logger *slog.Logger) bool {
	sess.mu.Lock()
	loc := sess.locator
	gen := sess.generation
	sess.mu.Unlock()

	start := s.opts.Now()

	// In-flight fetches are not preempted by cancellation, only by the timeout.
	fetchCtx, cancel := s.fetchContext(context.WithoutCancel(ctx))
	snap, err := s.fetcher.Fetch(fetchCtx, loc)
	cancel()

	if err != nil {
		return s.recordFailure(ctx, sess, t, loc, err, logger)
	}

	logger.Debug("sheet fetched",
		"rows", snap.Len(),
		"columns", len(snap.columns),
		"duration_ms", s.opts.Now().Sub(start).Milliseconds(),
	)
	s.apply(ctx, sess, t, loc, gen, snap, logger)
	return false
}

// recordFailure accounts one fetch failure. Failures of a loop that no
// longer owns the session are logged and dropped.
func (s *Scheduler) recordFailure(ctx context.Context, sess *Session, t *task, loc Locator, err error, logger *slog.Logger) bool {
	fetchErr := NewFetchError(loc, err)

	sess.mu.Lock()
	if !sess.running || sess.task != t {
		sess.mu.Unlock()
		logger.Info("dropping fetch failure of replaced task", "error", fetchErr)
		return true
	}
	sess.errorCount++
	count := sess.errorCount
	limit := sess.maxErrorCount
	sess.lastError = fetchErr.Error()
	halted := count >= limit
	if halted {
		sess.running = false
		sess.task = nil
	}
	sess.mu.Unlock()

	logger.Error("sheet fetch failed",
		"error", fetchErr,
		"error_count", count,
		"max_error_count", limit,
	)

	if halted {
		limitErr := &LimitExceededError{Count: limit, Last: fetchErr}
		logger.Warn("monitoring halted", "error", limitErr)
		s.deliver(ctx, sess.userKey, fmt.Sprintf("Monitoring stopped after %d consecutive errors.", limit))
		return true
	}

	s.deliver(ctx, sess.userKey, "Error reading the sheet: "+fetchErrorText(err))
	return false
}

// fetchErrorText renders err for the user. Errors without a dedicated
// message carry their own text so the cause is not lost.
func fetchErrorText(err error) string {
	text := FormatUserError(err)
	if !IsUserFacing(err) {
		text += " Details: " + err.Error()
	}
	return text
}

// apply processes a successful fetch. A loop that no longer owns the
// session may only store a missing baseline.
func (s *Scheduler) apply(ctx context.Context, sess *Session, t *task, loc Locator, gen uint64, snap *Snapshot, logger *slog.Logger) {
	now := s.opts.Now()

	sess.mu.Lock()
	live := sess.running && sess.task == t

	if sess.generation != gen {
		sess.mu.Unlock()
		logger.Info("discarding snapshot for replaced sheet", "sheet", loc.Sheet)
		return
	}

	if !live {
		if sess.previous == nil && !snap.Empty() {
			sess.previous = snap
		}
		sess.mu.Unlock()
		logger.Info("result of replaced task not reported", "sheet", loc.Sheet)
		return
	}

	sess.lastCheck = now

	if snap.Empty() {
		sess.mu.Unlock()
		s.deliver(ctx, sess.userKey, fmt.Sprintf("Sheet %q is empty.", loc.Sheet))
		return
	}

	prev := sess.previous
	if prev == nil {
		sess.previous = snap
		sess.mu.Unlock()
		s.deliver(ctx, sess.userKey, fmt.Sprintf("Monitoring started for sheet %q", loc.Sheet))
		return
	}

	filter := sess.columns.Clone()
	format := sess.format
	sess.mu.Unlock()

	changes := Diff(prev, snap, filter)

	if sess.Evaluate(changes) {
		for _, chunk := range Format(changes, format, s.opts.ChunkSize) {
			s.deliver(ctx, sess.userKey, chunk)
		}

		sess.mu.Lock()
		if sess.task == t {
			sess.errorCount = 0
		}
		sess.mu.Unlock()

		s.record(ctx, sess.userKey, loc, now, changes, logger)
	} else if len(changes) > 0 {
		logger.Debug("changes below threshold", "changes", len(changes))
	}

	sess.mu.Lock()
	if sess.generation == gen {
		sess.previous = snap
	}
	sess.mu.Unlock()
}

// record appends a notified batch to the history store, if any.
func (s *Scheduler) record(ctx context.Context, userKey string, loc Locator, at time.Time, changes []Change, logger *slog.Logger) {
	if s.opts.History == nil {
		return
	}
	batch := ChangeBatch{
		ID:         uuid.New(),
		UserKey:    userKey,
		Locator:    loc,
		DetectedAt: at,
		Changes:    changes,
	}
	if err := s.opts.History.AppendBatch(context.WithoutCancel(ctx), batch); err != nil {
		logger.Error("failed to record change batch", "batch_id", batch.ID, "error", err)
	}
}

// deliver sends text through the sink. Failures are logged only.
func (s *Scheduler) deliver(ctx context.Context, userKey, text string) {
	if err := s.sink.Deliver(context.WithoutCancel(ctx), userKey, text); err != nil {
		slog.Warn("message delivery failed", "user", userKey, "error", err)
	}
}

func (s *Scheduler) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.FetchTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// owns reports whether t is the session's active loop.
func (s *Session) owns(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.task == t
}

// detach clears the task handle if it still belongs to t.
func (s *Session) detach(t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == t {
		s.running = false
		s.task = nil
	}
}

// sleep waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// waitTask waits up to d for t to finish. It reports whether it did.
func waitTask(ctx context.Context, t *task, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
