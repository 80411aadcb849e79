package source

// limiter.go caps the number of sheet downloads in flight.
//
// The limiter is a semaphore: when every slot is taken, a fetch waits up to
// maxWait for one to free up before failing with ErrTooManyFetches. The
// failure counts as an ordinary fetch error for the session that hit it.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyFetches is returned when no download slot frees up in time.
var ErrTooManyFetches = errors.New("too many concurrent fetches, try again later")

const (
	// DefaultMaxConcurrentFetches is the default number of parallel downloads.
	DefaultMaxConcurrentFetches = 8

	// DefaultMaxWait is how long a fetch waits for a slot.
	DefaultMaxWait = 10 * time.Second
)

// FetchLimiter limits concurrent downloads.
type FetchLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewFetchLimiter allows at most maxConcurrent downloads at once.
func NewFetchLimiter(maxConcurrent int, maxWait time.Duration) *FetchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFetches
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &FetchLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. Release must be called once the download is done.
func (l *FetchLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyFetches
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *FetchLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of downloads in flight.
func (l *FetchLimiter) Active() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *FetchLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// LimiterStatus is a point-in-time view of a FetchLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports the limiter state for the health endpoint.
func (l *FetchLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.Active(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no download is in flight or ctx ends.
func (l *FetchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
