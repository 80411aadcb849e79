package core

// errors.go defines the error taxonomy for monitoring.
//
//   - ConfigError: the session is missing its sheet locator. Reported to the
//     caller, no state change.
//   - ValidationError: a setter argument is out of range. The session is left
//     untouched.
//   - FetchError: the source could not be read or parsed. Recoverable; counts
//     toward the session's error limit and is retried on the next cycle.
//   - LimitExceededError: the error limit was reached and monitoring stopped.
//
// FetchError and LimitExceededError never leave the scheduler's task loop.
// ConfigError and ValidationError are returned to the command boundary.

import (
	"errors"
	"fmt"
)

var (
	ErrLocatorNotSet    = &ConfigError{Message: "sheet url or sheet name not set"}
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidFormat    = errors.New("invalid notification format")
	ErrInvalidSheetURL  = errors.New("invalid sheet url")
	ErrInvalidUserKey   = errors.New("invalid user key")
)

// ConfigError reports a session that is not configured well enough to run.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}

// ValidationError represents a rejected setter argument.
type ValidationError struct {
	Field   string // Setting name
	Value   string // The rejected value
	Message string // Human-readable error message
	Err     error  // Sentinel for errors.Is
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// FetchError wraps a failure to read or parse the monitored source.
type FetchError struct {
	Locator Locator
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err for loc. A nil err returns nil.
func NewFetchError(loc Locator, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Locator: loc, Err: err}
}

// LimitExceededError is raised when consecutive fetch failures reach the
// session's limit.
type LimitExceededError struct {
	Count int
	Last  error
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("monitoring stopped after %d consecutive errors", e.Count)
}

func (e *LimitExceededError) Unwrap() error {
	return e.Last
}
