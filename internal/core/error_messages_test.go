package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "locator not set maps to config error",
			err:         ErrLocatorNotSet,
			wantCode:    "CFG001",
			wantMessage: "Sheet URL or sheet name is not set",
		},
		{
			name:        "wrapped config error still maps",
			err:         fmt.Errorf("start monitoring: %w", ErrLocatorNotSet),
			wantCode:    "CFG001",
			wantMessage: "Sheet URL or sheet name is not set",
		},
		{
			name:        "invalid interval",
			err:         ValidationError{Field: "interval", Message: "must be greater than 0", Err: ErrInvalidInterval},
			wantCode:    "VAL001",
			wantMessage: "Interval must be a positive number of seconds",
		},
		{
			name:        "invalid threshold",
			err:         ValidationError{Field: "threshold", Message: "must be greater than 0", Err: ErrInvalidThreshold},
			wantCode:    "VAL002",
			wantMessage: "Threshold must be a positive number of changes",
		},
		{
			name:        "invalid format",
			err:         ValidationError{Field: "format", Err: ErrInvalidFormat},
			wantCode:    "VAL003",
			wantMessage: "Format must be detailed or compact",
		},
		{
			name:        "sheet not found",
			err:         &FetchError{Err: errors.New("unexpected status 404 Not Found")},
			wantCode:    "FETCH001",
			wantMessage: "Sheet not found",
		},
		{
			name:        "sheet not shared",
			err:         errors.New("unexpected status 403 Forbidden"),
			wantCode:    "FETCH002",
			wantMessage: "Access to the sheet was denied",
		},
		{
			name:        "server error",
			err:         errors.New("unexpected status 500 Internal Server Error"),
			wantCode:    "FETCH003",
			wantMessage: "The sheet host returned an error",
		},
		{
			name:        "fetch timeout",
			err:         fmt.Errorf("get sheet: %w", context.DeadlineExceeded),
			wantCode:    "FETCH004",
			wantMessage: "The sheet took too long to respond",
		},
		{
			name:        "parse failure",
			err:         errors.New("parse csv: record on line 3: wrong number of fields"),
			wantCode:    "FETCH006",
			wantMessage: "The sheet could not be read as CSV",
		},
		{
			name:        "html instead of csv",
			err:         errors.New(`unexpected content type "text/html; charset=utf-8"`),
			wantCode:    "FETCH009",
			wantMessage: "The sheet did not return CSV data",
		},
		{
			name:        "workbook sheet missing",
			err:         errors.New("read /data/book.xlsx: sheet Summary does not exist"),
			wantCode:    "FETCH010",
			wantMessage: "The sheet name was not found in the workbook",
		},
		{
			name:        "local file missing",
			err:         errors.New("open sheet file: open /data/x.csv: no such file or directory"),
			wantCode:    "FETCH011",
			wantMessage: "The sheet file could not be opened",
		},
		{
			name:        "limit exceeded",
			err:         &LimitExceededError{Count: 3},
			wantCode:    "LIM001",
			wantMessage: "Monitoring stopped after too many consecutive errors",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("PARSE CSV: bare quote"),
			wantCode:    "FETCH006",
			wantMessage: "The sheet could not be read as CSV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrLocatorNotSet)

	expected := "Sheet URL or sheet name is not set (Code: CFG001). Set the sheet URL and sheet name first"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("unexpected status 404"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	loc := Locator{URL: "https://example.com/s.csv", Sheet: "Sheet1"}

	err := NewFetchError(loc, cause)
	if !errors.Is(err, cause) {
		t.Error("FetchError should unwrap to its cause")
	}

	// Wrapping twice keeps a single FetchError layer
	again := NewFetchError(loc, fmt.Errorf("retry: %w", err))
	var fe *FetchError
	if !errors.As(again, &fe) || fe.Err != cause {
		t.Errorf("NewFetchError re-wrapped an existing FetchError: %v", again)
	}

	if NewFetchError(loc, nil) != nil {
		t.Error("NewFetchError(nil) should be nil")
	}
}
