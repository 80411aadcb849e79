// Package core provides the business logic for sheet monitoring.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Sheet not set: Sheet URL or sheet name is missing
//	         Action: Set the sheet URL and sheet name first
//	         Patterns: "sheet url or sheet name not set"
//
// # Validation Errors (VAL001-VAL099)
//
// Setter arguments rejected at the command boundary:
//
//	VAL001 - Invalid interval: Interval must be a positive number of seconds
//	VAL002 - Invalid threshold: Threshold must be a positive number of changes
//	VAL003 - Invalid format: Format must be detailed or compact
//	VAL004 - Invalid sheet: Sheet URL is not a Google Sheets or CSV URL
//	VAL005 - Invalid request: Request body could not be read
//	VAL006 - Invalid user: User key is empty, too long or has bad characters
//	         Patterns: "invalid request body"
//
// # Fetch Errors (FETCH001-FETCH099)
//
// Failures reading the monitored sheet. These count toward the error limit:
//
//	FETCH001 - Sheet not found: The sheet returned 404
//	           Patterns: "status 404"
//	FETCH002 - Access denied: The sheet is not shared publicly
//	           Patterns: "status 401", "status 403"
//	FETCH003 - Source error: The sheet host returned an error
//	           Patterns: "unexpected status"
//	FETCH004 - Timeout: The sheet took too long to respond
//	           Patterns: "deadline exceeded", "timeout"
//	FETCH005 - Connection failed: The sheet host could not be reached
//	           Patterns: "connection refused", "no such host"
//	FETCH006 - Invalid CSV: The sheet could not be parsed
//	           Patterns: "parse csv"
//	FETCH007 - Too large: The sheet exceeds the download limit
//	           Patterns: "body too large"
//	FETCH008 - Busy: Too many sheets are being fetched at once
//	           Patterns: "too many concurrent fetches"
//	FETCH009 - Not published: The host answered with a web page, not CSV
//	           Patterns: "unexpected content type"
//	FETCH010 - Unknown sheet: The workbook has no sheet with that name
//	           Patterns: "does not exist"
//	FETCH011 - Unreadable file: A local sheet file could not be opened
//	           Patterns: "open sheet file"
//
// # Limit Errors (LIM001-LIM099)
//
//	LIM001 - Monitoring stopped: Too many consecutive errors
//	         Patterns: "consecutive errors"
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused: Unable to connect to database
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Typed errors (ConfigError, ValidationError, LimitExceededError) are mapped
// first. Everything else is matched case-insensitively with strings.Contains.
// The first matching pattern wins, so more specific patterns come first.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgLocatorNotSet = UserMessage{
		Message: "Sheet URL or sheet name is not set",
		Action:  "Set the sheet URL and sheet name first",
		Code:    "CFG001",
	}
	msgLimitExceeded = UserMessage{
		Message: "Monitoring stopped after too many consecutive errors",
		Action:  "Check the sheet is shared and start monitoring again",
		Code:    "LIM001",
	}
)

// validationMessages maps validation sentinels to user messages.
var validationMessages = map[error]UserMessage{
	ErrInvalidInterval: {
		Message: "Interval must be a positive number of seconds",
		Action:  "Example: 60",
		Code:    "VAL001",
	},
	ErrInvalidThreshold: {
		Message: "Threshold must be a positive number of changes",
		Action:  "Example: 3",
		Code:    "VAL002",
	},
	ErrInvalidFormat: {
		Message: "Format must be detailed or compact",
		Action:  "Use detailed or compact",
		Code:    "VAL003",
	},
	ErrInvalidUserKey: {
		Message: "User key is not valid",
		Action:  "Use letters, digits and _.@:- only",
		Code:    "VAL006",
	},
	ErrInvalidSheetURL: {
		Message: "Sheet URL is not valid",
		Action:  "Use a link like https://docs.google.com/spreadsheets/d/SHEET_ID and a sheet name",
		Code:    "VAL004",
	},
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Fetch Errors (FETCH001-FETCH011)
	// =========================================================================
	{
		pattern: "status 404",
		msg: UserMessage{
			Message: "Sheet not found",
			Action:  "Check the sheet URL and sheet name",
			Code:    "FETCH001",
		},
	},
	{
		pattern: "status 401",
		msg: UserMessage{
			Message: "Access to the sheet was denied",
			Action:  "Share the sheet so that anyone with the link can view it",
			Code:    "FETCH002",
		},
	},
	{
		pattern: "status 403",
		msg: UserMessage{
			Message: "Access to the sheet was denied",
			Action:  "Share the sheet so that anyone with the link can view it",
			Code:    "FETCH002",
		},
	},
	{
		pattern: "unexpected status",
		msg: UserMessage{
			Message: "The sheet host returned an error",
			Action:  "The check will be retried automatically",
			Code:    "FETCH003",
		},
	},
	{
		pattern: "unexpected content type",
		msg: UserMessage{
			Message: "The sheet did not return CSV data",
			Action:  "Share the sheet so that anyone with the link can view it",
			Code:    "FETCH009",
		},
	},
	{
		pattern: "too many concurrent fetches",
		msg: UserMessage{
			Message: "Too many sheets are being checked at once",
			Action:  "The check will be retried automatically",
			Code:    "FETCH008",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The sheet took too long to respond",
			Action:  "The check will be retried automatically",
			Code:    "FETCH004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The sheet took too long to respond",
			Action:  "The check will be retried automatically",
			Code:    "FETCH004",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The sheet host could not be reached",
			Action:  "Check the sheet URL",
			Code:    "FETCH005",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The sheet could not be read as CSV",
			Action:  "Check the sheet name is correct",
			Code:    "FETCH006",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The sheet name was not found in the workbook",
			Action:  "Check the sheet name is correct",
			Code:    "FETCH010",
		},
	},
	{
		pattern: "open sheet file",
		msg: UserMessage{
			Message: "The sheet file could not be opened",
			Action:  "Check the file path",
			Code:    "FETCH011",
		},
	},
	{
		pattern: "body too large",
		msg: UserMessage{
			Message: "The sheet is larger than the download limit",
			Action:  "Watch a smaller sheet or raise FETCH_MAX_BYTES",
			Code:    "FETCH007",
		},
	},

	// =========================================================================
	// Database Errors (DB004, DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body",
			Code:    "VAL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for nil errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return msgLocatorNotSet
	}

	var limitErr *LimitExceededError
	if errors.As(err, &limitErr) {
		return msgLimitExceeded
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		if msg, ok := validationMessages[valErr.Err]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns a formatted user-friendly error string.
// Includes the error code and suggested action.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing returns true if the error maps to a known user message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
