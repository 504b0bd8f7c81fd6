// Package core provides the catalog reconciliation logic.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Missing source: A required source has not been uploaded
//	         Action: Upload the primary catalog and the category attribute table
//	         Matches: MissingSourceError, "missing required source"
//
//	SRC002 - Duplicate key: A cross-reference table lists the same product twice
//	         Action: Keep one row per product code or use the long layout
//	         Matches: DuplicateKeyError, "duplicate key"
//
//	SRC003 - Unknown source: The source type is not configured
//	         Action: Use one of the documented source types
//	         Matches: ErrUnknownSource, "unknown source"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing column: A source lacks a column a feature needs
//	         Action: Check the file headers against the expected names
//	         Matches: MissingColumnError, "missing column"
//
//	COL002 - Unknown column: The requested column does not exist
//	         Action: Choose columns from the result header
//	         Matches: UnknownColumnError, "unknown column"
//
// # Query Errors (QRY001-QRY099)
//
//	QRY001 - No data: No catalog has been reconciled yet
//	         Action: Upload the required sources first
//	         Matches: ErrNoSnapshot, "no snapshot loaded"
//
//	QRY002 - Invalid selection: The filter or search input is malformed
//	         Action: Check the operator and values of the filter
//	         Matches: ErrInvalidSelection, "invalid selection"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	FILE002 - Invalid CSV: File is not a valid CSV
//	FILE003 - Encoding error: File contains invalid characters
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file has no data rows
//	FILE006 - Unsupported format: The file extension is not supported
//	FILE007 - Invalid spreadsheet: The workbook cannot be read
//	FILE008 - Invalid JSON: The JSON document is not an array of objects
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: Too many uploads in progress
//	UPL002 - Request cancelled: Request was cancelled
//	UPL003 - Request timeout: Request timed out
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Filter session not found
//	SES002 - Too many sessions: Session limit reached
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check the
// application logs for the original technical error.
//
// # Matching
//
// Typed errors are matched first with errors.As / errors.Is. Remaining errors
// are matched case-insensitively using strings.Contains; the first matching
// pattern wins, so more specific patterns come before general ones.
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

var (
	msgMissingSource = UserMessage{
		Message: "A required source has not been uploaded",
		Action:  "Upload the primary catalog and the category attribute table",
		Code:    "SRC001",
	}
	msgDuplicateKey = UserMessage{
		Message: "A cross-reference table lists the same product more than once",
		Action:  "Keep one row per product code or use the long brand/reference layout",
		Code:    "SRC002",
	}
	msgUnknownSource = UserMessage{
		Message: "Unknown source type",
		Action:  "Use one of: primary, mapping, cross_reference, applications, b2b, erp",
		Code:    "SRC003",
	}
	msgMissingColumn = UserMessage{
		Message: "A source is missing an expected column",
		Action:  "Check the file headers against the expected column names",
		Code:    "COL001",
	}
	msgUnknownColumn = UserMessage{
		Message: "The requested column does not exist",
		Action:  "Choose columns from the result header",
		Code:    "COL002",
	}
	msgNoSnapshot = UserMessage{
		Message: "No catalog has been loaded yet",
		Action:  "Upload the required sources first",
		Code:    "QRY001",
	}
	msgInvalidSelection = UserMessage{
		Message: "The filter or search input is not valid",
		Action:  "Check the operator and values of the filter",
		Code:    "QRY002",
	}
)

// typedErrors maps typed errors to user messages before pattern matching.
func typedMessage(err error) (UserMessage, bool) {
	var (
		missingSource *MissingSourceError
		duplicate     *DuplicateKeyError
		missingColumn *MissingColumnError
		unknownColumn *UnknownColumnError
	)
	switch {
	case errors.As(err, &missingSource), errors.Is(err, ErrMissingRequiredSource):
		return msgMissingSource, true
	case errors.As(err, &duplicate):
		return msgDuplicateKey, true
	case errors.As(err, &missingColumn):
		return msgMissingColumn, true
	case errors.As(err, &unknownColumn):
		return msgUnknownColumn, true
	case errors.Is(err, ErrNoSnapshot):
		return msgNoSnapshot, true
	case errors.Is(err, ErrInvalidSelection):
		return msgInvalidSelection, true
	case errors.Is(err, ErrUnknownSource):
		return msgUnknownSource, true
	}
	return UserMessage{}, false
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Source and query errors that crossed a process boundary as text
	// =========================================================================
	{pattern: "missing required source", msg: msgMissingSource},
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "unknown source", msg: msgUnknownSource},
	{pattern: "missing column", msg: msgMissingColumn},
	{pattern: "unknown column", msg: msgUnknownColumn},
	{pattern: "no snapshot loaded", msg: msgNoSnapshot},
	{pattern: "invalid selection", msg: msgInvalidSelection},

	// =========================================================================
	// File Errors (FILE001-FILE008)
	// These errors occur when parsing uploaded files.
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Please upload a file with a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "The file format is not supported",
			Action:  "Upload a .csv, .xlsx or .json file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "The workbook could not be read",
			Action:  "Re-save the file as .xlsx and try again",
			Code:    "FILE007",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "The JSON file is not an array of records",
			Action:  "Export the table as a JSON array of objects",
			Code:    "FILE008",
		},
	},

	// =========================================================================
	// Upload Errors (UPL001-UPL003)
	// =========================================================================
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL003",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Filter session not found",
			Action:  "The session may have expired. Please start a new one",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many sessions",
		msg: UserMessage{
			Message: "Too many open filter sessions",
			Action:  "Close unused sessions or try again later",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are recognized first; otherwise the first known pattern
// (case-insensitive) wins. If nothing matches, a generic fallback message
// with code ERR000 is returned.
//
// Example:
//
//	err := &DuplicateKeyError{Source: SourceCrossReference, Key: "A12"}
//	msg := MapError(err)
//	// msg.Code == "SRC002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := typedMessage(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(err)
//	slog.Error("query failed", "error", ue.Technical)
//	fmt.Println(ue.Error())   // "No catalog has been loaded yet"
//	fmt.Println(ue.User.Code) // "QRY001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
