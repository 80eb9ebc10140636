package core

// Error codes are quoted by users to support staff. Codes are grouped by
// category:
//
//	DB001-DB099   database constraints and connectivity
//	VAL001-VAL099 request validation
//	FILE001-FILE099 uploaded file handling and decoding
//	IMP001-IMP099 import sessions and concurrency
//	CLS001-CLS099 column classification
//	EVT001-EVT099 event configuration
//	RATE001       request throttling
//	ERR000        fallback, check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so domain errors are listed before generic ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Their messages contain the patterns below.
var (
	ErrEmptyFile         = errors.New("empty file")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoEventSelected   = errors.New("no event selected")
	ErrNoTicketTypes     = errors.New("no ticket types configured")
	ErrClassification    = errors.New("column classification failed")
	ErrPreviewNotFound   = errors.New("import preview not found")
	ErrImportInProgress  = errors.New("import already in progress for this event")
	ErrTooManyImports    = errors.New("too many imports in progress, please try again later")
	ErrImportNotFound    = errors.New("import not found")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the attendee list into smaller files", "FILE001"}},
	{"invalid csv", UserMessage{"File is not valid delimited text", "Export the sheet again as CSV and retry", "FILE002"}},
	{"invalid spreadsheet", UserMessage{"Spreadsheet could not be opened", "Save the workbook as .xlsx and retry", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV or Excel file to import", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a file with a header row and attendees", "FILE005"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload a .csv, .tsv, .txt or .xlsx file", "FILE006"}},

	// Event configuration
	{"no event selected", UserMessage{"No event is selected", "Select an event before importing attendees", "EVT001"}},
	{"no ticket types configured", UserMessage{"The event has no ticket types", "Create a ticket type for the event and retry", "EVT002"}},

	// Classification
	{"column classification failed", UserMessage{"Columns could not be identified", "Please try again in a few moments", "CLS001"}},

	// Import sessions
	{"import already in progress", UserMessage{"An import is already running for this event", "Wait for it to finish before starting another", "IMP001"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP002"}},
	{"import preview not found", UserMessage{"Import preview not found", "The preview may have expired. Please upload the file again", "IMP003"}},
	{"import not found", UserMessage{"Import not found", "The import may have finished more than a few minutes ago", "IMP004"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP005"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "IMP006"}},

	// Request validation
	{"invalid event id", UserMessage{"Event identifier is not valid", "Reload the page and select the event again", "VAL001"}},
	{"invalid request body", UserMessage{"Request could not be read", "Please try again", "VAL002"}},

	// Database
	{"duplicate key", UserMessage{"A ticket with this key already exists", "Refresh the attendee list before retrying", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check the file for repeated attendees", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Check the file for repeated attendees", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Make sure the event still exists", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Make sure the event still exists", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
