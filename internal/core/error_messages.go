package core

// error_messages.go maps technical errors to messages an operator can act on.
//
// # Error Codes Reference
//
// Each message carries a code that users can quote to support staff.
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Required columns missing from the header
//	         Patterns: "missing required columns"
//	VAL002 - Required cell empty
//	         Patterns: "required field"
//	VAL003 - CID belongs to another client
//	         Patterns: "does not match client id"
//	VAL004 - CID has no client prefix
//	         Patterns: "invalid cid format"
//	VAL005 - Upload schema not registered
//	         Patterns: "unknown upload schema"
//	VAL006 - Dataset failed validation and cannot be used
//	         Patterns: "dataset has validation errors"
//
// # File (FILE001-FILE099)
//
//	FILE001 - File too large             "file too large"
//	FILE002 - Not a valid CSV            "invalid csv"
//	FILE003 - Undecodable characters     "encoding error"
//	FILE004 - No file in the request     "no file provided"
//	FILE005 - File has no rows           "empty file"
//
// # Upload (UPL001-UPL099)
//
//	UPL001 - Too many uploads in progress   "too many uploads"
//	UPL002 - Dataset expired or unknown     "dataset not found"
//	UPL003 - Request cancelled              "context canceled"
//	UPL004 - Request timed out              "context deadline exceeded"
//
// # Filters (FLT001-FLT099)
//
//	FLT001 - Operator not supported     "unsupported filter operator"
//	FLT002 - Duplicate filter id        "duplicate filter id"
//	FLT003 - Filter without a column    "missing column"
//	FLT004 - Unknown data layer         "unknown data layer"
//
// # Download requests (DL001-DL099)
//
//	DL001 - No accounts selected        "no account ids"
//
// # Audit (AUD001-AUD099)
//
//	AUD001 - Audit database unreachable    "connection refused", "connection reset"
//	AUD002 - Audit query timed out         "timeout"
//
// # Requests (REQ001-REQ099)
//
//	REQ001 - Body is not the expected JSON    "invalid request body"
//
// # Rate limiting (RATE001)
//
//	RATE001 - Too many requests    "rate limit"
//
// # Default (ERR000)
//
// Returned when nothing matches. Check the server log for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
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
	// Validation
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the CSV header",
			Action:  "Download the template and compare the header row",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Fill in Action, CID, Campaign ID and Parameter Name on every row",
			Code:    "VAL002",
		},
	},
	{
		pattern: "does not match client id",
		msg: UserMessage{
			Message: "The CID belongs to a different client",
			Action:  "Check the selected client or the CID prefix",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid cid format",
		msg: UserMessage{
			Message: "The CID has no client prefix",
			Action:  "Use the form <client id>-<suffix>",
			Code:    "VAL004",
		},
	},
	{
		pattern: "unknown upload schema",
		msg: UserMessage{
			Message: "Unknown upload type",
			Action:  "Choose one of the listed upload types",
			Code:    "VAL005",
		},
	},
	{
		pattern: "dataset has validation errors",
		msg: UserMessage{
			Message: "The dataset did not pass validation",
			Action:  "Fix the reported errors and upload the file again",
			Code:    "VAL006",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
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
			Message: "File contains characters that cannot be decoded",
			Action:  "Save the file as UTF-8 or Shift_JIS",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// Upload
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "The dataset may have expired. Please upload the file again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL004",
		},
	},

	// Filters
	{
		pattern: "unsupported filter operator",
		msg: UserMessage{
			Message: "A filter uses an unsupported operator",
			Action:  "Pick an operator from the list",
			Code:    "FLT001",
		},
	},
	{
		pattern: "duplicate filter id",
		msg: UserMessage{
			Message: "Two filters share the same id",
			Action:  "Remove the duplicated filter and add it again",
			Code:    "FLT002",
		},
	},
	{
		pattern: "missing column",
		msg: UserMessage{
			Message: "A filter has no column",
			Action:  "Choose a column for every filter",
			Code:    "FLT003",
		},
	},
	{
		pattern: "unknown data layer",
		msg: UserMessage{
			Message: "Unknown download level",
			Action:  "Choose campaign, ad group, ad or keyword",
			Code:    "FLT004",
		},
	},

	// Download requests
	{
		pattern: "no account ids",
		msg: UserMessage{
			Message: "No accounts were selected for the download",
			Action:  "Select at least one account",
			Code:    "DL001",
		},
	},

	// Audit
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the audit database",
			Action:  "Please try again in a few moments",
			Code:    "AUD001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Audit database connection was interrupted",
			Action:  "Please try again",
			Code:    "AUD001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Audit query timed out",
			Action:  "Narrow the date range and try again",
			Code:    "AUD002",
		},
	},

	// Requests
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request format and try again",
			Code:    "REQ001",
		},
	},

	// Rate limiting
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

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// Error returns the user message; Unwrap exposes the original for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
