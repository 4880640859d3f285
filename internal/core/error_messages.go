package core

// error_messages.go maps technical errors to coded user messages.
//
// Codes are grouped by category so support staff can find the failing layer
// from a code quoted by a user:
//
//	DB001-DB007    database constraint and connectivity failures
//	FEED001-004    catalog feed problems (size, CSV syntax, empty, missing file)
//	CERT001-002    certificate upload problems
//	RUN001-003     refresh run scheduling and request lifetime
//	RATE001        request throttling
//	ERR000         fallback; check the logs for the technical error
//
// Request validation errors never reach this table: their message is already
// meant for the caller.

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

// errorPatterns are matched case-insensitively with strings.Contains.
// The first match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{"A record with this key already exists", "Check for duplicate course codes or names", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Use a different name", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Use a different name", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Register the market offering first", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller feed or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	{"file too large", UserMessage{"Feed exceeds the maximum size limit", "Split the feed into smaller files", "FEED001"}},
	{"invalid csv", UserMessage{"Feed is not a valid CSV file", "Check quoting and save the feed as comma-separated UTF-8", "FEED002"}},
	{"empty file", UserMessage{"The uploaded feed is empty", "Upload a feed with a header line and data rows", "FEED003"}},
	{"no file provided", UserMessage{"No file was attached", "Attach the file in the expected form field", "FEED004"}},

	{"failed to upload file", UserMessage{"Certificate could not be stored", "Please try again later", "CERT001"}},
	{"ssh:", UserMessage{"Certificate storage is unreachable", "Please try again later", "CERT002"}},

	{"too many concurrent", UserMessage{"Another catalog refresh is in progress", "Please wait a moment and try again", "RUN001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "RUN002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller feed or check your connection", "RUN003"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns ERR000 when no pattern matches and a zero value for nil.
//
//	msg := MapError(errors.New("duplicate key value violates unique constraint"))
//	// msg.Code == "DB001"
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

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
