package core

// error_messages.go maps row and run errors to operator-facing messages with
// support codes. Every row error in an audit artifact carries one of these
// codes so a recurring problem can be searched for across runs.
//
// Code ranges:
//
//	SYNC001-SYNC099  sync outcomes (parents, identifiers, clinicians, store)
//	DB001-DB099      constraint and connectivity failures from the store
//	VAL001-VAL099    cell validation
//	FILE001-FILE099  workbook, sheet and header problems
//	ERR000           fallback when nothing matches
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain. Codes are tried in table order and the first code with a
// matching pattern wins, so specific codes must precede general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorCode struct {
	UserMessage
	patterns []string
}

func supportCode(c, message, action string, patterns ...string) errorCode {
	return errorCode{UserMessage: UserMessage{Message: message, Action: action, Code: c}, patterns: patterns}
}

var errorCodes = []errorCode{
	supportCode("SYNC001", "The referenced parent record is not in the store",
		"Check the parent row on its own sheet for errors",
		"parent does not exist"),
	supportCode("SYNC002", "The patient identifier cannot be normalized",
		"Correct the identifier in the workbook",
		"invalid identifier"),
	supportCode("SYNC003", "No alias or roster entry matched the clinician name",
		"Add the name variant to the alias map",
		"unresolved clinician"),
	supportCode("SYNC004", "The store stopped answering",
		"Check database connectivity and rerun",
		"store unavailable"),

	supportCode("DB001", "A record with this key already exists",
		"Review the workbook for duplicate rows",
		"record already exists", "duplicate key"),
	supportCode("DB002", "This value must be unique but already exists",
		"Check for duplicate entries in the sheet",
		"unique constraint", "violates unique"),
	supportCode("DB004", "Unable to connect to database",
		"Please try again in a few moments",
		"connection refused"),
	supportCode("DB005", "Database connection was interrupted",
		"Please try again",
		"connection reset"),
	supportCode("DB006", "Operation timed out",
		"Try again later",
		"timeout", "deadline exceeded"),
	supportCode("DB007", "Database was busy with conflicting operations",
		"Please try again",
		"deadlock", "database is locked"),

	supportCode("VAL001", "Invalid date format detected",
		"Use DD/MM/YYYY, DD/MM/YYYY HH:MM or YYYY-MM-DD",
		"invalid date"),
	supportCode("VAL002", "Invalid number format detected",
		"Use plain digits with an optional decimal separator",
		"invalid number"),
	supportCode("VAL003", "Required field is empty",
		"Ensure all required columns have values",
		"required field"),
	supportCode("VAL004", "Required column is missing from the sheet",
		"Check that all required columns are present",
		"missing required column"),
	supportCode("VAL006", "Value is not in the allowed list",
		"Check the allowed values for this field",
		"invalid enum"),
	supportCode("VAL007", "Value is not a recognized yes/no token",
		"Use si/no, yes/no, true/false, or 1/0",
		"must be si/no"),

	supportCode("FILE001", "The workbook file does not exist",
		"Check WORKBOOK_PATH",
		"workbook not found"),
	supportCode("FILE002", "An expected sheet is absent",
		"Restore the sheet or ignore if intentionally removed",
		"sheet not found"),
	supportCode("FILE003", "No header row found near the top of the sheet",
		"Check the sheet's column titles",
		"header not found"),
	supportCode("FILE004", "File contains invalid characters",
		"Save the file as UTF-8 / XLSX",
		"encoding error"),
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the run log for the original error",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
// Unmatched errors get the ERR000 fallback; nil gets the zero message.
//
//	err := fmt.Errorf("patients 32820715: %w", ErrParentMissing)
//	MapError(err).Code // "SYNC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, c := range errorCodes {
		for _, p := range c.patterns {
			if strings.Contains(errStr, p) {
				return c.UserMessage
			}
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

// IsUserFacing reports whether err matches a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
