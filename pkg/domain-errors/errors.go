// Package dErrors carries the coded domain errors shared by every service.
// Stores return infrastructure sentinels (pkg/platform/sentinel); services wrap
// them here so handlers can translate codes to HTTP statuses without inspecting
// storage details.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a domain error.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeValidationFailed Code = "validation_failed"
	CodeInvalidState     Code = "invalid_state"
	CodeInternal         Code = "internal_error"
	CodeUnavailable      Code = "unavailable"
)

// Error is a coded domain error. Issues carries the plain-language messages
// that validation failures surface to the end user.
type Error struct {
	Code    Code
	Message string
	Issues  []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithIssues returns a validation error carrying a user-facing issue list.
func WithIssues(code Code, message string, issues []string) *Error {
	return &Error{Code: code, Message: message, Issues: issues}
}

// Is reports whether err (or anything it wraps) is a domain error with the code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IssuesOf extracts the issue list from err, if any.
func IssuesOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Issues
	}
	return nil
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidationFailed, CodeInvalidState:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
