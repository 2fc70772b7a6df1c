package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType tags a failure so callers can branch on the kind of error
// instead of inspecting message text
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypePrivate    ErrorType = "private"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTransient  ErrorType = "transient"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeTransform  ErrorType = "transform"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a tagged failure
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a tagged error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a tagged error with an underlying cause
func Wrap(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// TypeOf returns the tag of err, or ErrorTypeUnknown for untagged errors
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given tag
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried. Access-control
// outcomes never change on retry, so private content short-circuits.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeTransient:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeNotFound:
		return http.StatusBadRequest
	case ErrorTypePrivate:
		return http.StatusForbidden
	case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeTransient, ErrorTypeUnknown:
		// Exhausted resolution reports as a client problem: the input may
		// still be at fault, and Unknown is the classifier's fallthrough
		// for opaque extraction failures
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Classify turns an opaque extraction error into a tagged one by
// inspecting its message. Substring matching against upstream error text
// is fragile, so it is confined to this adapter; everything downstream
// branches on the tag only.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "private"):
		return Wrap(ErrorTypePrivate, "content belongs to a private account", err)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate-limit"),
		strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return Wrap(ErrorTypeRateLimit, "upstream rate limit hit", err)
	case strings.Contains(msg, "not found"), strings.Contains(msg, "404"),
		strings.Contains(msg, "unavailable"), strings.Contains(msg, "does not exist"):
		return Wrap(ErrorTypeNotFound, "content not found", err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"):
		return Wrap(ErrorTypeNetwork, "network failure reaching upstream", err)
	case strings.Contains(msg, "login required"), strings.Contains(msg, "temporar"):
		return Wrap(ErrorTypeTransient, "extraction temporarily failed", err)
	default:
		return Wrap(ErrorTypeUnknown, "extraction failed", err)
	}
}
