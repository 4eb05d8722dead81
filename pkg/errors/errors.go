package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies crawl failures by how far they escalate.
type ErrorType string

const (
	ErrorTypeTransientUI    ErrorType = "transient_ui"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeBlocked        ErrorType = "blocked"
	ErrorTypePageExhausted  ErrorType = "page_exhausted"
	ErrorTypeRunFailure     ErrorType = "run_failure"
	ErrorTypePersistence    ErrorType = "persistence"
	ErrorTypeConfig         ErrorType = "config"
)

// Error carries the failure type plus where in the crawl it happened.
type Error struct {
	Type    ErrorType
	Op      string
	Target  string
	Page    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Target != "" {
		msg += fmt.Sprintf(" (target %s", e.Target)
		if e.Page > 0 {
			msg += fmt.Sprintf(", page %d", e.Page)
		}
		msg += ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given type.
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap builds an Error of the given type around err.
func Wrap(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// TypeOf returns the ErrorType of the first *Error in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return "", false
}

// Is reports whether err's chain holds an *Error of type t.
func Is(err error, t ErrorType) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// IsBlocked reports whether err is, or wraps, a blocked signal.
func IsBlocked(err error) bool {
	return Is(err, ErrorTypeBlocked)
}

// IsRetryable reports whether an error type should be retried at its own granularity.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransientUI, ErrorTypeAuthentication, ErrorTypePersistence:
		return true
	case ErrorTypeBlocked, ErrorTypePageExhausted, ErrorTypeRunFailure, ErrorTypeConfig:
		return false
	default:
		return false
	}
}
