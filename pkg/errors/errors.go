package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures the crawler can run into
type Kind string

const (
	KindValidation         Kind = "validation"
	KindResolution         Kind = "resolution"
	KindFetch              Kind = "fetch"
	KindMalformedReference Kind = "malformed_reference"
	KindAlreadyExists      Kind = "already_exists"
	KindIO                 Kind = "io"
)

// Error carries a Kind plus the HTTP status when one is known
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports a rejected user input
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// Resolution reports that the album identity could not be determined
func Resolution(format string, args ...interface{}) *Error {
	return New(KindResolution, fmt.Sprintf(format, args...))
}

// Fetch reports a transport failure or a non-2xx response
func Fetch(url string, status int, err error) *Error {
	msg := "GET " + url
	if err == nil && status != 0 {
		msg = fmt.Sprintf("GET %s returned an unexpected status", url)
	}
	return &Error{Kind: KindFetch, Message: msg, Status: status, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	if !IsKind(err, KindFetch) {
		return false
	}
	return IsRetryableStatusCode(StatusOf(err))
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // transport error, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
