// Package domainerrors defines the error taxonomy shared by services and the
// HTTP boundary. Services return *Error values (or wrap sentinels in them) and
// the transport layer translates the Code into a status without inspecting
// messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a failure by what the caller can do about it.
type Code string

const (
	// CodeInvalidArgument: caller error. Never retried, always reported.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeTooManyRequests: admission denied. The caller may retry later.
	CodeTooManyRequests Code = "too_many_requests"
	// CodeUnavailable: a dependency is exhausted after internal retries.
	CodeUnavailable Code = "service_unavailable"
	// CodeTimeout: an operation ran past its deadline.
	CodeTimeout Code = "timeout"
	// CodeNotFound: the requested resource does not exist.
	CodeNotFound Code = "not_found"
	// CodeInternal: anything unclassified. Details are never shown to callers.
	CodeInternal Code = "internal_error"
)

// Error carries a Code, a caller-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to err.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
