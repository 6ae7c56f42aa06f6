// Package apperr defines the error taxonomy shared by every domain package
// and its translation to HTTP responses.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUpstream Kind = iota
	KindValidation
	KindNotFound
	KindExpired
	KindRateLimit
	KindDuplicate
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindRateLimit:
		return "rate_limit"
	case KindDuplicate:
		return "duplicate"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "upstream"
	}
}

// Status returns the HTTP status code for the kind. Unknown sessions are
// reported as 400 so callers cannot tell them apart from a wrong code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindNotFound, KindExpired, KindDuplicate:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error carrying a message safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// New builds a classified error with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause. The cause is kept for logs and errors.Is but never
// rendered to clients.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Upstream wraps a storage or provider failure with the generic message.
func Upstream(cause error) *Error {
	return Wrap(KindUpstream, MsgInternal, cause)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the kind of err, defaulting to KindUpstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Has reports whether err is classified with kind.
func Has(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
