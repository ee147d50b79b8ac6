// Package dbalerr implements the typed error taxonomy shared by every
// component of the database abstraction layer. Internal components never
// panic for expected failures; they return a *Error (directly, or wrapped in
// a Result[T]) so that callers can branch on Kind without string matching.
package dbalerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the fixed taxonomy members from spec §7. The
// string form is what appears in the "type" field of the error JSON wire
// format (§6.3).
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindConflict               Kind = "Conflict"
	KindUnauthorized           Kind = "Unauthorized"
	KindForbidden              Kind = "Forbidden"
	KindValidationError        Kind = "ValidationError"
	KindRateLimitExceeded      Kind = "RateLimitExceeded"
	KindInternalError          Kind = "InternalError"
	KindTimeout                Kind = "Timeout"
	KindDatabaseError          Kind = "DatabaseError"
	KindCapabilityNotSupported Kind = "CapabilityNotSupported"
	KindSandboxViolation       Kind = "SandboxViolation"
	KindMaliciousCodeDetected  Kind = "MaliciousCodeDetected"
)

// httpStatus maps each Kind to its HTTP-aligned status code (§7).
var httpStatus = map[Kind]int{
	KindNotFound:               http.StatusNotFound,
	KindConflict:               http.StatusConflict,
	KindUnauthorized:           http.StatusUnauthorized,
	KindForbidden:              http.StatusForbidden,
	KindValidationError:        http.StatusUnprocessableEntity,
	KindRateLimitExceeded:      http.StatusTooManyRequests,
	KindInternalError:          http.StatusInternalServerError,
	KindTimeout:                http.StatusGatewayTimeout,
	KindDatabaseError:          http.StatusServiceUnavailable,
	KindCapabilityNotSupported: http.StatusNotImplemented,
	KindSandboxViolation:       http.StatusNotAcceptable,
	KindMaliciousCodeDetected:  451,
}

// Error is the single typed error value used across the DBAL core. It is
// never raised for expected failures — see Result[T] for the propagation
// idiom used at component boundaries.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that carries cause as its
// unwrap target, so errors.Is/errors.As continue to see through it.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Kind reports the taxonomy member this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// HTTPStatus reports the HTTP-aligned status code for this error's Kind.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message returns the human-readable message, independent of the cause.
func (e *Error) Message() string { return e.message }

// Is reports whether target shares this error's Kind, so that
// errors.Is(err, dbalerr.New(dbalerr.KindNotFound, "")) reads naturally at
// call sites that only care about the taxonomy member.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.kind == e.kind
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to KindInternalError for anything else — the catch-all for unexpected
// failures per spec §7.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternalError
}

// HTTPStatusOf mirrors KindOf but returns the HTTP status directly, for use
// at the boundary formatter (§6.3).
func HTTPStatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Convenience constructors for the taxonomy members used most often by the
// core (mirrors the shorthand the original C++ core exposed per-kind).

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func ValidationError(format string, args ...any) *Error {
	return New(KindValidationError, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func RateLimitExceeded(format string, args ...any) *Error {
	return New(KindRateLimitExceeded, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternalError, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

func DatabaseError(format string, args ...any) *Error {
	return New(KindDatabaseError, format, args...)
}

func CapabilityNotSupported(format string, args ...any) *Error {
	return New(KindCapabilityNotSupported, format, args...)
}
