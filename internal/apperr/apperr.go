// internal/apperr/apperr.go
//
// Error taxonomy shared by middleware, components, and the dispatcher.
//
// Context
// -------
// Every failure that reaches the dispatcher is mapped onto one Kind, and the
// Kind decides the envelope code:
//
//	Validation   → 400, message surfaced verbatim
//	Unauthorized → 401, cause-specific message
//	Forbidden    → 403
//	NotFound     → 404
//	RateLimited  → 429
//	Integrity    → 500 (zero-row UPDATE / DELETE)
//	Exhausted    → 500 (connection pool)
//	Internal     → 500, generic message unless debug
//
// Plain errors that never went through this package are Internal.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport.
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	Forbidden
	NotFound
	RateLimited
	Integrity
	Exhausted
)

// Error is a classified error.  Msg is safe to show to clients for every
// Kind except Internal, Integrity, and Exhausted.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the Kind onto an HTTP / envelope code.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether Msg may be sent to a client without debug mode.
func (k Kind) Public() bool {
	switch k {
	case Internal, Integrity, Exhausted:
		return false
	}
	return true
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func Invalid(msg string) error     { return newErr(Validation, msg) }
func Unauth(msg string) error      { return newErr(Unauthorized, msg) }
func Forbid(msg string) error      { return newErr(Forbidden, msg) }
func Missing(msg string) error     { return newErr(NotFound, msg) }
func Limited(msg string) error     { return newErr(RateLimited, msg) }
func Wrap(k Kind, err error) error { return &Error{Kind: k, Err: err} }

// KindOf returns the Kind carried by err, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the client-facing text for err.  Non-public kinds collapse
// to a generic string unless debug is set.
func Message(err error, debug bool) string {
	k := KindOf(err)
	if !k.Public() && !debug {
		return "Internal server error"
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" && k.Public() {
		return e.Msg
	}
	return err.Error()
}
