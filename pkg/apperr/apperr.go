// Package apperr defines the error kinds surfaced to API callers and their
// HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Unauthorized
	BadRequest
	PayloadTooLarge
	NotFound
	TooManyRequests
	UpstreamUnavailable
	ConfigurationError
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case BadRequest:
		return "bad_request"
	case PayloadTooLarge:
		return "payload_too_large"
	case NotFound:
		return "not_found"
	case TooManyRequests:
		return "too_many_requests"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case ConfigurationError:
		return "configuration_error"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case BadRequest:
		return http.StatusBadRequest
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case NotFound:
		return http.StatusNotFound
	case TooManyRequests:
		return http.StatusTooManyRequests
	case UpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Msg is safe to show to callers; Detail is
// only exposed for UpstreamUnavailable.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
