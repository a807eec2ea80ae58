package services

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrProviderKeyMissing means the completion backend has no credential.
	ErrProviderKeyMissing = errors.New("completion provider API key is not configured")
)

// StatusError is a non-2xx answer from the completion provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// UpstreamError is returned once the retry policy gives up. It carries the
// last observed failure; StatusCode is zero when no HTTP answer arrived.
type UpstreamError struct {
	Attempts   int
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion provider failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsRetryable classifies transport failures, per-attempt timeouts and 5xx
// (plus 408) as transient. Every other status, including 401/403/429, is
// terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusRequestTimeout
	}
	var te *timeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var tr *transportError
	return errors.As(err, &tr)
}

// transportError wraps failures to reach the provider or read its answer.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "http error: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }
