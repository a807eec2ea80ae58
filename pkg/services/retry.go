package services

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how a completion call is retried. It knows nothing
// about HTTP; Retryable decides which failures are transient.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff returns the pause before attempt n+1 (n starts at 1).
	Backoff   func(attempt int) time.Duration
	Retryable func(err error) bool
}

// DefaultRetryPolicy is three attempts of 15s each, retrying transient
// upstream failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 15 * time.Second,
		Backoff:        func(attempt int) time.Duration { return time.Duration(attempt) * 500 * time.Millisecond },
		Retryable:      IsRetryable,
	}
}

// Do runs fn until it succeeds, fails terminally, or attempts run out. Each
// attempt gets its own deadline. It returns the number of attempts made and
// the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.attempt(ctx, fn)
		if err == nil {
			return attempt, nil
		}
		// the caller gave up; the attempt timeout is not the caller's
		if ctx.Err() != nil {
			return attempt, err
		}
		if p.Retryable == nil || !p.Retryable(err) || attempt == maxAttempts {
			return attempt, err
		}
		if p.Backoff != nil {
			if werr := sleepWithContext(ctx, p.Backoff(attempt)); werr != nil {
				return attempt, err
			}
		}
	}
	return maxAttempts, err
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	err := fn(actx)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &timeoutError{after: p.AttemptTimeout, err: err}
	}
	return err
}

type timeoutError struct {
	after time.Duration
	err   error
}

func (e *timeoutError) Error() string {
	return "attempt timed out after " + e.after.String() + ": " + e.err.Error()
}

func (e *timeoutError) Unwrap() error { return e.err }

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
