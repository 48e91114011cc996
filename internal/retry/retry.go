// Package retry is the single timeout/retry utility shared by every
// operation that talks to a slow or flaky upstream.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Policy configures timeouts and retry bounds.
type Policy struct {
	Timeout    time.Duration // per attempt; zero disables the timeout
	SlowAfter  time.Duration // when a pending attempt is reported as slow
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // backoff base for Do
}

// DefaultPolicy is the timing used for every upstream call.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    15 * time.Second,
		SlowAfter:  8 * time.Second,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
	}
}

// TimeoutError reports that an attempt exceeded its timeout.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.After)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Attempt runs fn once. The context handed to fn is cancelled when the
// timeout fires, so the underlying request is aborted rather than abandoned.
func Attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(attemptCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return r.val, &TimeoutError{After: timeout}
		}
		return r.val, r.err
	case <-attemptCtx.Done():
		// A result that raced the deadline still wins.
		select {
		case r := <-done:
			if r.err == nil {
				return r.val, nil
			}
		default:
		}
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{After: timeout}
	}
}

// Do runs fn up to MaxRetries+1 times, backing off between attempts.
// Only errors for which retryable returns true are retried.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		v, err := Attempt(ctx, p.Timeout, fn)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if retryable == nil || !retryable(err) || attempt == p.MaxRetries {
			break
		}

		select {
		case <-time.After(Backoff(p.BaseDelay, attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// Backoff doubles base per attempt and adds up to 20% jitter.
func Backoff(base time.Duration, attempt int) time.Duration {
	backoff := float64(base) * float64(int(1)<<attempt)
	jitter := (rand.Float64() * 0.2) * backoff
	return time.Duration(backoff + jitter)
}
