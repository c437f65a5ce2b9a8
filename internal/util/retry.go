package util

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping backoff between failures.
// It returns the first successful result, or the zero value plus the last
// error once attempts are exhausted. Context cancellation aborts the wait
// and returns ctx.Err().
func Retry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return zero, lastErr
}
