/*
Package retryx provides a bounded retry policy on top of github.com/sethvargo/go-retry.
*/
package retryx

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy retries an operation a bounded number of times.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay returns the wait before retry n (1-based). Nil means no wait.
	Delay func(n int) time.Duration

	// Retryable reports whether err may be retried. Nil means never.
	Retryable func(err error) bool

	// OnRetry, if set, is called before each wait.
	OnRetry func(n int, delay time.Duration, err error)
}

// Linear returns a delay function that waits n*base before retry n.
func Linear(base time.Duration) func(int) time.Duration {
	return func(n int) time.Duration {
		return time.Duration(n) * base
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retries are spent.
// The last error from fn is returned unchanged.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		n       int
		lastErr error
	)

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		if n > p.MaxRetries {
			return 0, true
		}
		var d time.Duration
		if p.Delay != nil {
			d = p.Delay(n)
		}
		if p.OnRetry != nil {
			p.OnRetry(n, d, lastErr)
		}
		return d, false
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && p.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
