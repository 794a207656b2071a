// Package retry provides bounded retry with exponential backoff for feed calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/models"
)

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy returns three attempts at 2s, 4s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(retry-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Backoff adapts the policy to retryablehttp's backoff hook.
// retryablehttp counts attempts from zero.
func (p Policy) Backoff() retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			if d := retryablehttp.DefaultBackoff(0, p.MaxDelay, attemptNum, resp); d > 0 {
				return d
			}
		}
		return p.Delay(attemptNum + 1)
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, or the policy is exhausted.
// Exhaustion is reported as models.ErrDataUnavailable wrapping the last error.
func Do[T any](ctx context.Context, feed string, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordFeedRetry(feed)
			timer := time.NewTimer(p.Delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				metrics.RecordFeedFailure(feed)
				return zero, fmt.Errorf("%w: %s: %v", models.ErrDataUnavailable, feed, ctx.Err())
			case <-timer.C:
			}
		}

		v, err := op(ctx)
		if err == nil {
			metrics.RecordFeedRequest(feed, "success")
			return v, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			metrics.RecordFeedRequest(feed, "failure")
			metrics.RecordFeedFailure(feed)
			return zero, perm.err
		}
		metrics.RecordFeedRequest(feed, "failure")
	}

	metrics.RecordFeedFailure(feed)
	return zero, fmt.Errorf("%w: %s after %d attempts: %v", models.ErrDataUnavailable, feed, attempts, lastErr)
}
