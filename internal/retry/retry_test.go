package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/models"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}
}

func TestDefaultPolicySchedule(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 30*time.Second, p.Delay(10), "capped at MaxDelay")
}

func TestBackoffMatchesPolicy(t *testing.T) {
	p := DefaultPolicy()
	backoff := p.Backoff()
	assert.Equal(t, 2*time.Second, backoff(0, 0, 0, nil))
	assert.Equal(t, 4*time.Second, backoff(0, 0, 1, &http.Response{StatusCode: http.StatusBadGateway}))

	limited := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"7"}}}
	assert.Equal(t, 7*time.Second, backoff(0, 0, 0, limited))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), "test", fastPolicy(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustionIsDataUnavailable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "test", fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, calls, "bounded by MaxAttempts")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad row")
	_, err := Do(context.Background(), "test", fastPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, models.ErrDataUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}
	calls := 0
	_, err := Do(ctx, "test", p, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("down")
	})
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Equal(t, 1, calls)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
