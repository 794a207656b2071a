package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/retry"
	"golang.org/x/time/rate"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout           time.Duration
	RateLimit         float64 // requests per second, 0 disables limiting
	CircuitBreakerMax int     // consecutive failures before the breaker opens
	BreakerTimeout    time.Duration
	Retry             retry.Policy
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           30 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
		BreakerTimeout:    time.Minute,
		Retry:             retry.DefaultPolicy(),
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a circuit breaker
type RateLimitedHTTPClient struct {
	name    string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Entry
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client. name labels
// the breaker and the retry metrics.
func NewRateLimitedHTTPClient(name string, cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	entry := logger.WithFields(logrus.Fields{"component": "http_client", "feed": name})

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.Retry.MaxAttempts - 1
	if retryClient.RetryMax < 0 {
		retryClient.RetryMax = 0
	}
	retryClient.Backoff = cfg.Retry.Backoff()
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = leveledLogger{entry: entry}
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			metrics.RecordFeedRetry(name)
		}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	maxFailures := uint32(cfg.CircuitBreakerMax)
	if maxFailures == 0 {
		maxFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.UpdateCircuitBreakerState(name, float64(to))
			entry.WithFields(logrus.Fields{
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Feed circuit breaker state changed")
		},
	})

	return &RateLimitedHTTPClient{
		name:    name,
		client:  retryClient,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
		logger:  entry,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		rreq, err := retryablehttp.FromRequest(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(rreq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			drain(resp)
			return nil, fmt.Errorf("server returned %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewDataSourceError(c.name, ErrCodeCircuitOpen, "circuit breaker open", err)
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// GetJSON fetches url with an optional bearer token and decodes a JSON body into out.
// Non-success statuses are mapped onto DataSourceError codes. Every failure except a
// malformed body also matches models.ErrDataUnavailable.
func (c *RateLimitedHTTPClient) GetJSON(ctx context.Context, url, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewDataSourceError(c.name, ErrCodeNetworkError, "failed to create request", unavailable(err))
	}
	if apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		var dsErr DataSourceError
		if errors.As(err, &dsErr) {
			dsErr.Err = unavailable(dsErr.Err)
			return dsErr
		}
		return NewDataSourceError(c.name, ErrCodeNetworkError, "request failed", unavailable(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(c.name, ErrCodeAuthenticationFailed, "invalid API key", unavailable(ErrAuthenticationFailed))
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(c.name, ErrCodeNotFound, "resource not found", unavailable(nil))
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(c.name, ErrCodeRateLimitExceeded, "rate limit exceeded", unavailable(nil))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(c.name, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), unavailable(nil))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(c.name, ErrCodeInvalidData, "failed to parse response", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}
	return nil
}

func unavailable(err error) error {
	if err == nil {
		return models.ErrDataUnavailable
	}
	return fmt.Errorf("%w: %w", models.ErrDataUnavailable, err)
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Retry on network errors
			return true, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// leveledLogger routes retryablehttp's logging through logrus at debug level.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.entry.WithFields(f)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
