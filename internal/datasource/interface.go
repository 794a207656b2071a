// Package datasource provides the match, play, availability, depth-chart and weather feeds.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// MatchFeed supplies completed matches and scheduled fixtures.
type MatchFeed interface {
	Matches(ctx context.Context) ([]*models.Match, error)
}

// PlayFeed supplies play-level events.
type PlayFeed interface {
	Plays(ctx context.Context) ([]models.Play, error)
}

// AvailabilityFeed supplies availability reports for a team ahead of a date.
type AvailabilityFeed interface {
	Reports(ctx context.Context, team string, date time.Time) ([]models.UnavailabilityReport, error)
}

// DepthChartFeed supplies ranked depth charts for a team.
type DepthChartFeed interface {
	DepthChart(ctx context.Context, team string) ([]models.DepthChartEntry, error)
}

// WeatherFeed supplies normalised forecasts by venue and date.
type WeatherFeed interface {
	Forecast(ctx context.Context, venue string, date time.Time) (*models.WeatherObservation, error)
}

// Feed names used for metrics labels and log fields.
const (
	FeedMatches      = "matches"
	FeedPlays        = "plays"
	FeedAvailability = "availability"
	FeedDepthCharts  = "depth_charts"
	FeedWeather      = "weather"
)

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidData          = errors.New("invalid data format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
