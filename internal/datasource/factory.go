package datasource

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/retry"
)

// SourceType represents the kind of implementation behind a feed
type SourceType string

const (
	CSVSourceType      SourceType = "csv"
	HTTPSourceType     SourceType = "http"
	PostgresSourceType SourceType = "postgres"
	NoSourceType       SourceType = "none"
)

// Feeds bundles every configured feed. Optional feeds are nil when not configured.
type Feeds struct {
	Matches      MatchFeed
	Plays        PlayFeed
	Availability AvailabilityFeed
	DepthCharts  DepthChartFeed
	Weather      WeatherFeed
	Cache        *FeedCache

	clients []*RateLimitedHTTPClient
}

// Close releases idle HTTP connections held by the feeds.
func (f *Feeds) Close() error {
	for _, c := range f.clients {
		_ = c.Close()
	}
	return nil
}

// Factory creates feed implementations based on configuration
type Factory struct {
	logger     *logrus.Logger
	config     *config.Config
	matchStore MatchFeed
	validator  *RecordValidator
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, logger *logrus.Logger) *Factory {
	return &Factory{
		logger:    logger,
		config:    cfg,
		validator: NewRecordValidator(logger),
	}
}

// WithMatchStore supplies the database-backed match feed used when matches.kind is postgres.
func (f *Factory) WithMatchStore(store MatchFeed) *Factory {
	f.matchStore = store
	return f
}

// RetryPolicy converts retry configuration into a policy.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    cfg.MaxDelay,
	}
}

func (f *Factory) httpClient(name string) *RateLimitedHTTPClient {
	hc := DefaultHTTPClientConfig()
	if f.config.Feeds.HTTP.Timeout > 0 {
		hc.Timeout = f.config.Feeds.HTTP.Timeout
	}
	hc.RateLimit = f.config.Feeds.HTTP.RateLimit
	if f.config.Feeds.HTTP.CircuitBreakerMax > 0 {
		hc.CircuitBreakerMax = f.config.Feeds.HTTP.CircuitBreakerMax
	}
	hc.Retry = RetryPolicy(f.config.Retry)
	return NewRateLimitedHTTPClient(name, hc, f.logger)
}

// Build creates every configured feed.
func (f *Factory) Build() (*Feeds, error) {
	feeds := &Feeds{Cache: NewFeedCache(f.config.Feeds.CacheTTL, f.config.Feeds.CacheMaxSize)}
	policy := RetryPolicy(f.config.Retry)
	fc := f.config.Feeds

	client := func(name string) *RateLimitedHTTPClient {
		c := f.httpClient(name)
		feeds.clients = append(feeds.clients, c)
		return c
	}

	switch SourceType(fc.Matches.Kind) {
	case CSVSourceType:
		feeds.Matches = NewMatchCSV(fc.Matches.Path, policy, f.validator, f.logger)
	case HTTPSourceType:
		feeds.Matches = NewHTTPMatchFeed(client(FeedMatches), fc.Matches.URL, fc.Matches.APIKey, f.validator, f.logger)
	case PostgresSourceType:
		if f.matchStore == nil {
			return nil, fmt.Errorf("matches feed is postgres but no database store was supplied")
		}
		feeds.Matches = f.matchStore
	default:
		return nil, fmt.Errorf("matches feed kind %q is not supported", fc.Matches.Kind)
	}

	switch SourceType(fc.Plays.Kind) {
	case CSVSourceType:
		feeds.Plays = NewPlayCSV(fc.Plays.Path, policy, f.validator, f.logger)
	case HTTPSourceType:
		feeds.Plays = NewHTTPPlayFeed(client(FeedPlays), fc.Plays.URL, fc.Plays.APIKey, f.validator, f.logger)
	case NoSourceType, "":
	default:
		return nil, fmt.Errorf("plays feed kind %q is not supported", fc.Plays.Kind)
	}

	switch SourceType(fc.Availability.Kind) {
	case CSVSourceType:
		feeds.Availability = NewInjuryCSV(fc.Availability.Path, policy, f.validator, f.logger)
	case HTTPSourceType:
		feeds.Availability = NewHTTPAvailabilityFeed(client(FeedAvailability), fc.Availability.URL, fc.Availability.APIKey, feeds.Cache, f.validator, f.logger)
	case NoSourceType, "":
	default:
		return nil, fmt.Errorf("availability feed kind %q is not supported", fc.Availability.Kind)
	}

	switch SourceType(fc.DepthCharts.Kind) {
	case CSVSourceType:
		feeds.DepthCharts = NewDepthChartCSV(fc.DepthCharts.Path, policy, f.validator, f.logger)
	case HTTPSourceType:
		feeds.DepthCharts = NewHTTPDepthChartFeed(client(FeedDepthCharts), fc.DepthCharts.URL, fc.DepthCharts.APIKey, feeds.Cache, f.validator, f.logger)
	case NoSourceType, "":
	default:
		return nil, fmt.Errorf("depth chart feed kind %q is not supported", fc.DepthCharts.Kind)
	}

	switch SourceType(fc.Weather.Kind) {
	case HTTPSourceType:
		feeds.Weather = NewHTTPWeatherFeed(client(FeedWeather), fc.Weather.URL, fc.Weather.APIKey, fc.Weather.Units, feeds.Cache, f.validator, f.logger)
	case NoSourceType, "":
	default:
		return nil, fmt.Errorf("weather feed kind %q is not supported", fc.Weather.Kind)
	}

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"component": "datasource_factory",
			"feeds":     f.ListConfigured(),
		}).Info("Feeds configured")
	}
	return feeds, nil
}

// ListConfigured returns the names of feeds that have an implementation configured
func (f *Factory) ListConfigured() []string {
	var names []string
	for name, kind := range map[string]string{
		FeedMatches:      f.config.Feeds.Matches.Kind,
		FeedPlays:        f.config.Feeds.Plays.Kind,
		FeedAvailability: f.config.Feeds.Availability.Kind,
		FeedDepthCharts:  f.config.Feeds.DepthCharts.Kind,
		FeedWeather:      f.config.Feeds.Weather.Kind,
	} {
		if kind != "" && SourceType(kind) != NoSourceType {
			names = append(names, name+"="+kind)
		}
	}
	sort.Strings(names)
	return names
}
