package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/environment"
	"github.com/yourusername/gridcast/internal/models"
)

const dateLayout = "2006-01-02"

// httpFeed holds what every JSON-over-HTTP feed needs.
type httpFeed struct {
	name      string
	client    *RateLimitedHTTPClient
	baseURL   string
	apiKey    string
	cache     *FeedCache
	validator *RecordValidator
	logger    *logrus.Entry
}

func newHTTPFeed(name string, client *RateLimitedHTTPClient, baseURL, apiKey string, cache *FeedCache, rv *RecordValidator, logger *logrus.Logger) httpFeed {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if rv == nil {
		rv = NewRecordValidator(logger)
	}
	return httpFeed{
		name:      name,
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		cache:     cache,
		validator: rv,
		logger:    logger.WithFields(logrus.Fields{"component": "http_feed", "feed": name}),
	}
}

func (f httpFeed) endpoint(path string, query url.Values) string {
	u := f.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// HTTPMatchFeed fetches GET {base}/matches.
type HTTPMatchFeed struct {
	httpFeed
}

// NewHTTPMatchFeed creates a match feed over HTTP.
func NewHTTPMatchFeed(client *RateLimitedHTTPClient, baseURL, apiKey string, rv *RecordValidator, logger *logrus.Logger) *HTTPMatchFeed {
	return &HTTPMatchFeed{newHTTPFeed(FeedMatches, client, baseURL, apiKey, nil, rv, logger)}
}

type matchDTO struct {
	ID        string `json:"id"`
	Season    int    `json:"season"`
	Week      int    `json:"week"`
	Date      string `json:"date"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore *int   `json:"home_score"`
	AwayScore *int   `json:"away_score"`
	Venue     string `json:"venue"`
	Roof      string `json:"roof"`
}

// Matches returns every match the upstream knows about.
func (f *HTTPMatchFeed) Matches(ctx context.Context) ([]*models.Match, error) {
	var dtos []matchDTO
	if err := f.client.GetJSON(ctx, f.endpoint("/matches", nil), f.apiKey, &dtos); err != nil {
		return nil, err
	}

	out := make([]*models.Match, 0, len(dtos))
	for _, d := range dtos {
		date, err := parseDate(d.Date)
		if err != nil {
			f.logger.WithFields(logrus.Fields{"match_id": d.ID, "error": err.Error()}).Warn("Dropping match with unreadable date")
			continue
		}
		m := &models.Match{
			ID:        d.ID,
			Season:    d.Season,
			Week:      d.Week,
			Date:      date,
			HomeTeam:  d.HomeTeam,
			AwayTeam:  d.AwayTeam,
			HomeScore: d.HomeScore,
			AwayScore: d.AwayScore,
			Venue:     d.Venue,
			Roof:      NormalizeRoof(d.Roof),
		}
		if f.validator.keep(f.name, m.ID, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// HTTPPlayFeed fetches GET {base}/plays.
type HTTPPlayFeed struct {
	httpFeed
}

// NewHTTPPlayFeed creates a play feed over HTTP.
func NewHTTPPlayFeed(client *RateLimitedHTTPClient, baseURL, apiKey string, rv *RecordValidator, logger *logrus.Logger) *HTTPPlayFeed {
	return &HTTPPlayFeed{newHTTPFeed(FeedPlays, client, baseURL, apiKey, nil, rv, logger)}
}

// Plays returns every play the upstream knows about.
func (f *HTTPPlayFeed) Plays(ctx context.Context) ([]models.Play, error) {
	var plays []models.Play
	if err := f.client.GetJSON(ctx, f.endpoint("/plays", nil), f.apiKey, &plays); err != nil {
		return nil, err
	}
	return filterValid(f.validator, f.name, plays, func(p models.Play) string { return p.GameID }), nil
}

// HTTPAvailabilityFeed fetches GET {base}/injuries?team=KC&date=2024-11-10.
type HTTPAvailabilityFeed struct {
	httpFeed
}

// NewHTTPAvailabilityFeed creates an availability feed over HTTP.
func NewHTTPAvailabilityFeed(client *RateLimitedHTTPClient, baseURL, apiKey string, cache *FeedCache, rv *RecordValidator, logger *logrus.Logger) *HTTPAvailabilityFeed {
	return &HTTPAvailabilityFeed{newHTTPFeed(FeedAvailability, client, baseURL, apiKey, cache, rv, logger)}
}

type reportDTO struct {
	Team     string `json:"team"`
	Player   string `json:"player"`
	PlayerID string `json:"player_id"`
	Position string `json:"position"`
	Status   string `json:"status"`
	Note     string `json:"note"`
}

// Reports returns team's availability reports as of date.
func (f *HTTPAvailabilityFeed) Reports(ctx context.Context, team string, date time.Time) ([]models.UnavailabilityReport, error) {
	key := CacheKey{Feed: f.name, Parts: []string{team, date.Format(dateLayout)}}
	return cached(f.cache, key, func() ([]models.UnavailabilityReport, error) {
		var dtos []reportDTO
		q := url.Values{"team": {team}, "date": {date.Format(dateLayout)}}
		if err := f.client.GetJSON(ctx, f.endpoint("/injuries", q), f.apiKey, &dtos); err != nil {
			return nil, err
		}

		out := make([]models.UnavailabilityReport, 0, len(dtos))
		for _, d := range dtos {
			severity, ok := models.ParseSeverity(d.Status)
			if !ok {
				continue
			}
			r := models.UnavailabilityReport{
				Team:     team,
				Player:   d.Player,
				PlayerID: d.PlayerID,
				Position: strings.ToUpper(d.Position),
				Severity: severity,
				Note:     d.Note,
			}
			if f.validator.keep(f.name, team+"/"+d.Player, r) {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

// HTTPDepthChartFeed fetches GET {base}/depth-charts?team=KC.
type HTTPDepthChartFeed struct {
	httpFeed
}

// NewHTTPDepthChartFeed creates a depth chart feed over HTTP.
func NewHTTPDepthChartFeed(client *RateLimitedHTTPClient, baseURL, apiKey string, cache *FeedCache, rv *RecordValidator, logger *logrus.Logger) *HTTPDepthChartFeed {
	return &HTTPDepthChartFeed{newHTTPFeed(FeedDepthCharts, client, baseURL, apiKey, cache, rv, logger)}
}

// DepthChart returns team's ranked depth chart.
func (f *HTTPDepthChartFeed) DepthChart(ctx context.Context, team string) ([]models.DepthChartEntry, error) {
	key := CacheKey{Feed: f.name, Parts: []string{team}}
	return cached(f.cache, key, func() ([]models.DepthChartEntry, error) {
		var entries []models.DepthChartEntry
		if err := f.client.GetJSON(ctx, f.endpoint("/depth-charts", url.Values{"team": {team}}), f.apiKey, &entries); err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Team = team
			entries[i].Position = strings.ToUpper(entries[i].Position)
		}
		return filterValid(f.validator, f.name, entries, func(e models.DepthChartEntry) string { return e.Player }), nil
	})
}

// HTTPWeatherFeed fetches GET {base}/forecast?venue=...&date=... and normalises
// whatever unit system the upstream reports into imperial units.
type HTTPWeatherFeed struct {
	httpFeed
	defaultUnits string
}

// NewHTTPWeatherFeed creates a weather feed over HTTP. defaultUnits applies when
// a response carries no unit marker.
func NewHTTPWeatherFeed(client *RateLimitedHTTPClient, baseURL, apiKey, defaultUnits string, cache *FeedCache, rv *RecordValidator, logger *logrus.Logger) *HTTPWeatherFeed {
	return &HTTPWeatherFeed{
		httpFeed:     newHTTPFeed(FeedWeather, client, baseURL, apiKey, cache, rv, logger),
		defaultUnits: defaultUnits,
	}
}

type forecastDTO struct {
	Venue   string  `json:"venue"`
	Date    string  `json:"date"`
	MaxTemp float64 `json:"max_temp"`
	MaxWind float64 `json:"max_wind"`
	Precip  float64 `json:"precip"`
	Units   string  `json:"units"`
}

// Forecast returns the normalised forecast for a venue on a date.
func (f *HTTPWeatherFeed) Forecast(ctx context.Context, venue string, date time.Time) (*models.WeatherObservation, error) {
	key := CacheKey{Feed: f.name, Parts: []string{strings.ToLower(venue), date.Format(dateLayout)}}
	return cached(f.cache, key, func() (*models.WeatherObservation, error) {
		var dto forecastDTO
		q := url.Values{"venue": {venue}, "date": {date.Format(dateLayout)}}
		if err := f.client.GetJSON(ctx, f.endpoint("/forecast", q), f.apiKey, &dto); err != nil {
			return nil, err
		}

		units := dto.Units
		if units == "" {
			units = f.defaultUnits
		}
		obs, err := environment.Normalize(environment.RawWeather{
			Venue:   venue,
			Date:    date,
			MaxTemp: dto.MaxTemp,
			MaxWind: dto.MaxWind,
			Precip:  dto.Precip,
			Units:   units,
		})
		if err != nil {
			return nil, NewDataSourceError(f.name, ErrCodeInvalidData, fmt.Sprintf("forecast for %s", venue), err)
		}
		if err := f.validator.Check(obs); err != nil {
			return nil, NewDataSourceError(f.name, ErrCodeInvalidData, fmt.Sprintf("forecast for %s", venue), err)
		}
		return &obs, nil
	})
}
