package environment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yourusername/gridcast/internal/cascade"
	"github.com/yourusername/gridcast/internal/models"
)

// WeatherSource supplies normalised forecasts by venue and date.
type WeatherSource interface {
	Forecast(ctx context.Context, venue string, date time.Time) (*models.WeatherObservation, error)
}

// Stage is the environment step of the cascade.
type Stage struct {
	source     WeatherSource
	thresholds Thresholds
	enclosed   map[string]bool
}

// NewStage creates the environment stage. source may be nil when no weather feed is configured;
// enclosedVenues lists venues treated as enclosed regardless of the fixture's roof field.
func NewStage(source WeatherSource, thresholds Thresholds, enclosedVenues []string) *Stage {
	enclosed := make(map[string]bool, len(enclosedVenues))
	for _, v := range enclosedVenues {
		enclosed[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return &Stage{source: source, thresholds: thresholds, enclosed: enclosed}
}

// Enclosed reports whether weather cannot reach the field at the fixture's venue.
func (s *Stage) Enclosed(fx *models.Match) bool {
	return fx.IsEnclosed() || s.enclosed[strings.ToLower(strings.TrimSpace(fx.Venue))]
}

// Adjust implements cascade.Stage.
func (s *Stage) Adjust(ctx context.Context, fx *models.Match, spread float64) cascade.Outcome {
	if s.Enclosed(fx) {
		return cascade.Skip(models.SkipReasonNotApplicable, fmt.Sprintf("%s is enclosed", venueLabel(fx)))
	}
	if s.source == nil {
		return cascade.Skip(models.SkipReasonNoData, "no weather feed configured")
	}

	obs, err := s.source.Forecast(ctx, fx.Venue, fx.Date)
	if err != nil || obs == nil {
		reason := "weather feed returned nothing"
		if err != nil {
			reason = fmt.Sprintf("weather feed unavailable: %v", err)
		}
		return cascade.Skip(models.SkipReasonNoData, reason)
	}
	return s.Score(*obs, spread)
}

// Score turns an observation into a cascade outcome for a fixture at an open venue.
func (s *Stage) Score(obs models.WeatherObservation, spread float64) cascade.Outcome {
	penalty := s.thresholds.Score(obs)
	if penalty.Spread == 0 && penalty.Total == 0 {
		return cascade.Outcome{Justifications: []string{"weather within thresholds"}}
	}

	adj := Compress(spread, penalty.Spread)
	justifications := append([]string{}, penalty.Factors...)
	justifications = append(justifications, fmt.Sprintf("margin compressed by %.2f of %.2f weather points", math.Abs(adj), penalty.Spread))
	return cascade.Outcome{
		Adjustment:      adj,
		TotalAdjustment: -penalty.Total,
		Justifications:  justifications,
	}
}

func venueLabel(fx *models.Match) string {
	if fx.Venue != "" {
		return fx.Venue
	}
	return fx.HomeTeam + " home venue"
}
