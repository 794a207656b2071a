// Package service orchestrates forecast, validation and backtest runs.
package service

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/yourusername/gridcast/internal/availability"
	"github.com/yourusername/gridcast/internal/backtest"
	"github.com/yourusername/gridcast/internal/cascade"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/ml"
	"github.com/yourusername/gridcast/internal/rating"
	"github.com/yourusername/gridcast/internal/rolling"
)

const day = 24 * time.Hour

// PredictionsPath returns where the forecast of one week is written.
func PredictionsPath(dir string, season, week int) string {
	return filepath.Join(dir, fmt.Sprintf("predictions_%d_week%02d.csv", season, week))
}

// BatchLabel names the validation batch of one week.
func BatchLabel(season, week int) string {
	return fmt.Sprintf("%d-week%02d", season, week)
}

func ratingConfig(c config.RatingConfig) rating.Config {
	return rating.Config{
		KFactor:          c.KFactor,
		InitialRating:    c.InitialRating,
		HomeAdvantage:    c.HomeAdvantage,
		SeasonRegression: c.SeasonRegression,
	}
}

func rollingConfig(c config.RollingConfig) rolling.Config {
	return rolling.Config{
		Window:          c.Window,
		FormWeights:     c.FormWeights,
		MinPeriods:      c.MinPeriods,
		DefaultRestDays: c.DefaultRestDays,
	}
}

func forecasterConfig(c config.ModelConfig) ml.ForecasterConfig {
	return ml.ForecasterConfig{
		RidgeLambda:        c.RidgeLambda,
		LogisticIterations: c.LogisticIterations,
		LogisticLambda:     c.LogisticLambda,
		Version:            c.Version,
	}
}

func availabilityConfig(c config.AvailabilityConfig) availability.Config {
	impacts := c.PositionImpacts
	if len(impacts) == 0 {
		impacts = availability.DefaultPositionImpacts()
	}
	return availability.Config{
		CriticalPosition:    c.CriticalPosition,
		UsageMinPlays:       c.UsageMinPlays,
		UsageWindow:         time.Duration(c.UsageWindowDays) * day,
		EPAScale:            c.EPAScale,
		LeagueAverageEPA:    c.LeagueAverageEPA,
		ReplacementLevelEPA: c.ReplacementLevelEPA,
		CompetentBand:       availability.Band{Min: c.CompetentBand.Min, Max: c.CompetentBand.Max},
		WeakBand:            availability.Band{Min: c.WeakBand.Min, Max: c.WeakBand.Max},
		FallbackPenalty:     c.FallbackPenalty,
		DefenseSensitivity:  c.DefenseSensitivity,
		DefenseLookback:     time.Duration(c.DefenseLookbackDays) * day,
		MultiplierMin:       c.MultiplierMin,
		MultiplierMax:       c.MultiplierMax,
		DoubtfulFactor:      c.DoubtfulFactor,
		QuestionableFactor:  c.QuestionableFactor,
		PositionImpacts:     impacts,
	}
}

func probabilityMapper(c config.CascadeConfig) cascade.ProbabilityMapper {
	return cascade.ProbabilityMapper{
		Sigma:   c.Sigma,
		Floor:   c.ProbabilityFloor,
		Ceiling: c.ProbabilityCeil,
	}
}

func validationConfig(c config.ValidationConfig) backtest.Config {
	return backtest.Config{
		FlagTolerance:       c.FlagTolerance,
		BootstrapIterations: c.BootstrapIterations,
		ConfidenceLevel:     c.ConfidenceLevel,
		Seed:                c.Seed,
	}
}
