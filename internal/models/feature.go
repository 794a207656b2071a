package models

import "time"

// RollingStats holds a team's trailing aggregates as of strictly before a match.
type RollingStats struct {
	PointsScored  float64 `json:"points_scored"`
	PointsAllowed float64 `json:"points_allowed"`
	WinRate       float64 `json:"win_rate"`
	Efficiency    float64 `json:"efficiency"`
	RecentForm    float64 `json:"recent_form"`
	Games         int     `json:"games"`
}

// FeatureNames lists model inputs in the order produced by FeatureRow.Vector.
var FeatureNames = []string{
	"home_rating",
	"away_rating",
	"rating_diff",
	"home_points_scored",
	"home_points_allowed",
	"home_win_rate",
	"home_efficiency",
	"home_recent_form",
	"away_points_scored",
	"away_points_allowed",
	"away_win_rate",
	"away_efficiency",
	"away_recent_form",
	"home_rest_days",
	"away_rest_days",
	"divisional",
}

// FeatureRow is one model row for a completed match (training) or fixture (inference).
type FeatureRow struct {
	MatchID          string       `json:"match_id"`
	Season           int          `json:"season"`
	Week             int          `json:"week"`
	Date             time.Time    `json:"date"`
	HomeTeam         string       `json:"home_team"`
	AwayTeam         string       `json:"away_team"`
	HomeRatingBefore float64      `json:"home_rating_before"`
	AwayRatingBefore float64      `json:"away_rating_before"`
	Home             RollingStats `json:"home"`
	Away             RollingStats `json:"away"`
	HomeRestDays     int          `json:"home_rest_days"`
	AwayRestDays     int          `json:"away_rest_days"`
	Divisional       bool         `json:"divisional"`

	// Labels, populated for training rows only.
	Margin  float64 `json:"margin,omitempty"`
	Total   float64 `json:"total,omitempty"`
	HomeWin float64 `json:"home_win,omitempty"`
}

// Vector returns the model inputs in FeatureNames order.
func (r *FeatureRow) Vector() []float64 {
	divisional := 0.0
	if r.Divisional {
		divisional = 1.0
	}
	return []float64{
		r.HomeRatingBefore,
		r.AwayRatingBefore,
		r.HomeRatingBefore - r.AwayRatingBefore,
		r.Home.PointsScored,
		r.Home.PointsAllowed,
		r.Home.WinRate,
		r.Home.Efficiency,
		r.Home.RecentForm,
		r.Away.PointsScored,
		r.Away.PointsAllowed,
		r.Away.WinRate,
		r.Away.Efficiency,
		r.Away.RecentForm,
		float64(r.HomeRestDays),
		float64(r.AwayRestDays),
		divisional,
	}
}
