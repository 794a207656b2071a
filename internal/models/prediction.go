package models

import "time"

// BasePrediction is the predictive model's output for one fixture before any adjustment.
type BasePrediction struct {
	MatchID        string    `json:"match_id" validate:"required"`
	Season         int       `json:"season"`
	Week           int       `json:"week"`
	Date           time.Time `json:"date"`
	HomeTeam       string    `json:"home_team" validate:"required"`
	AwayTeam       string    `json:"away_team" validate:"required"`
	WinProbability float64   `json:"win_probability" validate:"gte=0,lte=1"`
	Spread         float64   `json:"spread"`
	Total          float64   `json:"total" validate:"gte=0"`
	ModelVersion   string    `json:"model_version"`
}

// Winner returns the team favoured by a home-relative spread. A zero spread
// is resolved by the accompanying home win probability.
func Winner(homeTeam, awayTeam string, spread, homeWinProbability float64) string {
	switch {
	case spread > 0:
		return homeTeam
	case spread < 0:
		return awayTeam
	case homeWinProbability >= 0.5:
		return homeTeam
	default:
		return awayTeam
	}
}
