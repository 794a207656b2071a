package models

import "time"

// RatingSnapshot records a team's rating immediately before and after one match,
// or across the pull toward the initial rating at a season boundary.
type RatingSnapshot struct {
	Team       string    `json:"team"`
	MatchID    string    `json:"match_id,omitempty"`
	Date       time.Time `json:"date"`
	Before     float64   `json:"before"`
	After      float64   `json:"after"`
	Regression bool      `json:"regression,omitempty"`
}

// Change returns the rating delta produced by the match.
func (s RatingSnapshot) Change() float64 {
	return s.After - s.Before
}
