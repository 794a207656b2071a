package models

import (
	"sort"
	"time"
)

// Roof types reported for a venue.
const (
	RoofOpen        = "open"
	RoofDome        = "dome"
	RoofClosed      = "closed"
	RoofRetractable = "retractable"
)

// Team represents a franchise tracked across seasons.
type Team struct {
	Code       string `mapstructure:"code" json:"code" validate:"required"`
	Division   string `mapstructure:"division" json:"division"`
	Conference string `mapstructure:"conference" json:"conference"`
}

// Match is an immutable game record. A match without both scores is a fixture.
type Match struct {
	ID        string    `db:"id" json:"id" validate:"required"`
	Season    int       `db:"season" json:"season" validate:"required,gt=1900"`
	Week      int       `db:"week" json:"week" validate:"gte=0"`
	Date      time.Time `db:"game_date" json:"date" validate:"required"`
	HomeTeam  string    `db:"home_team" json:"home_team" validate:"required,nefield=AwayTeam"`
	AwayTeam  string    `db:"away_team" json:"away_team" validate:"required"`
	HomeScore *int      `db:"home_score" json:"home_score" validate:"omitempty,gte=0"`
	AwayScore *int      `db:"away_score" json:"away_score" validate:"omitempty,gte=0"`
	Venue     string    `db:"venue" json:"venue"`
	Roof      string    `db:"roof" json:"roof" validate:"omitempty,oneof=open dome closed retractable"`
}

// IsCompleted reports whether both final scores are known.
func (m *Match) IsCompleted() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Margin returns the home-relative point differential. Zero for fixtures.
func (m *Match) Margin() int {
	if !m.IsCompleted() {
		return 0
	}
	return *m.HomeScore - *m.AwayScore
}

// Total returns combined points. Zero for fixtures.
func (m *Match) Total() int {
	if !m.IsCompleted() {
		return 0
	}
	return *m.HomeScore + *m.AwayScore
}

// Involves reports whether the team played in the match.
func (m *Match) Involves(team string) bool {
	return m.HomeTeam == team || m.AwayTeam == team
}

// Opponent returns the other side of the match for team.
func (m *Match) Opponent(team string) string {
	if m.HomeTeam == team {
		return m.AwayTeam
	}
	return m.HomeTeam
}

// PointsFor returns the points scored and allowed by team.
func (m *Match) PointsFor(team string) (scored, allowed int) {
	if !m.IsCompleted() {
		return 0, 0
	}
	if m.HomeTeam == team {
		return *m.HomeScore, *m.AwayScore
	}
	return *m.AwayScore, *m.HomeScore
}

// Result returns 1 for a win, 0.5 for a draw and 0 for a loss from team's perspective.
func (m *Match) Result(team string) float64 {
	scored, allowed := m.PointsFor(team)
	switch {
	case scored > allowed:
		return 1
	case scored == allowed:
		return 0.5
	default:
		return 0
	}
}

// IsEnclosed reports whether the venue roof shields the field from weather.
func (m *Match) IsEnclosed() bool {
	return m.Roof == RoofDome || m.Roof == RoofClosed
}

// SortChronologically orders matches by date, breaking ties by id so the order is stable.
func SortChronologically(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Date.Equal(matches[j].Date) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Date.Before(matches[j].Date)
	})
}

// SplitCompleted separates completed games from fixtures, preserving order.
func SplitCompleted(matches []*Match) (completed, fixtures []*Match) {
	for _, m := range matches {
		if m.IsCompleted() {
			completed = append(completed, m)
		} else {
			fixtures = append(fixtures, m)
		}
	}
	return completed, fixtures
}

// IntPtr is a helper for building score fields.
func IntPtr(v int) *int {
	return &v
}
