// Package rating maintains chronological Elo ratings per team.
package rating

import (
	"fmt"
	"math"

	"github.com/yourusername/gridcast/internal/models"
)

// Config holds the Elo parameters.
type Config struct {
	KFactor          float64
	InitialRating    float64
	HomeAdvantage    float64
	SeasonRegression float64
}

// DefaultConfig returns K=20 with every team starting at 1500.
func DefaultConfig() Config {
	return Config{
		KFactor:       20,
		InitialRating: 1500,
	}
}

// Engine applies match results to a State.
type Engine struct {
	cfg Config
}

// NewEngine creates a rating engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// NewState creates an empty state seeded with the engine's initial rating.
func (e *Engine) NewState() *State {
	return NewState(e.cfg.InitialRating)
}

// Expected returns the logistic expected score of a side rated ra against rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// Apply folds one completed match into state and returns the home and away snapshots.
// Matches must arrive in non-decreasing date order and only once.
func (e *Engine) Apply(state *State, m *models.Match) (home, away models.RatingSnapshot, err error) {
	if !m.IsCompleted() {
		return home, away, fmt.Errorf("match %s has no final score: %w", m.ID, models.ErrDataIncomplete)
	}
	if state.Applied(m.ID) {
		return home, away, fmt.Errorf("%w: match %s already applied", models.ErrOrderingViolation, m.ID)
	}
	if m.Date.Before(state.lastDate) {
		return home, away, fmt.Errorf("%w: match %s dated %s precedes last processed %s",
			models.ErrOrderingViolation, m.ID, m.Date.Format("2006-01-02"), state.lastDate.Format("2006-01-02"))
	}

	homeBefore := e.seasonStart(state, m.HomeTeam, m)
	awayBefore := e.seasonStart(state, m.AwayTeam, m)

	expectedHome := Expected(homeBefore+e.cfg.HomeAdvantage, awayBefore)
	actualHome := m.Result(m.HomeTeam)
	delta := e.cfg.KFactor * (actualHome - expectedHome)

	home = models.RatingSnapshot{
		Team:    m.HomeTeam,
		MatchID: m.ID,
		Date:    m.Date,
		Before:  homeBefore,
		After:   homeBefore + delta,
	}
	away = models.RatingSnapshot{
		Team:    m.AwayTeam,
		MatchID: m.ID,
		Date:    m.Date,
		Before:  awayBefore,
		After:   awayBefore - delta,
	}

	state.record(home, m.Season)
	state.record(away, m.Season)
	state.applied[m.ID] = true
	state.lastDate = m.Date
	return home, away, nil
}

// Process applies an already sorted match list. It never sorts: an out-of-order
// list fails with ErrOrderingViolation and leaves state holding the prefix applied so far.
func (e *Engine) Process(state *State, matches []*models.Match) ([]models.RatingSnapshot, error) {
	snaps := make([]models.RatingSnapshot, 0, 2*len(matches))
	for _, m := range matches {
		home, away, err := e.Apply(state, m)
		if err != nil {
			return snaps, err
		}
		snaps = append(snaps, home, away)
	}
	return snaps, nil
}

// seasonStart returns the team's rating entering a match. On the first match of a
// new season with regression enabled, the pull toward the initial value is recorded
// as its own snapshot so the history stays a continuous before/after chain.
func (e *Engine) seasonStart(state *State, team string, m *models.Match) float64 {
	current := state.Rating(team)
	last, seen := state.seasons[team]
	if !seen || e.cfg.SeasonRegression == 0 || m.Season <= last {
		return current
	}
	regressed := current + e.cfg.SeasonRegression*(state.initial-current)
	state.record(models.RatingSnapshot{
		Team:       team,
		Date:       m.Date,
		Before:     current,
		After:      regressed,
		Regression: true,
	}, m.Season)
	return regressed
}
