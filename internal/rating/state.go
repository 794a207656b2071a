package rating

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// State is the owned rating table threaded through sequential match processing.
// It is not safe for concurrent mutation; readers may share it once processing ends.
type State struct {
	initial  float64
	ratings  map[string]float64
	seasons  map[string]int
	history  map[string][]models.RatingSnapshot
	applied  map[string]bool
	lastDate time.Time
}

// NewState creates an empty rating table where unseen teams start at initial.
func NewState(initial float64) *State {
	return &State{
		initial: initial,
		ratings: make(map[string]float64),
		seasons: make(map[string]int),
		history: make(map[string][]models.RatingSnapshot),
		applied: make(map[string]bool),
	}
}

// Initial returns the rating assigned to a team on first appearance.
func (s *State) Initial() float64 {
	return s.initial
}

// LastDate returns the date of the most recently applied match.
func (s *State) LastDate() time.Time {
	return s.lastDate
}

// Rating returns the team's current rating, or the initial rating for an unseen team.
func (s *State) Rating(team string) float64 {
	if r, ok := s.ratings[team]; ok {
		return r
	}
	return s.initial
}

// RatingAsOf returns the team's current rating for use as a pre-game feature on date.
// Once a match on or after date has been applied the current value already contains
// information from that day, so the request is rejected.
func (s *State) RatingAsOf(team string, date time.Time) (float64, error) {
	if !s.lastDate.IsZero() && !date.After(s.lastDate) {
		return 0, fmt.Errorf("%w: rating for %s requested as of %s but state already includes %s",
			models.ErrOrderingViolation, team, date.Format("2006-01-02"), s.lastDate.Format("2006-01-02"))
	}
	return s.Rating(team), nil
}

// RatingBefore returns the latest post-match rating the team carried strictly before date.
func (s *State) RatingBefore(team string, date time.Time) float64 {
	snaps := s.history[team]
	idx := sort.Search(len(snaps), func(i int) bool {
		return !snaps[i].Date.Before(date)
	})
	if idx == 0 {
		return s.initial
	}
	return snaps[idx-1].After
}

// PreGameRating returns the stored before-value of the team for an applied match.
func (s *State) PreGameRating(team, matchID string) (float64, error) {
	for _, snap := range s.history[team] {
		if snap.MatchID == matchID {
			return snap.Before, nil
		}
	}
	return 0, fmt.Errorf("no rating snapshot for %s in match %s: %w", team, matchID, models.ErrNotFound)
}

// History returns a copy of the team's snapshot sequence in processing order.
func (s *State) History(team string) []models.RatingSnapshot {
	snaps := s.history[team]
	out := make([]models.RatingSnapshot, len(snaps))
	copy(out, snaps)
	return out
}

// Teams returns every team seen so far in sorted order.
func (s *State) Teams() []string {
	teams := make([]string, 0, len(s.ratings))
	for team := range s.ratings {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// Snapshots returns every snapshot grouped by team, teams in sorted order.
func (s *State) Snapshots() []models.RatingSnapshot {
	var out []models.RatingSnapshot
	for _, team := range s.Teams() {
		out = append(out, s.history[team]...)
	}
	return out
}

// Applied reports whether a match id has already been processed.
func (s *State) Applied(matchID string) bool {
	return s.applied[matchID]
}

func (s *State) record(snap models.RatingSnapshot, season int) {
	s.ratings[snap.Team] = snap.After
	s.seasons[snap.Team] = season
	s.history[snap.Team] = append(s.history[snap.Team], snap)
}
