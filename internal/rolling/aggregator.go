// Package rolling computes trailing per-team aggregates that only look at strictly earlier matches.
package rolling

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/gridcast/internal/models"
)

// Config holds the window parameters.
type Config struct {
	Window          int
	FormWeights     []float64
	MinPeriods      int
	DefaultRestDays int
}

// DefaultConfig returns a 10-game window, 1.0/1.5/2.0 form weights and 7 default rest days.
func DefaultConfig() Config {
	return Config{
		Window:          10,
		FormWeights:     []float64{1.0, 1.5, 2.0},
		MinPeriods:      1,
		DefaultRestDays: 7,
	}
}

// Entry is one team's aggregate view entering a match.
type Entry struct {
	Stats    models.RollingStats
	Complete bool
	RestDays int
}

type gameLine struct {
	matchID    string
	date       time.Time
	scored     float64
	allowed    float64
	result     float64
	efficiency float64
	hasEff     bool
}

type matchTeam struct {
	matchID string
	team    string
}

// Table holds per-team game logs and the aggregates entering every completed match.
type Table struct {
	cfg     Config
	lines   map[string][]gameLine
	entries map[matchTeam]Entry
}

// Aggregator builds rolling tables from chronologically ordered matches.
type Aggregator struct {
	cfg        Config
	efficiency *EfficiencyIndex
}

// NewAggregator creates an aggregator. efficiency may be nil when no play feed is configured.
func NewAggregator(cfg Config, efficiency *EfficiencyIndex) *Aggregator {
	return &Aggregator{cfg: cfg, efficiency: efficiency}
}

// Build walks matches in order and records, for every completed match and both
// sides, the aggregates computed from strictly earlier dates. Fixtures are ignored.
func (a *Aggregator) Build(matches []*models.Match) (*Table, error) {
	table := &Table{
		cfg:     a.cfg,
		lines:   make(map[string][]gameLine),
		entries: make(map[matchTeam]Entry),
	}

	var last time.Time
	for _, m := range matches {
		if m.Date.Before(last) {
			return nil, fmt.Errorf("%w: match %s dated %s precedes %s",
				models.ErrOrderingViolation, m.ID, m.Date.Format("2006-01-02"), last.Format("2006-01-02"))
		}
		last = m.Date
		if !m.IsCompleted() {
			continue
		}

		for _, team := range []string{m.HomeTeam, m.AwayTeam} {
			table.entries[matchTeam{matchID: m.ID, team: team}] = table.AsOf(team, m.Date)
		}
		for _, team := range []string{m.HomeTeam, m.AwayTeam} {
			table.lines[team] = append(table.lines[team], a.line(m, team))
		}
	}
	return table, nil
}

func (a *Aggregator) line(m *models.Match, team string) gameLine {
	scored, allowed := m.PointsFor(team)
	l := gameLine{
		matchID: m.ID,
		date:    m.Date,
		scored:  float64(scored),
		allowed: float64(allowed),
		result:  m.Result(team),
	}
	l.efficiency, l.hasEff = a.efficiency.Offense(m.ID, team)
	return l
}

// ForMatch returns the aggregates a team carried into a completed match.
func (t *Table) ForMatch(matchID, team string) (Entry, bool) {
	e, ok := t.entries[matchTeam{matchID: matchID, team: team}]
	return e, ok
}

// AsOf computes the team's aggregates from its games dated strictly before date.
func (t *Table) AsOf(team string, date time.Time) Entry {
	prior := t.lines[team]
	n := len(prior)
	for n > 0 && !prior[n-1].date.Before(date) {
		n--
	}
	prior = prior[:n]

	entry := Entry{RestDays: t.cfg.DefaultRestDays}
	if n > 0 {
		entry.RestDays = calendarDays(prior[n-1].date, date)
	}
	if n < t.cfg.MinPeriods || n == 0 {
		return entry
	}

	window := prior
	if len(window) > t.cfg.Window {
		window = window[len(window)-t.cfg.Window:]
	}
	entry.Stats = summarise(window, t.cfg.FormWeights)
	entry.Complete = true
	return entry
}

// Games returns how many completed games the team has on record.
func (t *Table) Games(team string) int {
	return len(t.lines[team])
}

func summarise(window []gameLine, weights []float64) models.RollingStats {
	scored := make([]float64, len(window))
	allowed := make([]float64, len(window))
	results := make([]float64, len(window))
	var efficiency []float64
	for i, l := range window {
		scored[i], allowed[i], results[i] = l.scored, l.allowed, l.result
		if l.hasEff {
			efficiency = append(efficiency, l.efficiency)
		}
	}
	var stats models.RollingStats
	stats.PointsScored = stat.Mean(scored, nil)
	stats.PointsAllowed = stat.Mean(allowed, nil)
	stats.WinRate = stat.Mean(results, nil)
	if len(efficiency) > 0 {
		stats.Efficiency = stat.Mean(efficiency, nil)
	}
	stats.RecentForm = recentForm(window, weights)
	stats.Games = len(window)
	return stats
}

// recentForm is the recency-weighted mean of the last len(weights) margins, the
// last weight applying to the latest game. With fewer games it is the plain mean.
func recentForm(window []gameLine, weights []float64) float64 {
	k := len(weights)
	if len(window) < k {
		return stat.Mean(margins(window), nil)
	}
	return stat.Mean(margins(window[len(window)-k:]), weights)
}

func margins(lines []gameLine) []float64 {
	out := make([]float64, len(lines))
	for i, l := range lines {
		out[i] = l.scored - l.allowed
	}
	return out
}

// calendarDays counts date boundaries between two instants in UTC.
func calendarDays(from, to time.Time) int {
	f := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
