package rolling

import (
	"sort"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

type gameTeam struct {
	gameID string
	team   string
}

type tally struct {
	sum   float64
	plays int
}

func (t tally) mean() (float64, bool) {
	if t.plays == 0 {
		return 0, false
	}
	return t.sum / float64(t.plays), true
}

// EfficiencyIndex derives per-game offensive efficiency and defensive EPA allowed from plays.
// Only pass and run plays count.
type EfficiencyIndex struct {
	offense map[gameTeam]tally
	plays   []models.Play
}

// NewEfficiencyIndex indexes the play feed. A nil or empty slice yields an index with no data.
func NewEfficiencyIndex(plays []models.Play) *EfficiencyIndex {
	idx := &EfficiencyIndex{offense: make(map[gameTeam]tally)}
	for _, p := range plays {
		if p.PlayType != models.PlayTypePass && p.PlayType != models.PlayTypeRun {
			continue
		}
		key := gameTeam{gameID: p.GameID, team: p.Offense}
		t := idx.offense[key]
		t.sum += p.EPA
		t.plays++
		idx.offense[key] = t
		idx.plays = append(idx.plays, p)
	}
	sort.SliceStable(idx.plays, func(i, j int) bool {
		return idx.plays[i].Date.Before(idx.plays[j].Date)
	})
	return idx
}

// Empty reports whether the index holds no scrimmage plays.
func (x *EfficiencyIndex) Empty() bool {
	return x == nil || len(x.plays) == 0
}

// Offense returns the team's mean EPA per play in one game.
func (x *EfficiencyIndex) Offense(gameID, team string) (float64, bool) {
	if x == nil {
		return 0, false
	}
	return x.offense[gameTeam{gameID: gameID, team: team}].mean()
}

// Plays returns the indexed scrimmage plays with from <= date < before, oldest first.
func (x *EfficiencyIndex) Plays(from, before time.Time) []models.Play {
	if x == nil {
		return nil
	}
	start := sort.Search(len(x.plays), func(i int) bool { return !x.plays[i].Date.Before(from) })
	end := sort.Search(len(x.plays), func(i int) bool { return !x.plays[i].Date.Before(before) })
	if start >= end {
		return nil
	}
	return x.plays[start:end]
}

// DefenseQuality summarises EPA per play allowed by one defense or the whole league.
type DefenseQuality struct {
	PassAllowed float64
	RushAllowed float64
	PassPlays   int
	RushPlays   int
}

// DefenseAllowed returns the team's EPA per pass and per rush play allowed in the
// lookback window strictly before the cutoff date.
func (x *EfficiencyIndex) DefenseAllowed(team string, before time.Time, lookback time.Duration) (DefenseQuality, bool) {
	return x.defense(before, lookback, func(p models.Play) bool { return p.Defense == team })
}

// LeagueAllowed returns league-wide EPA per pass and per rush play in the same window.
func (x *EfficiencyIndex) LeagueAllowed(before time.Time, lookback time.Duration) (DefenseQuality, bool) {
	return x.defense(before, lookback, func(models.Play) bool { return true })
}

func (x *EfficiencyIndex) defense(before time.Time, lookback time.Duration, keep func(models.Play) bool) (DefenseQuality, bool) {
	var pass, rush tally
	for _, p := range x.Plays(before.Add(-lookback), before) {
		if !keep(p) {
			continue
		}
		switch p.PlayType {
		case models.PlayTypePass:
			pass.sum += p.EPA
			pass.plays++
		case models.PlayTypeRun:
			rush.sum += p.EPA
			rush.plays++
		}
	}
	q := DefenseQuality{PassPlays: pass.plays, RushPlays: rush.plays}
	q.PassAllowed, _ = pass.mean()
	q.RushAllowed, _ = rush.mean()
	return q, pass.plays > 0 && rush.plays > 0
}
