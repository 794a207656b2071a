package rolling

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/models"
)

var opening = time.Date(2024, 9, 8, 13, 0, 0, 0, time.UTC)

func game(id string, day int, home, away string, hs, as int) *models.Match {
	return &models.Match{
		ID:        id,
		Season:    2024,
		Date:      opening.AddDate(0, 0, day),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: models.IntPtr(hs),
		AwayScore: models.IntPtr(as),
	}
}

func TestFirstGameIsIncomplete(t *testing.T) {
	table, err := NewAggregator(DefaultConfig(), nil).Build([]*models.Match{
		game("g1", 0, "KC", "BAL", 27, 20),
	})
	require.NoError(t, err)

	entry, ok := table.ForMatch("g1", "KC")
	require.True(t, ok)
	assert.False(t, entry.Complete)
	assert.Equal(t, 7, entry.RestDays)
}

// Scores strictly increase over time, so any leaked current or future game would
// push the trailing mean up to or past the current score.
func TestNoLookAhead(t *testing.T) {
	var matches []*models.Match
	for i := 0; i < 30; i++ {
		matches = append(matches, game(fmt.Sprintf("g%02d", i), i*7, "KC", "OPP", 10+i, 0))
	}

	table, err := NewAggregator(DefaultConfig(), nil).Build(matches)
	require.NoError(t, err)

	for i, m := range matches {
		entry, ok := table.ForMatch(m.ID, "KC")
		require.True(t, ok)
		if i == 0 {
			assert.False(t, entry.Complete)
			continue
		}
		require.True(t, entry.Complete)
		assert.Less(t, entry.Stats.PointsScored, float64(*m.HomeScore), "match %s", m.ID)
		assert.Less(t, entry.Stats.RecentForm, float64(*m.HomeScore), "match %s", m.ID)
		assert.Equal(t, 7, entry.RestDays)
	}
}

func TestSameDateGamesDoNotSeeEachOther(t *testing.T) {
	table, err := NewAggregator(DefaultConfig(), nil).Build([]*models.Match{
		game("g1", 0, "KC", "BAL", 27, 20),
		game("g2", 7, "KC", "BUF", 30, 3),
		game("g3", 7, "KC", "MIA", 3, 30),
	})
	require.NoError(t, err)

	e2, _ := table.ForMatch("g2", "KC")
	e3, _ := table.ForMatch("g3", "KC")
	assert.Equal(t, e2.Stats, e3.Stats)
	assert.Equal(t, 1, e3.Stats.Games)
}

func TestWindowAndForm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 3
	scores := []int{10, 20, 30, 40, 50}
	var matches []*models.Match
	for i, s := range scores {
		matches = append(matches, game(fmt.Sprintf("g%d", i), i*7, "KC", "OPP", s, 0))
	}
	matches = append(matches, &models.Match{ID: "next", Date: opening.AddDate(0, 0, 40), HomeTeam: "KC", AwayTeam: "OPP"})

	table, err := NewAggregator(cfg, nil).Build(matches)
	require.NoError(t, err)

	entry := table.AsOf("KC", opening.AddDate(0, 0, 40))
	require.True(t, entry.Complete)
	assert.InDelta(t, 40.0, entry.Stats.PointsScored, 1e-9)
	assert.InDelta(t, (1.0*30+1.5*40+2.0*50)/4.5, entry.Stats.RecentForm, 1e-9)
	assert.Equal(t, 1.0, entry.Stats.WinRate)
	assert.Equal(t, 12, entry.RestDays)
	assert.Equal(t, 5, table.Games("KC"))
}

func TestRecentFormFallsBackToPlainMean(t *testing.T) {
	table, err := NewAggregator(DefaultConfig(), nil).Build([]*models.Match{
		game("g1", 0, "KC", "BAL", 20, 10),
		game("g2", 7, "KC", "BAL", 10, 30),
		game("g3", 14, "KC", "BAL", 14, 14),
	})
	require.NoError(t, err)

	entry, _ := table.ForMatch("g3", "KC")
	assert.InDelta(t, -5.0, entry.Stats.RecentForm, 1e-9)
	assert.InDelta(t, 0.5, entry.Stats.WinRate, 1e-9)
}

func TestMinPeriods(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinPeriods = 2
	table, err := NewAggregator(cfg, nil).Build([]*models.Match{
		game("g1", 0, "KC", "BAL", 20, 10),
		game("g2", 7, "KC", "BAL", 10, 30),
		game("g3", 14, "KC", "BAL", 14, 14),
	})
	require.NoError(t, err)

	e2, _ := table.ForMatch("g2", "KC")
	e3, _ := table.ForMatch("g3", "KC")
	assert.False(t, e2.Complete)
	assert.True(t, e3.Complete)
}

func TestBuildRejectsUnsorted(t *testing.T) {
	_, err := NewAggregator(DefaultConfig(), nil).Build([]*models.Match{
		game("g2", 7, "KC", "BAL", 20, 10),
		game("g1", 0, "KC", "BAL", 10, 30),
	})
	assert.True(t, errors.Is(err, models.ErrOrderingViolation))
}

func TestEfficiencyFromPlays(t *testing.T) {
	plays := []models.Play{
		{GameID: "g1", Date: opening, Offense: "KC", Defense: "BAL", PlayType: models.PlayTypePass, EPA: 0.4},
		{GameID: "g1", Date: opening, Offense: "KC", Defense: "BAL", PlayType: models.PlayTypeRun, EPA: 0.0},
		{GameID: "g1", Date: opening, Offense: "KC", Defense: "BAL", PlayType: models.PlayTypeOther, EPA: 5.0},
		{GameID: "g2", Date: opening.AddDate(0, 0, 7), Offense: "KC", Defense: "BUF", PlayType: models.PlayTypePass, EPA: -0.2},
	}
	index := NewEfficiencyIndex(plays)
	table, err := NewAggregator(DefaultConfig(), index).Build([]*models.Match{
		game("g1", 0, "KC", "BAL", 20, 10),
		game("g2", 7, "KC", "BUF", 10, 30),
		game("g3", 14, "KC", "MIA", 14, 14),
	})
	require.NoError(t, err)

	e2, _ := table.ForMatch("g2", "KC")
	assert.InDelta(t, 0.2, e2.Stats.Efficiency, 1e-9)
	e3, _ := table.ForMatch("g3", "KC")
	assert.InDelta(t, 0.0, e3.Stats.Efficiency, 1e-9)

	// BAL has no offensive plays: efficiency is missing and left at zero.
	eBAL := table.AsOf("BAL", opening.AddDate(0, 0, 1))
	assert.True(t, eBAL.Complete)
	assert.Equal(t, 0.0, eBAL.Stats.Efficiency)
}

func TestDefenseAllowed(t *testing.T) {
	plays := []models.Play{
		{GameID: "g1", Date: opening, Offense: "KC", Defense: "BAL", PlayType: models.PlayTypePass, EPA: 0.3},
		{GameID: "g1", Date: opening, Offense: "KC", Defense: "BAL", PlayType: models.PlayTypeRun, EPA: -0.1},
		{GameID: "g1", Date: opening, Offense: "BAL", Defense: "KC", PlayType: models.PlayTypePass, EPA: -0.1},
		{GameID: "g1", Date: opening, Offense: "BAL", Defense: "KC", PlayType: models.PlayTypeRun, EPA: 0.1},
		{GameID: "g2", Date: opening.AddDate(0, 0, 7), Offense: "KC", Defense: "BAL", PlayType: models.PlayTypePass, EPA: 9},
	}
	index := NewEfficiencyIndex(plays)
	cutoff := opening.AddDate(0, 0, 7)

	bal, ok := index.DefenseAllowed("BAL", cutoff, 28*24*time.Hour)
	require.True(t, ok)
	assert.InDelta(t, 0.3, bal.PassAllowed, 1e-9)
	assert.InDelta(t, -0.1, bal.RushAllowed, 1e-9)

	league, ok := index.LeagueAllowed(cutoff, 28*24*time.Hour)
	require.True(t, ok)
	assert.InDelta(t, 0.1, league.PassAllowed, 1e-9)
	assert.InDelta(t, 0.0, league.RushAllowed, 1e-9)

	_, ok = index.DefenseAllowed("MIA", cutoff, 28*24*time.Hour)
	assert.False(t, ok)
}
