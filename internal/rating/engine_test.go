package rating

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/models"
)

var seasonStart = time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC)

func match(id string, day int, home, away string, hs, as int) *models.Match {
	return &models.Match{
		ID:        id,
		Season:    2024,
		Week:      day/7 + 1,
		Date:      seasonStart.AddDate(0, 0, day),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: models.IntPtr(hs),
		AwayScore: models.IntPtr(as),
	}
}

func TestExpectedEqualRatings(t *testing.T) {
	assert.Equal(t, 0.5, Expected(1500, 1500))
	assert.InDelta(t, 0.76, Expected(1700, 1500), 0.01)
	assert.InDelta(t, 1.0, Expected(1700, 1500)+Expected(1500, 1700), 1e-12)
}

func TestApplyHomeWinFromInitial(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()

	home, away, err := engine.Apply(state, match("g1", 0, "KC", "BAL", 27, 20))
	require.NoError(t, err)

	assert.Equal(t, 1500.0, home.Before)
	assert.Equal(t, 1500.0, away.Before)
	assert.InDelta(t, 1510.0, home.After, 1e-9)
	assert.InDelta(t, 1490.0, away.After, 1e-9)
	assert.InDelta(t, 1510.0, state.Rating("KC"), 1e-9)
}

func TestApplyDrawMovesTowardsEachOther(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()

	_, _, err := engine.Apply(state, match("g1", 0, "KC", "BAL", 30, 10))
	require.NoError(t, err)
	home, away, err := engine.Apply(state, match("g2", 7, "KC", "BAL", 17, 17))
	require.NoError(t, err)

	assert.Less(t, home.After, home.Before)
	assert.Greater(t, away.After, away.Before)
	assert.InDelta(t, 0.0, home.Change()+away.Change(), 1e-9)
}

func TestApplyRejectsIncomplete(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	fixture := &models.Match{ID: "f1", Date: seasonStart, HomeTeam: "KC", AwayTeam: "BAL"}

	_, _, err := engine.Apply(state, fixture)
	assert.True(t, errors.Is(err, models.ErrDataIncomplete))
	assert.Empty(t, state.Teams())
}

func TestApplyRejectsOutOfOrder(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()

	_, _, err := engine.Apply(state, match("g2", 7, "KC", "BAL", 21, 14))
	require.NoError(t, err)

	_, _, err = engine.Apply(state, match("g1", 0, "BUF", "MIA", 21, 14))
	assert.True(t, errors.Is(err, models.ErrOrderingViolation))
	assert.Equal(t, 1500.0, state.Rating("BUF"))
}

func TestApplyRejectsDuplicate(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	m := match("g1", 0, "KC", "BAL", 21, 14)

	_, _, err := engine.Apply(state, m)
	require.NoError(t, err)
	_, _, err = engine.Apply(state, m)
	assert.True(t, errors.Is(err, models.ErrOrderingViolation))
}

func TestProcessDoesNotSort(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	matches := []*models.Match{
		match("g1", 0, "KC", "BAL", 21, 14),
		match("g3", 14, "KC", "BUF", 21, 14),
		match("g2", 7, "BAL", "BUF", 21, 14),
	}

	snaps, err := engine.Process(state, matches)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOrderingViolation))
	assert.Len(t, snaps, 4)
}

func TestSameDateMatchesAllowed(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	_, err := engine.Process(state, []*models.Match{
		match("g1", 0, "KC", "BAL", 21, 14),
		match("g2", 0, "BUF", "MIA", 10, 14),
	})
	require.NoError(t, err)
	assert.Len(t, state.Teams(), 4)
}

// Every snapshot's before value equals the same team's previous after value.
func TestBeforeEqualsPreviousAfter(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	teams := []string{"KC", "BAL", "BUF", "MIA", "CIN", "PIT"}

	var matches []*models.Match
	for i := 0; i < 60; i++ {
		home := teams[i%len(teams)]
		away := teams[(i*5+1)%len(teams)]
		if home == away {
			away = teams[(i+1)%len(teams)]
		}
		matches = append(matches, match(fmt.Sprintf("g%02d", i), i*3, home, away, 10+(i*7)%25, 10+(i*11)%25))
	}

	_, err := engine.Process(state, matches)
	require.NoError(t, err)

	for _, team := range state.Teams() {
		history := state.History(team)
		require.NotEmpty(t, history)
		assert.Equal(t, 1500.0, history[0].Before, team)
		for i := 1; i < len(history); i++ {
			assert.Equal(t, history[i-1].After, history[i].Before, "%s snapshot %d", team, i)
		}
	}
}

func TestRatingBeforeUsesStrictlyEarlierMatches(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	_, err := engine.Process(state, []*models.Match{
		match("g1", 0, "KC", "BAL", 21, 14),
		match("g2", 7, "KC", "BUF", 21, 14),
	})
	require.NoError(t, err)

	assert.Equal(t, 1500.0, state.RatingBefore("KC", seasonStart))
	first := state.History("KC")[0]
	assert.Equal(t, first.After, state.RatingBefore("KC", seasonStart.AddDate(0, 0, 7)))

	pre, err := state.PreGameRating("KC", "g2")
	require.NoError(t, err)
	assert.Equal(t, first.After, pre)
}

func TestRatingAsOfRejectsProcessedDates(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	state := engine.NewState()
	_, _, err := engine.Apply(state, match("g1", 7, "KC", "BAL", 21, 14))
	require.NoError(t, err)

	_, err = state.RatingAsOf("KC", seasonStart.AddDate(0, 0, 7))
	assert.True(t, errors.Is(err, models.ErrOrderingViolation))

	r, err := state.RatingAsOf("KC", seasonStart.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.Equal(t, state.Rating("KC"), r)
}

func TestSeasonRegression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeasonRegression = 0.5
	engine := NewEngine(cfg)
	state := engine.NewState()

	_, _, err := engine.Apply(state, match("g1", 0, "KC", "BAL", 21, 14))
	require.NoError(t, err)

	next := match("g2", 300, "KC", "BAL", 21, 14)
	next.Season = 2025
	home, _, err := engine.Apply(state, next)
	require.NoError(t, err)
	assert.InDelta(t, 1505.0, home.Before, 1e-9)

	history := state.History("KC")
	require.Len(t, history, 3)
	pull := history[1]
	assert.True(t, pull.Regression)
	assert.Empty(t, pull.MatchID)
	assert.InDelta(t, 1510.0, pull.Before, 1e-9)
	assert.InDelta(t, 1505.0, pull.After, 1e-9)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].After, history[i].Before, "snapshot %d", i)
	}

	pre, err := state.PreGameRating("KC", "g2")
	require.NoError(t, err)
	assert.Equal(t, home.Before, pre)
}

func TestNoRegressionSnapshotWithinSeason(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeasonRegression = 0.5
	engine := NewEngine(cfg)
	state := engine.NewState()

	_, err := engine.Process(state, []*models.Match{
		match("g1", 0, "KC", "BAL", 21, 14),
		match("g2", 7, "KC", "BAL", 21, 14),
	})
	require.NoError(t, err)
	for _, snap := range state.History("KC") {
		assert.False(t, snap.Regression)
	}
	assert.Len(t, state.History("KC"), 2)
}
