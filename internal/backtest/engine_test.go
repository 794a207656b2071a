package backtest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/models"
)

var fixedBatchID = uuid.MustParse("5c8a3c1e-4a59-4c8e-9b1e-2f0b7d0f6a11")

func intPtr(v int) *int { return &v }

// outcome builds a finished fixture with spreads for base, availability and environment.
func outcome(id, home, away string, base, avail, env, total float64, homeScore, awayScore *int) models.Outcome {
	winner := models.Winner(home, away, env, 0.5)
	return models.Outcome{
		Record: models.AdjustmentRecord{
			MatchID:        id,
			HomeTeam:       home,
			AwayTeam:       away,
			PredictedTotal: total,
			Stages: []models.StageRecord{
				{Name: models.StageBase, Spread: base, Winner: models.Winner(home, away, base, 0.5)},
				{Name: models.StageAfterAvailability, Adjustment: avail - base, Spread: avail},
				{Name: models.StageAfterEnvironment, Adjustment: env - avail, Spread: env},
				{Name: models.StageFinal, Spread: env, Winner: winner},
			},
		},
		HomeScore: homeScore,
		AwayScore: awayScore,
	}
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	e, err := NewEngine(cfg, logger)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC) }
	e.newID = func() uuid.UUID { return fixedBatchID }
	return e
}

func sampleBatch() []models.Outcome {
	return []models.Outcome{
		outcome("g1", "KC", "BAL", 3, 1, 1, 45, intPtr(24), intPtr(20)),
		outcome("g2", "BUF", "NYJ", -2, -2, -4, 40, intPtr(17), intPtr(17)),
	}
}

func TestValidateRefusesUnfinishedFixture(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	batch := sampleBatch()
	batch = append(batch, outcome("g3", "DAL", "NYG", 1, 1, 1, 41, intPtr(21), nil))

	report, err := e.Validate(batch, "2024-w1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidationPrecondition)
	assert.Contains(t, err.Error(), "not ready")
	assert.Contains(t, err.Error(), "g3")
	assert.Nil(t, report)
}

func TestValidateRefusesEmptyBatch(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	_, err := e.Validate(nil, "empty")
	assert.ErrorIs(t, err, models.ErrValidationPrecondition)
}

func TestValidateRequiresEveryStage(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	batch := sampleBatch()
	batch[1].Record.Stages = batch[1].Record.Stages[:2]

	_, err := e.Validate(batch, "2024-w1")
	assert.ErrorIs(t, err, models.ErrChainMismatch)
}

func TestValidateMetrics(t *testing.T) {
	e := testEngine(t, Config{FlagTolerance: 0})
	report, err := e.Validate(sampleBatch(), "2024-w1")
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, fixedBatchID, s.BatchID)
	assert.Equal(t, "2024-w1", s.Label)
	assert.Equal(t, 2, s.Fixtures)
	assert.Equal(t, time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC), s.ValidatedAt)

	// A drawn result never counts as a correct winner call.
	assert.InDelta(t, 0.5, s.WinnerAccuracy, 1e-9)
	assert.InDelta(t, 3.5, s.TotalMAE, 1e-9)

	assert.InDelta(t, 1.5, s.StageMAE[models.StageBase], 1e-9)
	assert.InDelta(t, 2.5, s.StageMAE[models.StageAfterAvailability], 1e-9)
	assert.InDelta(t, 3.5, s.StageMAE[models.StageAfterEnvironment], 1e-9)
	assert.InDelta(t, 3.5, s.StageMAE[models.StageFinal], 1e-9)
	assert.InDelta(t, -1.5, s.StageBias[models.StageBase], 1e-9)
	assert.InDelta(t, -3.5, s.Bias, 1e-9)

	require.Len(t, report.Records, 2)
	rec := report.Records[0]
	assert.Equal(t, fixedBatchID, rec.BatchID)
	assert.Equal(t, 4.0, rec.RealizedSpread)
	assert.Equal(t, 44.0, rec.RealizedTotal)
	assert.InDelta(t, -1.0, rec.StageErrors[models.StageBase], 1e-9)
	assert.InDelta(t, -3.0, rec.StageErrors[models.StageFinal], 1e-9)
	assert.True(t, rec.WinnerCorrect)
	assert.False(t, report.Records[1].WinnerCorrect)
}

func TestValidateFlagsButDoesNotRejectWorseStages(t *testing.T) {
	e := testEngine(t, Config{FlagTolerance: 0})
	report, err := e.Validate(sampleBatch(), "2024-w1")
	require.NoError(t, err)

	flags := report.Summary.Flags
	require.Len(t, flags, 2)
	assert.Equal(t, models.StageAfterAvailability, flags[0].Stage)
	assert.Equal(t, models.StageBase, flags[0].Previous)
	assert.InDelta(t, 2.5, flags[0].MAE, 1e-9)
	assert.InDelta(t, 1.5, flags[0].PreviousMAE, 1e-9)
	assert.Equal(t, models.StageAfterEnvironment, flags[1].Stage)
}

func TestValidateFlagTolerance(t *testing.T) {
	e := testEngine(t, Config{FlagTolerance: 1.0})
	report, err := e.Validate(sampleBatch(), "2024-w1")
	require.NoError(t, err)
	assert.Empty(t, report.Summary.Flags)
}

func TestBootstrapIsDeterministic(t *testing.T) {
	cfg := Config{BootstrapIterations: 200, ConfidenceLevel: 0.9, Seed: 7}
	e := testEngine(t, cfg)

	first, err := e.Validate(sampleBatch(), "a")
	require.NoError(t, err)
	second, err := e.Validate(sampleBatch(), "b")
	require.NoError(t, err)

	require.NotNil(t, first.Uncertainty)
	assert.Equal(t, first.Uncertainty, second.Uncertainty)
	u := first.Uncertainty
	assert.LessOrEqual(t, u.WinnerAccuracy.Low, u.WinnerAccuracy.High)
	assert.GreaterOrEqual(t, u.FinalMAE.Low, 3.0)
	assert.LessOrEqual(t, u.FinalMAE.High, 4.0)
}

func TestBootstrapNeedsTwoFixtures(t *testing.T) {
	records := []models.ValidationRecord{{StageErrors: map[string]float64{}}}
	assert.Nil(t, Bootstrap(records, DefaultConfig()))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{FlagTolerance: -1}.Validate())
	assert.Error(t, Config{BootstrapIterations: 10, ConfidenceLevel: 1}.Validate())
}

func TestGenerateConsoleReport(t *testing.T) {
	e := testEngine(t, Config{BootstrapIterations: 50, ConfidenceLevel: 0.9, Seed: 1})
	report, err := e.Validate(sampleBatch(), "2024-w1")
	require.NoError(t, err)

	out := GenerateConsoleReport(report)
	assert.Contains(t, out, "Winner Accuracy: 50.00%")
	assert.Contains(t, out, "after_availability worse than base")
	assert.Contains(t, out, "90% intervals")
	for _, stage := range models.StageOrder {
		assert.True(t, strings.Contains(out, stage), stage)
	}
}

func TestWeekWindows(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 9, d, 0, 0, 0, 0, time.UTC) }
	matches := []*models.Match{
		{ID: "a", Season: 2024, Week: 1, Date: day(8), HomeScore: intPtr(1), AwayScore: intPtr(0)},
		{ID: "b", Season: 2024, Week: 1, Date: day(5), HomeScore: intPtr(1), AwayScore: intPtr(0)},
		{ID: "c", Season: 2024, Week: 2, Date: day(15), HomeScore: intPtr(1), AwayScore: intPtr(0)},
		{ID: "d", Season: 2024, Week: 3, Date: day(22)},
		{ID: "e", Season: 2023, Week: 2, Date: day(1), HomeScore: intPtr(1), AwayScore: intPtr(0)},
	}

	windows := WeekWindows(matches, 2024, 1)
	require.Len(t, windows, 2)
	assert.Equal(t, 1, windows[0].Week)
	assert.Equal(t, day(5), windows[0].Cutoff)
	assert.Equal(t, "b", windows[0].Matches[0].ID)

	history := windows[1].History(matches)
	ids := make([]string, 0, len(history))
	for _, m := range history {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "e"}, ids)

	assert.Len(t, WeekWindows(matches, 2024, 2), 1)
}

func TestPool(t *testing.T) {
	e := testEngine(t, Config{})
	batch := sampleBatch()
	result, err := e.Pool([]Batch{
		{Label: "2024/1", Outcomes: batch[:1]},
		{Label: "2024/2", Outcomes: batch[1:]},
	}, "2024")
	require.NoError(t, err)

	require.Len(t, result.Weeks, 2)
	assert.Equal(t, "2024/1", result.Weeks[0].Summary.Label)
	assert.InDelta(t, 1.0, result.Weeks[0].Summary.WinnerAccuracy, 1e-9)
	assert.Equal(t, 2, result.Pooled.Summary.Fixtures)
	assert.InDelta(t, 0.5, result.Pooled.Summary.WinnerAccuracy, 1e-9)

	out := GenerateWalkForwardReport(result)
	assert.Contains(t, out, "2024/2")
}
