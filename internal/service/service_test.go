package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gridcast/internal/artifact"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/datasource"
	"github.com/yourusername/gridcast/internal/models"
)

var seasonOpen = time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)

type matchFeed struct {
	matches []*models.Match
	err     error
}

func (f *matchFeed) Matches(context.Context) ([]*models.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.Match, len(f.matches))
	for i, m := range f.matches {
		c := *m
		out[i] = &c
	}
	return out, nil
}

type playFeed struct{ err error }

func (p playFeed) Plays(context.Context) ([]models.Play, error) { return nil, p.err }

type validationStore struct {
	summaries []models.ValidationSummary
	records   int
}

func (s *validationStore) SaveBatch(_ context.Context, summary *models.ValidationSummary, records []models.ValidationRecord) error {
	s.summaries = append(s.summaries, *summary)
	s.records += len(records)
	return nil
}

func (s *validationStore) GetSummary(context.Context, uuid.UUID) (*models.ValidationSummary, error) {
	return nil, models.ErrNotFound
}

func (s *validationStore) RecentSummaries(context.Context, int) ([]*models.ValidationSummary, error) {
	return nil, nil
}

func (s *validationStore) GetRecords(context.Context, uuid.UUID) ([]models.ValidationRecord, error) {
	return nil, nil
}

// season builds six weeks between four teams of unequal strength. Weeks after
// finishedThrough are unplayed.
func season(finishedThrough int) []*models.Match {
	strength := map[string]int{"KC": 30, "BUF": 24, "CIN": 20, "NYJ": 14}
	pairings := [][2][2]string{
		{{"KC", "BUF"}, {"CIN", "NYJ"}},
		{{"CIN", "KC"}, {"NYJ", "BUF"}},
		{{"KC", "NYJ"}, {"BUF", "CIN"}},
	}
	var out []*models.Match
	for week := 1; week <= 6; week++ {
		for i, p := range pairings[(week-1)%3] {
			home, away := p[0], p[1]
			m := &models.Match{
				ID:       fmt.Sprintf("2024_%02d_%s_%s", week, away, home),
				Season:   2024,
				Week:     week,
				Date:     seasonOpen.AddDate(0, 0, 7*(week-1)+i),
				HomeTeam: home,
				AwayTeam: away,
				Roof:     models.RoofOpen,
			}
			if week <= finishedThrough {
				m.HomeScore = models.IntPtr(strength[home] + week%3)
				m.AwayScore = models.IntPtr(strength[away])
			}
			out = append(out, m)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Output.Dir = dir
	cfg.Output.CacheDir = filepath.Join(dir, "cache")
	cfg.Output.ValidationLog = filepath.Join(dir, "validation_log.csv")
	cfg.Validation.BootstrapIterations = 50
	cfg.Model.LogisticIterations = 200
	return cfg
}

func TestForecastRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}, Plays: playFeed{err: errors.New("feed down")}}
	svc := NewForecastService(cfg, feeds, nil, quietLogger())

	result, err := svc.Run(context.Background(), 2024, 6)
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, seasonOpen.AddDate(0, 0, 35), result.Cutoff)
	assert.Equal(t, 8, result.TrainingRows)
	// Week 1 has no prior history on either side.
	assert.Len(t, result.Excluded, 2)

	for _, rec := range result.Records {
		require.NoError(t, rec.Verify())
		avail, _ := rec.Stage(models.StageAfterAvailability)
		assert.True(t, avail.Skipped)
		assert.Equal(t, models.SkipReasonNoData, avail.SkipReason)
		env, _ := rec.Stage(models.StageAfterEnvironment)
		assert.True(t, env.Skipped)
		assert.Equal(t, rec.SpreadAt(models.StageBase), rec.Final().Spread)
	}

	stored, err := artifact.ReadPredictions(result.PredictionsPath)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	ratings, err := artifact.ReadRatings(cfg.Output.CacheDir)
	require.NoError(t, err)
	assert.Equal(t, "KC", ratings.Leaderboard()[0])
	_, err = os.Stat(filepath.Join(cfg.Output.CacheDir, artifact.FeaturesFile))
	assert.NoError(t, err)
}

func TestForecastIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	svc := NewForecastService(cfg, feeds, nil, quietLogger())

	first, err := svc.Run(context.Background(), 2024, 6)
	require.NoError(t, err)
	a, err := os.ReadFile(first.PredictionsPath)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), 2024, 6)
	require.NoError(t, err)
	b, err := os.ReadFile(first.PredictionsPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = os.Stat(first.PredictionsPath + artifact.BackupSuffix)
	assert.NoError(t, err)
}

func TestForecastUnknownWeek(t *testing.T) {
	cfg := testConfig(t)
	svc := NewForecastService(cfg, &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}, nil, quietLogger())
	_, err := svc.Run(context.Background(), 2024, 12)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestForecastMatchFeedFailure(t *testing.T) {
	cfg := testConfig(t)
	feed := &matchFeed{err: fmt.Errorf("%w: csv missing", models.ErrDataUnavailable)}
	svc := NewForecastService(cfg, &datasource.Feeds{Matches: feed}, nil, quietLogger())
	_, err := svc.Run(context.Background(), 2024, 6)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestNextWeek(t *testing.T) {
	cfg := testConfig(t)
	svc := NewForecastService(cfg, &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}, nil, quietLogger())
	svc.now = func() time.Time { return seasonOpen.AddDate(0, 0, 33) }

	s, w, ok, err := svc.NextWeek(context.Background(), 7*day)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2024, s)
	assert.Equal(t, 6, w)

	_, _, ok, err = svc.NextWeek(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidationRun(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	_, err := NewForecastService(cfg, feeds, nil, quietLogger()).Run(context.Background(), 2024, 5)
	require.NoError(t, err)

	store := &validationStore{}
	svc, err := NewValidationService(cfg, feeds, nil, store, quietLogger())
	require.NoError(t, err)

	done, err := svc.Validated(BatchLabel(2024, 5))
	require.NoError(t, err)
	assert.False(t, done)

	report, err := svc.Run(context.Background(), "", 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Fixtures)
	assert.Equal(t, "2024-week05", report.Summary.Label)
	assert.Len(t, report.Summary.StageMAE, len(models.StageOrder))

	logged, err := artifact.ReadValidationLog(cfg.Output.ValidationLog)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, report.Summary.BatchID, logged[0].BatchID)

	require.Len(t, store.summaries, 1)
	assert.Equal(t, 2, store.records)

	done, err = svc.Validated(BatchLabel(2024, 5))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestValidationRefusesUnfinishedWeek(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	_, err := NewForecastService(cfg, feeds, nil, quietLogger()).Run(context.Background(), 2024, 6)
	require.NoError(t, err)

	svc, err := NewValidationService(cfg, feeds, nil, nil, quietLogger())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), "", 2024, 6)
	assert.ErrorIs(t, err, models.ErrValidationPrecondition)

	_, err = os.Stat(cfg.Output.ValidationLog)
	assert.True(t, os.IsNotExist(err))
}

func TestValidationRejectsBrokenChain(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	_, err := NewForecastService(cfg, feeds, nil, quietLogger()).Run(context.Background(), 2024, 5)
	require.NoError(t, err)

	path := PredictionsPath(cfg.Output.Dir, 2024, 5)
	records, err := artifact.ReadPredictions(path)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	records[0].Stages[len(records[0].Stages)-1].Spread += 1
	require.NoError(t, artifact.NewAtomicWriter().WritePredictions(path, records))

	svc, err := NewValidationService(cfg, feeds, nil, nil, quietLogger())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), "", 2024, 5)
	assert.ErrorIs(t, err, models.ErrChainMismatch)

	_, err = os.Stat(cfg.Output.ValidationLog)
	assert.True(t, os.IsNotExist(err))
}

func TestValidationMissingPredictions(t *testing.T) {
	cfg := testConfig(t)
	svc, err := NewValidationService(cfg, &datasource.Feeds{Matches: &matchFeed{}}, nil, nil, quietLogger())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), "", 2024, 3)
	assert.Error(t, err)
}

func TestBacktestRun(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	svc, err := NewBacktestService(NewForecastService(cfg, feeds, nil, quietLogger()))
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), 2024, 2)
	require.NoError(t, err)

	// Week 2 has no labelled rows to train on, so weeks 3 to 5 are replayed.
	require.Len(t, result.Weeks, 3)
	assert.Equal(t, "2024-week03", result.Weeks[0].Summary.Label)
	assert.Equal(t, 6, result.Pooled.Summary.Fixtures)

	_, err = os.Stat(PredictionsPath(cfg.Output.Dir, 2024, 3))
	assert.True(t, os.IsNotExist(err))
}

func TestBacktestNoCompletedWeeks(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	svc, err := NewBacktestService(NewForecastService(cfg, feeds, nil, quietLogger()))
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), 2024, 6)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPendingWeek(t *testing.T) {
	cfg := testConfig(t)
	feeds := &datasource.Feeds{Matches: &matchFeed{matches: season(5)}}
	forecast := NewForecastService(cfg, feeds, nil, quietLogger())
	for _, week := range []int{4, 5, 6} {
		_, err := forecast.Run(context.Background(), 2024, week)
		require.NoError(t, err)
	}

	svc, err := NewValidationService(cfg, feeds, nil, nil, quietLogger())
	require.NoError(t, err)

	for _, want := range []int{5, 4} {
		s, w, ok, err := svc.PendingWeek(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 2024, s)
		assert.Equal(t, want, w)

		_, err = svc.Run(context.Background(), "", s, w)
		require.NoError(t, err)
	}

	_, _, ok, err := svc.PendingWeek(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
