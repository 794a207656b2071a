package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/models"
)

func sampleRecord() models.AdjustmentRecord {
	return models.AdjustmentRecord{
		MatchID:         "2024_10_DEN_KC",
		Season:          2024,
		Week:            10,
		Date:            time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
		HomeTeam:        "KC",
		AwayTeam:        "DEN",
		ModelVersion:    "ridge-logit-v1",
		ModelWinProb:    0.71234,
		BaseTotal:       44.5,
		TotalAdjustment: -1.5,
		PredictedTotal:  43,
		Stages: []models.StageRecord{
			{Name: models.StageBase, Spread: 7.25, WinProbability: 0.7045, Winner: "KC", Justifications: []string{"model base"}},
			{Name: models.StageAfterAvailability, Adjustment: -4.5, Spread: 2.75, WinProbability: 0.5808, Winner: "KC",
				Justifications: []string{"KC QB Patrick Mahomes OUT: 4.50", "net DEN 0.00 - KC 4.50"}},
			{Name: models.StageAfterEnvironment, Adjustment: -1, Spread: 1.75, WinProbability: 0.5517, Winner: "KC",
				Justifications: []string{"wind 18.0 mph"}},
			{Name: models.StageFinal, Spread: 1.75, WinProbability: 0.5517, Winner: "KC"},
		},
	}
}

func TestAtomicWriterReplacesAndBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "predictions.csv")
	w := NewAtomicWriter()

	require.NoError(t, w.Write(path, []byte("first")))
	_, err := os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(err), "no backup for a fresh file")

	require.NoError(t, w.Write(path, []byte("second")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "first", string(backup))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files are never left behind")
}

func TestAtomicWriterRestoresOnFailedRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	w := &AtomicWriter{rename: func(oldpath, newpath string) error {
		if strings.Contains(filepath.Base(oldpath), ".tmp-") {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}}

	err := w.Write(path, []byte("replacement"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got), "the prior file is restored")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2.7500", FormatNumber(2.75))
	assert.Equal(t, "-4.5000", FormatNumber(-4.5))
	assert.Equal(t, "0.0000", FormatNumber(-0.0))
	assert.Equal(t, "0.0000", FormatNumber(-0.00001))
	assert.Equal(t, "0.3333", FormatNumber(1.0/3))
	assert.Equal(t, "", FormatNumber(nanValue()))
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestEncodePredictionsIsIdempotent(t *testing.T) {
	records := []models.AdjustmentRecord{sampleRecord()}
	first, err := EncodePredictions(records)
	require.NoError(t, err)
	second, err := EncodePredictions(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	path := filepath.Join(t.TempDir(), "predictions.csv")
	w := NewAtomicWriter()
	require.NoError(t, w.WritePredictions(path, records))
	require.NoError(t, w.WritePredictions(path, records))
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, onDisk, backup, "re-running an identical batch changes nothing")

	lines := strings.Split(strings.TrimSpace(string(first)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2024_10_DEN_KC,2024,10,2024-11-10,KC,DEN,ridge-logit-v1,KC,1.7500,0.5517,0.7123,"))
}

func TestEncodePredictionsRequiresEveryStage(t *testing.T) {
	r := sampleRecord()
	r.Stages = r.Stages[:2]
	_, err := EncodePredictions([]models.AdjustmentRecord{r})
	assert.ErrorIs(t, err, models.ErrChainMismatch)
}

func TestReadPredictionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	want := sampleRecord()
	require.NoError(t, NewAtomicWriter().WritePredictions(path, []models.AdjustmentRecord{want}))

	got, err := ReadPredictions(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, want.MatchID, r.MatchID)
	assert.Equal(t, want.Date, r.Date)
	assert.InDelta(t, want.PredictedTotal, r.PredictedTotal, 1e-9)
	require.Len(t, r.Stages, len(models.StageOrder))
	for i, s := range r.Stages {
		assert.Equal(t, models.StageOrder[i], s.Name)
		assert.InDelta(t, want.Stages[i].Spread, s.Spread, 1e-4)
		assert.InDelta(t, want.Stages[i].Adjustment, s.Adjustment, 1e-4)
		assert.Equal(t, want.Stages[i].Justifications, s.Justifications)
	}
	require.NoError(t, r.Verify())
}

func TestReadPredictionsRejectsForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
	_, err := ReadPredictions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func sampleSummary(label string) models.ValidationSummary {
	return models.ValidationSummary{
		BatchID:        uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f"),
		Label:          label,
		ValidatedAt:    time.Date(2024, 11, 12, 12, 0, 0, 0, time.UTC),
		Fixtures:       14,
		WinnerAccuracy: 0.642857,
		StageMAE: map[string]float64{
			models.StageBase: 10.5, models.StageAfterAvailability: 10.1,
			models.StageAfterEnvironment: 10.3, models.StageFinal: 10.3,
		},
		StageBias: map[string]float64{models.StageFinal: -0.75},
		TotalMAE:  9.25,
		Bias:      -0.75,
		Flags:     []models.StageFlag{{Stage: models.StageAfterEnvironment, Previous: models.StageAfterAvailability}},
	}
}

func TestAppendValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation_log.csv")
	w := NewAtomicWriter()

	require.NoError(t, w.AppendValidation(path, sampleSummary("2024-w10")))
	require.NoError(t, w.AppendValidation(path, sampleSummary("2024-w11")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(ValidationLogHeader(), ","), lines[0])

	summaries, err := ReadValidationLog(path)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "2024-w11", summaries[1].Label)
	assert.Equal(t, 14, summaries[0].Fixtures)
	assert.InDelta(t, 0.6429, summaries[0].WinnerAccuracy, 1e-9)
	assert.InDelta(t, 10.1, summaries[0].StageMAE[models.StageAfterAvailability], 1e-9)
	assert.InDelta(t, 0, summaries[0].StageBias[models.StageBase], 1e-9)
	require.Len(t, summaries[0].Flags, 1)
	assert.Equal(t, models.StageAfterEnvironment, summaries[0].Flags[0].Stage)
}

func TestAppendValidationRejectsForeignLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation_log.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,score\n2024-01-01,3\n"), 0o644))
	assert.Error(t, NewAtomicWriter().AppendValidation(path, sampleSummary("x")))
}

func TestRatingsSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := RatingsSnapshot{
		GeneratedAt: time.Date(2024, 11, 12, 0, 0, 0, 0, time.UTC),
		Current:     map[string]float64{"KC": 1620, "BUF": 1590, "DEN": 1590},
		History: []models.RatingSnapshot{
			{Team: "KC", MatchID: "m1", Date: time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC), Before: 1500, After: 1510},
		},
	}
	require.NoError(t, NewAtomicWriter().WriteRatings(dir, snap))

	loaded, err := ReadRatings(dir)
	require.NoError(t, err)
	assert.Equal(t, snap.Current, loaded.Current)
	assert.Equal(t, snap.History, loaded.History)
	assert.Equal(t, []string{"KC", "BUF", "DEN"}, loaded.Leaderboard())
}
