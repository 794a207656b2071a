package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridcast/internal/artifact"
	"github.com/yourusername/gridcast/internal/backtest"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/datasource"
	"github.com/yourusername/gridcast/internal/logger"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/repository"
)

// ValidationService scores a stored forecast once its fixtures are finished
type ValidationService struct {
	cfg    *config.Config
	feeds  *datasource.Feeds
	writer *artifact.AtomicWriter
	engine *backtest.Engine
	store  repository.ValidationRepository
	logger *logrus.Logger
	now    func() time.Time
}

// NewValidationService creates a new validation service. store may be nil when
// validation batches are only kept in the log file.
func NewValidationService(cfg *config.Config, feeds *datasource.Feeds, writer *artifact.AtomicWriter, store repository.ValidationRepository, log *logrus.Logger) (*ValidationService, error) {
	if log == nil {
		log = logrus.New()
	}
	if writer == nil {
		writer = artifact.NewAtomicWriter()
	}
	engine, err := backtest.NewEngine(validationConfig(cfg.Validation), log)
	if err != nil {
		return nil, err
	}
	return &ValidationService{
		cfg:    cfg,
		feeds:  feeds,
		writer: writer,
		engine: engine,
		store:  store,
		logger: log,
		now:    time.Now,
	}, nil
}

// Run joins the stored predictions of a week with realized scores and validates them.
// An empty predictionsPath selects the week's default artifact. Any prediction whose
// match is unfinished or unknown refuses the whole batch.
func (s *ValidationService) Run(ctx context.Context, predictionsPath string, season, week int) (report *backtest.Report, err error) {
	started := s.now()
	pl := logger.NewPipelineLogger(s.logger).WithRun(uuid.NewString())
	pl.LogRunStarted(KindValidate, season, week)
	defer func() {
		finishRun(pl.Entry, KindValidate, started, s.now(), s.cfg.Metrics.TextfilePath, err)
	}()

	if predictionsPath == "" {
		predictionsPath = PredictionsPath(s.cfg.Output.Dir, season, week)
	}
	records, err := artifact.ReadPredictions(predictionsPath)
	if err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	records = filterRecords(records, season, week)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s holds no predictions for season %d week %d",
			models.ErrValidationPrecondition, predictionsPath, season, week)
	}
	for i := range records {
		if err := records[i].Verify(); err != nil {
			return nil, fmt.Errorf("prediction %s: %w", records[i].MatchID, err)
		}
	}

	matches, err := s.feeds.Matches.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load match history: %w", err)
	}

	report, err = s.engine.Validate(joinOutcomes(records, matches), BatchLabel(season, week))
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, report); err != nil {
		return nil, err
	}
	pl.LogArtifactWritten("validation_log", s.cfg.Output.ValidationLog, 1)

	sum := report.Summary
	flagged := make([]string, 0, len(sum.Flags))
	for _, f := range sum.Flags {
		flagged = append(flagged, f.Stage)
	}
	pl.LogValidationSummary(sum.BatchID.String(), sum.Fixtures, sum.WinnerAccuracy, sum.StageMAE[models.StageFinal], sum.Bias, flagged)
	pl.LogRunCompleted(KindValidate, sum.Fixtures, s.now().Sub(started))
	return report, nil
}

// Validated reports whether a batch label is already in the validation log.
func (s *ValidationService) Validated(label string) (bool, error) {
	summaries, err := artifact.ReadValidationLog(s.cfg.Output.ValidationLog)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, sum := range summaries {
		if sum.Label == label {
			return true, nil
		}
	}
	return false, nil
}

func (s *ValidationService) persist(ctx context.Context, report *backtest.Report) error {
	if err := s.writer.AppendValidation(s.cfg.Output.ValidationLog, report.Summary); err != nil {
		return fmt.Errorf("append validation log: %w", err)
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveBatch(ctx, &report.Summary, report.Records); err != nil {
		return fmt.Errorf("store validation batch: %w", err)
	}
	return nil
}

func filterRecords(records []models.AdjustmentRecord, season, week int) []models.AdjustmentRecord {
	var out []models.AdjustmentRecord
	for _, r := range records {
		if r.Season == season && r.Week == week {
			out = append(out, r)
		}
	}
	return out
}

// joinOutcomes attaches realized scores to each record. Records whose match is
// missing from history carry no scores and so count as unfinished.
func joinOutcomes(records []models.AdjustmentRecord, matches []*models.Match) []models.Outcome {
	byID := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	outcomes := make([]models.Outcome, 0, len(records))
	for _, r := range records {
		o := models.Outcome{Record: r}
		if m, ok := byID[r.MatchID]; ok {
			o.HomeScore, o.AwayScore = m.HomeScore, m.AwayScore
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// PendingWeek finds the latest week whose fixtures are all finished, whose
// predictions artifact exists, and which has not been validated yet.
func (s *ValidationService) PendingWeek(ctx context.Context) (season, week int, ok bool, err error) {
	matches, err := s.feeds.Matches.Matches(ctx)
	if err != nil {
		return 0, 0, false, fmt.Errorf("load match history: %w", err)
	}

	type key struct{ season, week int }
	finished := make(map[key]bool)
	for _, m := range matches {
		k := key{m.Season, m.Week}
		done, seen := finished[k]
		finished[k] = (done || !seen) && m.IsCompleted()
	}

	keys := make([]key, 0, len(finished))
	for k, done := range finished {
		if done {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].season != keys[j].season {
			return keys[i].season > keys[j].season
		}
		return keys[i].week > keys[j].week
	})

	for _, k := range keys {
		if _, err := os.Stat(PredictionsPath(s.cfg.Output.Dir, k.season, k.week)); err != nil {
			continue
		}
		validated, err := s.Validated(BatchLabel(k.season, k.week))
		if err != nil {
			return 0, 0, false, err
		}
		if !validated {
			return k.season, k.week, true, nil
		}
	}
	return 0, 0, false, nil
}
