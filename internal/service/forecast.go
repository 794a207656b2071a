package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridcast/internal/artifact"
	"github.com/yourusername/gridcast/internal/availability"
	"github.com/yourusername/gridcast/internal/cascade"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/datasource"
	"github.com/yourusername/gridcast/internal/environment"
	"github.com/yourusername/gridcast/internal/features"
	"github.com/yourusername/gridcast/internal/logger"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/ml"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/rating"
	"github.com/yourusername/gridcast/internal/rolling"
)

// ForecastResult describes one completed forecast run
type ForecastResult struct {
	RunID           uuid.UUID
	Season          int
	Week            int
	Cutoff          time.Time
	Records         []models.AdjustmentRecord
	Excluded        []string
	TrainingRows    int
	PredictionsPath string
}

// forecastOutput is everything one pass of the pipeline derives from its inputs.
type forecastOutput struct {
	state     *rating.State
	training  []models.FeatureRow
	inference []models.FeatureRow
	records   []models.AdjustmentRecord
	excluded  []string
}

// ForecastService runs the forecasting pipeline for one target week
type ForecastService struct {
	cfg    *config.Config
	feeds  *datasource.Feeds
	writer *artifact.AtomicWriter
	logger *logrus.Logger
	audit  *logger.AuditLogger
	now    func() time.Time
}

// NewForecastService creates a new forecast service
func NewForecastService(cfg *config.Config, feeds *datasource.Feeds, writer *artifact.AtomicWriter, log *logrus.Logger) *ForecastService {
	if log == nil {
		log = logrus.New()
	}
	if writer == nil {
		writer = artifact.NewAtomicWriter()
	}
	return &ForecastService{
		cfg:    cfg,
		feeds:  feeds,
		writer: writer,
		logger: log,
		audit:  logger.NewAuditLogger(log),
		now:    time.Now,
	}
}

// Run forecasts every match of a season week using only history dated before the week
// opens, then writes the predictions artifact and the rating and feature caches.
func (s *ForecastService) Run(ctx context.Context, season, week int) (result *ForecastResult, err error) {
	started := s.now()
	runID := uuid.New()
	pl := logger.NewPipelineLogger(s.logger).WithRun(runID.String())
	pl.LogRunStarted(KindPredict, season, week)
	defer func() {
		finishRun(pl.Entry, KindPredict, started, s.now(), s.cfg.Metrics.TextfilePath, err)
	}()

	all, err := s.loadMatches(ctx)
	if err != nil {
		return nil, err
	}

	targets := selectWeek(all, season, week)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no matches scheduled for season %d week %d", models.ErrNotFound, season, week)
	}
	cutoff := targets[0].Date
	completed, _ := models.SplitCompleted(before(all, cutoff))
	pl.LogHistoryLoaded(len(completed), len(targets), countTeams(completed))

	plays := playsBefore(s.fetchPlays(ctx, pl), cutoff)
	out, err := s.forecast(ctx, pl, completed, plays, targets)
	if err != nil {
		return nil, err
	}

	path := PredictionsPath(s.cfg.Output.Dir, season, week)
	if err := s.writer.WritePredictions(path, out.records); err != nil {
		return nil, fmt.Errorf("write predictions: %w", err)
	}
	pl.LogArtifactWritten("predictions", path, len(out.records))

	if err := s.writeSnapshots(out, cutoff); err != nil {
		return nil, err
	}
	pl.LogArtifactWritten("snapshots", s.cfg.Output.CacheDir, len(out.training)+len(out.inference))

	pl.LogRunCompleted(KindPredict, len(out.records), s.now().Sub(started))
	return &ForecastResult{
		RunID:           runID,
		Season:          season,
		Week:            week,
		Cutoff:          cutoff,
		Records:         out.records,
		Excluded:        out.excluded,
		TrainingRows:    len(out.training),
		PredictionsPath: path,
	}, nil
}

// NextWeek finds the week of the earliest unfinished fixture within the horizon.
func (s *ForecastService) NextWeek(ctx context.Context, horizon time.Duration) (season, week int, ok bool, err error) {
	all, err := s.loadMatches(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	now := s.now().UTC()
	from := now.Truncate(day)
	for _, m := range all {
		if m.IsCompleted() || m.Date.Before(from) {
			continue
		}
		if horizon > 0 && m.Date.After(now.Add(horizon)) {
			break
		}
		return m.Season, m.Week, true, nil
	}
	return 0, 0, false, nil
}

// forecast rates and aggregates the completed history, trains the model, and runs the
// targets through the cascade. completed must hold only matches dated before every target.
func (s *ForecastService) forecast(ctx context.Context, pl *logger.PipelineLogger, completed []*models.Match, plays []models.Play, targets []*models.Match) (*forecastOutput, error) {
	var efficiency *rolling.EfficiencyIndex
	if len(plays) > 0 {
		efficiency = rolling.NewEfficiencyIndex(plays)
	}

	engine := rating.NewEngine(ratingConfig(s.cfg.Rating))
	state := engine.NewState()
	if _, err := engine.Process(state, completed); err != nil {
		return nil, fmt.Errorf("rate history: %w", err)
	}

	table, err := rolling.NewAggregator(rollingConfig(s.cfg.Rolling), efficiency).Build(completed)
	if err != nil {
		return nil, fmt.Errorf("aggregate history: %w", err)
	}

	out := &forecastOutput{state: state}
	assembler := features.NewAssembler(s.cfg.Teams)
	training, excluded, err := assembler.BuildTraining(completed, state, table)
	if err != nil {
		return nil, fmt.Errorf("build training rows: %w", err)
	}
	out.training = training
	out.exclude(pl, "training", excluded)

	inference, excluded, err := assembler.BuildInference(targets, state, table)
	if err != nil {
		return nil, fmt.Errorf("build inference rows: %w", err)
	}
	out.inference = inference
	out.exclude(pl, "inference", excluded)

	trainStart := time.Now()
	forecaster := ml.NewForecaster(forecasterConfig(s.cfg.Model))
	if err := forecaster.Train(training); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	metrics.UpdateTrainingRows(len(training))
	pl.LogModelTrained(forecaster.Version(), len(training), time.Since(trainStart))

	bases, err := forecaster.Predict(inference)
	if err != nil {
		return nil, fmt.Errorf("predict fixtures: %w", err)
	}

	byID := make(map[string]*models.Match, len(targets))
	for _, m := range targets {
		byID[m.ID] = m
	}
	inputs := make([]cascade.Input, 0, len(bases))
	for i := range bases {
		inputs = append(inputs, cascade.Input{Fixture: byID[bases[i].MatchID], Base: &bases[i]})
	}

	records, err := s.newCascade(plays, efficiency).Run(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("run cascade: %w", err)
	}
	out.records = records
	return out, nil
}

func (s *ForecastService) newCascade(plays []models.Play, efficiency *rolling.EfficiencyIndex) *cascade.Cascade {
	resolver := availability.NewResolver(
		availabilityConfig(s.cfg.Availability),
		s.feeds.Availability,
		s.feeds.DepthCharts,
		availability.NewUsageIndex(plays),
		efficiency,
		s.audit,
	)
	env := environment.NewStage(s.feeds.Weather, environment.DefaultThresholds(), s.cfg.Environment.EnclosedVenues)
	return cascade.New(
		probabilityMapper(s.cfg.Cascade),
		resolver,
		env,
		cascade.WithWorkers(s.cfg.Cascade.Workers),
		cascade.WithAuditLogger(s.audit),
	)
}

func (s *ForecastService) loadMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.feeds.Matches.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load match history: %w", err)
	}
	models.SortChronologically(matches)
	return matches, nil
}

// fetchPlays loads the play feed. A missing or failing feed leaves efficiency undefined
// rather than failing the run.
func (s *ForecastService) fetchPlays(ctx context.Context, pl *logger.PipelineLogger) []models.Play {
	if s.feeds.Plays == nil {
		return nil
	}
	plays, err := s.feeds.Plays.Plays(ctx)
	if err != nil {
		pl.LogFeedDegraded(datasource.FeedPlays, err)
		return nil
	}
	return plays
}

func (s *ForecastService) writeSnapshots(out *forecastOutput, cutoff time.Time) error {
	generated := s.now().UTC()
	current := make(map[string]float64)
	for _, team := range out.state.Teams() {
		current[team] = out.state.Rating(team)
	}
	if err := s.writer.WriteRatings(s.cfg.Output.CacheDir, artifact.RatingsSnapshot{
		GeneratedAt: generated,
		AsOf:        cutoff,
		Current:     current,
		History:     out.state.Snapshots(),
	}); err != nil {
		return fmt.Errorf("write ratings snapshot: %w", err)
	}
	if err := s.writer.WriteFeatures(s.cfg.Output.CacheDir, artifact.FeaturesSnapshot{
		GeneratedAt: generated,
		Names:       models.FeatureNames,
		Training:    out.training,
		Inference:   out.inference,
	}); err != nil {
		return fmt.Errorf("write features snapshot: %w", err)
	}
	return nil
}

func (o *forecastOutput) exclude(pl *logger.PipelineLogger, phase string, excluded []features.Exclusion) {
	if len(excluded) == 0 {
		return
	}
	ids := make([]string, 0, len(excluded))
	for _, e := range excluded {
		ids = append(ids, e.MatchID)
	}
	o.excluded = append(o.excluded, ids...)
	metrics.RecordRowsExcluded(phase, len(ids))
	pl.LogRowsExcluded(phase, ids)
}

// selectWeek returns the matches of one season week in chronological order.
func selectWeek(matches []*models.Match, season, week int) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Season == season && m.Week == week {
			out = append(out, m)
		}
	}
	return out
}

// before returns the matches dated strictly before cutoff.
func before(matches []*models.Match, cutoff time.Time) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Date.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

func playsBefore(plays []models.Play, cutoff time.Time) []models.Play {
	var out []models.Play
	for _, p := range plays {
		if p.Date.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

func countTeams(matches []*models.Match) int {
	seen := make(map[string]bool)
	for _, m := range matches {
		seen[m.HomeTeam] = true
		seen[m.AwayTeam] = true
	}
	return len(seen)
}
