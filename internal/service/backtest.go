package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridcast/internal/backtest"
	"github.com/yourusername/gridcast/internal/logger"
	"github.com/yourusername/gridcast/internal/ml"
	"github.com/yourusername/gridcast/internal/models"
)

// BacktestService replays a completed season week by week, forecasting each week from
// the history before it and scoring the forecasts against the realized results.
type BacktestService struct {
	forecast *ForecastService
	engine   *backtest.Engine
	logger   *logrus.Logger
}

// NewBacktestService creates a new backtest service
func NewBacktestService(forecast *ForecastService) (*BacktestService, error) {
	engine, err := backtest.NewEngine(validationConfig(forecast.cfg.Validation), forecast.logger)
	if err != nil {
		return nil, err
	}
	return &BacktestService{forecast: forecast, engine: engine, logger: forecast.logger}, nil
}

// Run replays every completed week of season from fromWeek onwards. Weeks too early
// to train a model on are skipped. Nothing is written to the artifact directory.
func (s *BacktestService) Run(ctx context.Context, season, fromWeek int) (result *backtest.WalkForwardResult, err error) {
	f := s.forecast
	started := f.now()
	pl := logger.NewPipelineLogger(s.logger).WithRun(uuid.NewString())
	pl.LogRunStarted(KindBacktest, season, fromWeek)
	defer func() {
		finishRun(pl.Entry, KindBacktest, started, f.now(), f.cfg.Metrics.TextfilePath, err)
	}()

	all, err := f.loadMatches(ctx)
	if err != nil {
		return nil, err
	}
	completed, _ := models.SplitCompleted(all)
	plays := f.fetchPlays(ctx, pl)

	windows := backtest.WeekWindows(all, season, fromWeek)
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no completed weeks in season %d from week %d", models.ErrNotFound, season, fromWeek)
	}

	batches := make([]backtest.Batch, 0, len(windows))
	fixtures := 0
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := f.forecast(ctx, pl, w.History(completed), playsBefore(plays, w.Cutoff), w.Matches)
		if errors.Is(err, ml.ErrEmptyTrainingSet) {
			pl.WithField("week", w.Week).Warn("Skipping week without enough history to train")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("week %d: %w", w.Week, err)
		}
		if len(out.records) == 0 {
			continue
		}
		batches = append(batches, backtest.Batch{
			Label:    BatchLabel(season, w.Week),
			Outcomes: joinOutcomes(out.records, w.Matches),
		})
		fixtures += len(out.records)
	}

	result, err = s.engine.Pool(batches, fmt.Sprintf("%d-backtest", season))
	if err != nil {
		return nil, err
	}
	pl.LogRunCompleted(KindBacktest, fixtures, f.now().Sub(started))
	return result, nil
}
