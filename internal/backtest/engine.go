package backtest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/models"
)

// Report is the outcome of validating one batch.
type Report struct {
	Summary     models.ValidationSummary  `json:"summary"`
	Records     []models.ValidationRecord `json:"records"`
	Uncertainty *Uncertainty              `json:"uncertainty,omitempty"`
}

// Engine scores closed batches of stored predictions against realized results.
type Engine struct {
	config Config
	logger *logrus.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// NewEngine creates a new validation engine
func NewEngine(cfg Config, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validation config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		config: cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Validate scores a batch. Every fixture must be finished and carry the full
// stage chain; otherwise nothing is computed and the batch is refused.
// A stage that worsens accuracy is flagged on the summary, never rejected.
func (e *Engine) Validate(batch []models.Outcome, label string) (*Report, error) {
	if err := checkReady(batch); err != nil {
		return nil, err
	}

	batchID := e.newID()
	records := make([]models.ValidationRecord, 0, len(batch))
	for i := range batch {
		rec := scoreFixture(&batch[i])
		rec.BatchID = batchID
		records = append(records, rec)
	}

	agg := aggregate(records)
	flags := stageFlags(agg.stageMAE, e.config.FlagTolerance)
	summary := models.ValidationSummary{
		BatchID:        batchID,
		Label:          label,
		ValidatedAt:    e.now().UTC(),
		Fixtures:       len(records),
		WinnerAccuracy: agg.winnerAccuracy,
		StageMAE:       agg.stageMAE,
		StageBias:      agg.stageBias,
		TotalMAE:       agg.totalMAE,
		Bias:           agg.stageBias[models.StageFinal],
		Flags:          flags,
	}

	flagged := make([]string, 0, len(flags))
	for _, f := range flags {
		flagged = append(flagged, f.Stage)
		e.logger.WithFields(logrus.Fields{
			"batch_id":     batchID,
			"stage":        f.Stage,
			"mae":          f.MAE,
			"previous":     f.Previous,
			"previous_mae": f.PreviousMAE,
		}).Warn("Stage increased spread error")
	}
	metrics.RecordValidation(summary.StageMAE, summary.WinnerAccuracy, summary.Bias, flagged)

	e.logger.WithFields(logrus.Fields{
		"batch_id":        batchID,
		"label":           label,
		"fixtures":        summary.Fixtures,
		"winner_accuracy": summary.WinnerAccuracy,
		"final_mae":       summary.StageMAE[models.StageFinal],
		"bias":            summary.Bias,
	}).Info("Batch validated")

	return &Report{
		Summary:     summary,
		Records:     records,
		Uncertainty: Bootstrap(records, e.config),
	}, nil
}

// checkReady enforces the batch preconditions before any metric is computed.
func checkReady(batch []models.Outcome) error {
	if len(batch) == 0 {
		return fmt.Errorf("%w: batch is empty", models.ErrValidationPrecondition)
	}
	var pending []string
	for i := range batch {
		if !batch[i].IsFinished() {
			pending = append(pending, batch[i].Record.MatchID)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d unfinished fixture(s): %v", models.ErrValidationPrecondition, len(pending), pending)
	}
	for i := range batch {
		rec := &batch[i].Record
		for _, stage := range models.StageOrder {
			if _, ok := rec.Stage(stage); !ok {
				return fmt.Errorf("%w: fixture %s has no %s stage", models.ErrChainMismatch, rec.MatchID, stage)
			}
		}
	}
	return nil
}
