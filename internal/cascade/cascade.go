// Package cascade refines base predictions through ordered availability and environment stages.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/gridcast/internal/logger"
	"github.com/yourusername/gridcast/internal/metrics"
	"github.com/yourusername/gridcast/internal/models"
)

// ErrInvalidInput indicates a fixture handed to the cascade breaks its contract.
var ErrInvalidInput = errors.New("invalid cascade input")

// Input pairs a fixture with its base prediction.
type Input struct {
	Fixture *models.Match
	Base    *models.BasePrediction
}

// Cascade runs Base → AvailabilityAdjusted → EnvironmentAdjusted(=Final) per fixture.
type Cascade struct {
	mapper       ProbabilityMapper
	availability Stage
	environment  Stage
	workers      int
	audit        *logger.AuditLogger
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithWorkers bounds how many fixtures are processed concurrently.
func WithWorkers(n int) Option {
	return func(c *Cascade) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithAuditLogger records every stage decision.
func WithAuditLogger(audit *logger.AuditLogger) Option {
	return func(c *Cascade) {
		c.audit = audit
	}
}

// New creates a cascade. A nil stage is treated as permanently without data.
func New(mapper ProbabilityMapper, availability, environment Stage, opts ...Option) *Cascade {
	c := &Cascade{
		mapper:       mapper,
		availability: availability,
		environment:  environment,
		workers:      1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every input and returns records in input order. Fixtures share no
// state, so they run concurrently; the stages within one fixture stay sequential.
func (c *Cascade) Run(ctx context.Context, inputs []Input) ([]models.AdjustmentRecord, error) {
	records := make([]models.AdjustmentRecord, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range inputs {
		i := i
		g.Go(func() error {
			record, err := c.Process(gctx, inputs[i])
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Process carries one fixture through every stage.
func (c *Cascade) Process(ctx context.Context, in Input) (models.AdjustmentRecord, error) {
	if in.Fixture == nil || in.Base == nil {
		return models.AdjustmentRecord{}, fmt.Errorf("%w: fixture and base prediction are required", ErrInvalidInput)
	}
	if in.Fixture.ID != in.Base.MatchID {
		return models.AdjustmentRecord{}, fmt.Errorf("%w: base prediction %s does not belong to fixture %s",
			ErrInvalidInput, in.Base.MatchID, in.Fixture.ID)
	}
	if err := ctx.Err(); err != nil {
		return models.AdjustmentRecord{}, err
	}

	fx, base := in.Fixture, in.Base
	record := models.AdjustmentRecord{
		MatchID:      fx.ID,
		Season:       fx.Season,
		Week:         fx.Week,
		Date:         fx.Date,
		HomeTeam:     fx.HomeTeam,
		AwayTeam:     fx.AwayTeam,
		ModelVersion: base.ModelVersion,
		ModelWinProb: base.WinProbability,
		BaseTotal:    base.Total,
	}

	baseSpread := quantize(base.Spread).InexactFloat64()
	prob := c.mapper.WinProbability(baseSpread)
	current := models.StageRecord{
		Name:           models.StageBase,
		Spread:         baseSpread,
		WinProbability: prob,
		Winner:         models.Winner(fx.HomeTeam, fx.AwayTeam, baseSpread, prob),
		Justifications: []string{fmt.Sprintf("model %s base spread %.2f", base.ModelVersion, baseSpread)},
	}
	record.Stages = append(record.Stages, current)

	totalAdjustment := 0.0
	for _, step := range []struct {
		name  string
		stage Stage
	}{
		{models.StageAfterAvailability, c.availability},
		{models.StageAfterEnvironment, c.environment},
	} {
		outcome := Skip(models.SkipReasonNoData, "stage not configured")
		if step.stage != nil {
			outcome = step.stage.Adjust(ctx, fx, current.Spread)
		}
		current = c.advance(fx, current, step.name, outcome)
		if !outcome.Skipped {
			totalAdjustment += outcome.TotalAdjustment
		}
		record.Stages = append(record.Stages, current)
		c.observe(fx.ID, current)
	}

	final := current
	final.Name = models.StageFinal
	final.Adjustment = 0
	final.Skipped = false
	final.SkipReason = ""
	final.Justifications = []string{}
	record.Stages = append(record.Stages, final)

	record.TotalAdjustment = totalAdjustment
	record.PredictedTotal = base.Total + totalAdjustment
	if record.PredictedTotal < 0 {
		record.PredictedTotal = 0
	}

	if err := record.Verify(); err != nil {
		return models.AdjustmentRecord{}, err
	}
	metrics.RecordFixtureProcessed()
	return record, nil
}

// advance applies one stage outcome on top of the previous stage. Probability and
// winner are recomputed only when the spread moves; otherwise they are forwarded.
// Adjustments are quantised and summed in decimal, so every stored spread equals
// the previous spread plus the stored adjustment at SpreadPrecision places.
func (c *Cascade) advance(fx *models.Match, prev models.StageRecord, name string, outcome Outcome) models.StageRecord {
	next := models.StageRecord{
		Name:           name,
		Spread:         prev.Spread,
		WinProbability: prev.WinProbability,
		Winner:         prev.Winner,
		Justifications: outcome.Justifications,
		Skipped:        outcome.Skipped,
		SkipReason:     outcome.SkipReason,
	}
	if next.Justifications == nil {
		next.Justifications = []string{}
	}
	if outcome.Skipped {
		return next
	}

	adjustment := quantize(outcome.Adjustment)
	next.Adjustment = adjustment.InexactFloat64()
	next.Spread = decimal.NewFromFloat(prev.Spread).Add(adjustment).InexactFloat64()
	if next.Spread != prev.Spread {
		next.WinProbability = c.mapper.WinProbability(next.Spread)
		next.Winner = models.Winner(fx.HomeTeam, fx.AwayTeam, next.Spread, next.WinProbability)
	}
	return next
}

func (c *Cascade) observe(matchID string, s models.StageRecord) {
	if s.Skipped {
		metrics.RecordStageSkipped(s.Name, s.SkipReason)
		if c.audit != nil {
			c.audit.LogStageSkipped(matchID, s.Name, s.SkipReason)
		}
		return
	}
	metrics.RecordStageAdjustment(s.Name, s.Adjustment)
	if c.audit != nil {
		c.audit.LogStageApplied(matchID, s.Name, s.Adjustment, s.Spread, s.WinProbability, s.Winner, s.Justifications)
	}
}

func quantize(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(models.SpreadPrecision)
}
