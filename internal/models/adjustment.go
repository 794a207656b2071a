package models

import (
	"fmt"
	"math"
	"time"
)

// Stage names, in cascade order.
const (
	StageBase              = "base"
	StageAfterAvailability = "after_availability"
	StageAfterEnvironment  = "after_environment"
	StageFinal             = "final"
)

// StageOrder is the fixed processing order of cascade stages.
var StageOrder = []string{StageBase, StageAfterAvailability, StageAfterEnvironment, StageFinal}

// Skip reasons recorded when a stage forwards the prior value.
const (
	SkipReasonNoData        = "no data"
	SkipReasonNotApplicable = "not applicable"
)

// ChainTolerance bounds floating point drift when replaying a stage chain.
const ChainTolerance = 1e-9

// SpreadPrecision is the number of decimal places spreads and adjustments are
// quantised to before chaining and when stored.
const SpreadPrecision = 4

// StageRecord is the state of a prediction after one cascade stage.
type StageRecord struct {
	Name           string   `json:"name"`
	Adjustment     float64  `json:"adjustment"`
	Spread         float64  `json:"spread"`
	WinProbability float64  `json:"win_probability"`
	Winner         string   `json:"winner"`
	Justifications []string `json:"justifications"`
	Skipped        bool     `json:"skipped"`
	SkipReason     string   `json:"skip_reason,omitempty"`
}

// AdjustmentRecord carries the full provenance of one fixture's final prediction.
type AdjustmentRecord struct {
	MatchID         string        `json:"match_id"`
	Season          int           `json:"season"`
	Week            int           `json:"week"`
	Date            time.Time     `json:"date"`
	HomeTeam        string        `json:"home_team"`
	AwayTeam        string        `json:"away_team"`
	ModelVersion    string        `json:"model_version"`
	ModelWinProb    float64       `json:"model_win_probability"`
	BaseTotal       float64       `json:"base_total"`
	TotalAdjustment float64       `json:"total_adjustment"`
	PredictedTotal  float64       `json:"predicted_total"`
	Stages          []StageRecord `json:"stages"`
}

// Stage returns the named stage, or false when absent.
func (r *AdjustmentRecord) Stage(name string) (StageRecord, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageRecord{}, false
}

// Final returns the last stage of the chain.
func (r *AdjustmentRecord) Final() StageRecord {
	if len(r.Stages) == 0 {
		return StageRecord{}
	}
	return r.Stages[len(r.Stages)-1]
}

// SpreadAt returns the spread stored for a stage, or NaN when missing.
func (r *AdjustmentRecord) SpreadAt(name string) float64 {
	s, ok := r.Stage(name)
	if !ok {
		return math.NaN()
	}
	return s.Spread
}

// Replay recomputes the spread chain from the base spread and each stored adjustment.
func (r *AdjustmentRecord) Replay() float64 {
	if len(r.Stages) == 0 {
		return 0
	}
	spread := r.Stages[0].Spread
	for _, s := range r.Stages[1:] {
		spread += s.Adjustment
	}
	return spread
}

// Verify checks stage order, the per-stage arithmetic and final == after_environment.
func (r *AdjustmentRecord) Verify() error {
	if len(r.Stages) != len(StageOrder) {
		return fmt.Errorf("%w: expected %d stages, got %d", ErrChainMismatch, len(StageOrder), len(r.Stages))
	}
	for i, name := range StageOrder {
		if r.Stages[i].Name != name {
			return fmt.Errorf("%w: stage %d is %q, expected %q", ErrChainMismatch, i, r.Stages[i].Name, name)
		}
	}
	for i := 1; i < len(r.Stages); i++ {
		want := r.Stages[i-1].Spread + r.Stages[i].Adjustment
		if math.Abs(want-r.Stages[i].Spread) > ChainTolerance {
			return fmt.Errorf("%w: stage %s spread %.6f, replayed %.6f", ErrChainMismatch, r.Stages[i].Name, r.Stages[i].Spread, want)
		}
	}
	env, final := r.Stages[2], r.Stages[3]
	if final.Adjustment != 0 || math.Abs(final.Spread-env.Spread) > ChainTolerance {
		return fmt.Errorf("%w: final stage diverges from %s", ErrChainMismatch, StageAfterEnvironment)
	}
	if math.Abs(r.Replay()-final.Spread) > ChainTolerance {
		return fmt.Errorf("%w: replayed final %.6f, stored %.6f", ErrChainMismatch, r.Replay(), final.Spread)
	}
	return nil
}
