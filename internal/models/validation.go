package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome pairs a stored cascade record with the realized result of its fixture.
type Outcome struct {
	Record    AdjustmentRecord `json:"record"`
	HomeScore *int             `json:"home_score"`
	AwayScore *int             `json:"away_score"`
}

// IsFinished reports whether both final scores are known.
func (o *Outcome) IsFinished() bool {
	return o.HomeScore != nil && o.AwayScore != nil
}

// ValidationRecord scores one fixture stage by stage.
type ValidationRecord struct {
	BatchID        uuid.UUID          `db:"batch_id" json:"batch_id"`
	MatchID        string             `db:"match_id" json:"match_id"`
	HomeTeam       string             `db:"home_team" json:"home_team"`
	AwayTeam       string             `db:"away_team" json:"away_team"`
	StageSpreads   map[string]float64 `db:"stage_spreads" json:"stage_spreads"`
	StageErrors    map[string]float64 `db:"stage_errors" json:"stage_errors"`
	RealizedSpread float64            `db:"realized_spread" json:"realized_spread"`
	RealizedTotal  float64            `db:"realized_total" json:"realized_total"`
	PredictedTotal float64            `db:"predicted_total" json:"predicted_total"`
	WinnerCorrect  bool               `db:"winner_correct" json:"winner_correct"`
}

// StageFlag marks a stage that made the batch less accurate than the stage before it.
type StageFlag struct {
	Stage       string  `json:"stage"`
	Previous    string  `json:"previous"`
	MAE         float64 `json:"mae"`
	PreviousMAE float64 `json:"previous_mae"`
}

// ValidationSummary is the batch-level row appended to the validation log.
type ValidationSummary struct {
	BatchID        uuid.UUID          `db:"batch_id" json:"batch_id"`
	Label          string             `db:"label" json:"label"`
	ValidatedAt    time.Time          `db:"validated_at" json:"validated_at"`
	Fixtures       int                `db:"fixtures" json:"fixtures"`
	WinnerAccuracy float64            `db:"winner_accuracy" json:"winner_accuracy"`
	StageMAE       map[string]float64 `db:"stage_mae" json:"stage_mae"`
	StageBias      map[string]float64 `db:"stage_bias" json:"stage_bias"`
	TotalMAE       float64            `db:"total_mae" json:"total_mae"`
	Bias           float64            `db:"bias" json:"bias"`
	Flags          []StageFlag        `db:"flags" json:"flags"`
}
