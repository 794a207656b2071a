package cascade

import (
	"context"

	"github.com/yourusername/gridcast/internal/models"
)

// Outcome is what a stage decided for one fixture.
type Outcome struct {
	Adjustment      float64
	TotalAdjustment float64
	Justifications  []string
	Skipped         bool
	SkipReason      string
}

// Skip returns an outcome that forwards the prior value with a reason.
func Skip(reason string, justifications ...string) Outcome {
	return Outcome{Skipped: true, SkipReason: reason, Justifications: justifications}
}

// Stage computes one signed spread correction. Implementations must not fail:
// missing upstream data is reported as a skipped outcome.
type Stage interface {
	Adjust(ctx context.Context, fixture *models.Match, spread float64) Outcome
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, fixture *models.Match, spread float64) Outcome

// Adjust calls f.
func (f StageFunc) Adjust(ctx context.Context, fixture *models.Match, spread float64) Outcome {
	return f(ctx, fixture, spread)
}
