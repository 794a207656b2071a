package backtest

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/gridcast/internal/models"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Uncertainty holds bootstrap confidence intervals for the headline metrics.
type Uncertainty struct {
	Iterations     int      `json:"iterations"`
	Level          float64  `json:"level"`
	WinnerAccuracy Interval `json:"winner_accuracy"`
	FinalMAE       Interval `json:"final_mae"`
	Bias           Interval `json:"bias"`
}

// Bootstrap resamples the fixture records with replacement and returns percentile
// intervals. A batch of fewer than two fixtures has no meaningful spread and returns nil.
func Bootstrap(records []models.ValidationRecord, cfg Config) *Uncertainty {
	if cfg.BootstrapIterations <= 0 || len(records) < 2 {
		return nil
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	accuracy := make([]float64, cfg.BootstrapIterations)
	mae := make([]float64, cfg.BootstrapIterations)
	bias := make([]float64, cfg.BootstrapIterations)
	sample := make([]models.ValidationRecord, len(records))
	for i := 0; i < cfg.BootstrapIterations; i++ {
		for j := range sample {
			sample[j] = records[rng.Intn(len(records))]
		}
		m := aggregate(sample)
		accuracy[i] = m.winnerAccuracy
		mae[i] = m.stageMAE[models.StageFinal]
		bias[i] = m.stageBias[models.StageFinal]
	}

	tail := (1 - cfg.ConfidenceLevel) / 2
	interval := func(values []float64) Interval {
		sort.Float64s(values)
		return Interval{
			Low:  stat.Quantile(tail, stat.Empirical, values, nil),
			High: stat.Quantile(1-tail, stat.Empirical, values, nil),
		}
	}
	return &Uncertainty{
		Iterations:     cfg.BootstrapIterations,
		Level:          cfg.ConfidenceLevel,
		WinnerAccuracy: interval(accuracy),
		FinalMAE:       interval(mae),
		Bias:           interval(bias),
	}
}
