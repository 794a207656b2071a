// Package environment scores weather at open venues as a spread and total correction.
package environment

import (
	"fmt"
	"math"

	"github.com/yourusername/gridcast/internal/models"
)

// Step is one threshold tier. A factor contributes the penalty of the highest tier it passes.
type Step struct {
	Threshold float64
	Spread    float64
	Total     float64
}

// Thresholds holds the step tables, each ordered by increasing severity.
type Thresholds struct {
	Wind   []Step // mph, strictly above
	Cold   []Step // °F, strictly below
	Heat   []Step // °F, strictly above
	Precip []Step // inches, strictly above
}

// DefaultThresholds returns the standard wind, temperature and precipitation tiers.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Wind:   []Step{{Threshold: 15, Spread: 1.0, Total: 2.0}, {Threshold: 20, Spread: 2.0, Total: 4.0}},
		Cold:   []Step{{Threshold: 32, Spread: 1.0, Total: 1.5}, {Threshold: 20, Spread: 1.5, Total: 2.5}},
		Heat:   []Step{{Threshold: 90, Spread: 0.5}},
		Precip: []Step{{Threshold: 0.1, Spread: 0.5, Total: 1.5}, {Threshold: 0.5, Spread: 1.5, Total: 3.0}},
	}
}

// Penalty is the combined weather effect at an open venue.
type Penalty struct {
	Spread  float64
	Total   float64
	Factors []string
}

// Score adds the independent step penalties of every factor.
func (t Thresholds) Score(obs models.WeatherObservation) Penalty {
	var p Penalty
	add := func(step *Step, label string) {
		if step == nil {
			return
		}
		p.Spread += step.Spread
		p.Total += step.Total
		p.Factors = append(p.Factors, fmt.Sprintf("%s (-%.1f spread, -%.1f total)", label, step.Spread, step.Total))
	}

	add(highest(t.Wind, func(s Step) bool { return obs.MaxWindMPH > s.Threshold }),
		fmt.Sprintf("wind %.0f mph", obs.MaxWindMPH))
	add(highest(t.Cold, func(s Step) bool { return obs.MaxTempF < s.Threshold }),
		fmt.Sprintf("cold %.0f°F", obs.MaxTempF))
	add(highest(t.Heat, func(s Step) bool { return obs.MaxTempF > s.Threshold }),
		fmt.Sprintf("heat %.0f°F", obs.MaxTempF))
	add(highest(t.Precip, func(s Step) bool { return obs.PrecipInches > s.Threshold }),
		fmt.Sprintf("precipitation %.2f in", obs.PrecipInches))
	return p
}

func highest(steps []Step, passes func(Step) bool) *Step {
	var hit *Step
	for i := range steps {
		if passes(steps[i]) {
			hit = &steps[i]
		}
	}
	return hit
}

// Compress returns the signed adjustment that shrinks the favourite's margin by
// the penalty without flipping the side: −sign(spread) × min(penalty, |spread|).
func Compress(spread, penalty float64) float64 {
	if spread == 0 || penalty <= 0 {
		return 0
	}
	magnitude := math.Min(penalty, math.Abs(spread))
	if spread > 0 {
		return -magnitude
	}
	return magnitude
}
