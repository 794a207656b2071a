package cascade

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ProbabilityMapper turns a home-relative spread into a clipped home win probability.
type ProbabilityMapper struct {
	Sigma   float64
	Floor   float64
	Ceiling float64
}

// DefaultProbabilityMapper returns σ=13.5 clipped to [0.05, 0.95].
func DefaultProbabilityMapper() ProbabilityMapper {
	return ProbabilityMapper{Sigma: 13.5, Floor: 0.05, Ceiling: 0.95}
}

// WinProbability returns clip(Φ(spread/σ)). A zero spread maps to exactly 0.5.
func (p ProbabilityMapper) WinProbability(spread float64) float64 {
	prob := distuv.Normal{Mu: 0, Sigma: p.Sigma}.CDF(spread)
	return math.Min(p.Ceiling, math.Max(p.Floor, prob))
}
