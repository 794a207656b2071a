package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is an L2-penalised binary classifier fitted with L-BFGS.
// Labels may be fractional (a draw is 0.5).
type LogisticRegression struct {
	Iterations int       `json:"iterations"`
	Lambda     float64   `json:"lambda"`
	Intercept  float64   `json:"intercept"`
	Weights    []float64 `json:"weights"`
	fitted     bool
}

// NewLogisticRegression creates a classifier with a bounded iteration budget.
func NewLogisticRegression(iterations int, lambda float64) *LogisticRegression {
	return &LogisticRegression{Iterations: iterations, Lambda: lambda}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Fit minimises the mean log-loss plus λ/2·|w|² starting from zero, so repeated
// fits on the same data are identical.
func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	n := float64(len(X))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss := 0.0
			for i, row := range X {
				z := x[0] + floats.Dot(x[1:], row)
				loss += softplus(z) - y[i]*z
			}
			return loss/n + 0.5*m.Lambda*floats.Dot(x[1:], x[1:])
		},
		Grad: func(grad, x []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range X {
				diff := (sigmoid(x[0]+floats.Dot(x[1:], row)) - y[i]) / n
				grad[0] += diff
				floats.AddScaled(grad[1:], diff, row)
			}
			floats.AddScaled(grad[1:], m.Lambda, x[1:])
		},
	}

	settings := optimize.Settings{
		MajorIterations:   m.Iterations,
		GradientThreshold: 1e-8,
	}
	result, err := optimize.Minimize(problem, make([]float64, width+1), &settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("fit logistic regression: %w", err)
	}
	// A line search that stalls close to the optimum still reports the best point found.
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("fit logistic regression: diverged: %v", err)
		}
	}

	m.Intercept = result.X[0]
	m.Weights = append([]float64(nil), result.X[1:]...)
	m.fitted = true
	return nil
}

// Predict returns the probability of the positive class for each row.
func (m *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(m.Weights)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(m.Intercept + floats.Dot(m.Weights, row))
	}
	return out, nil
}
