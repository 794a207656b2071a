package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// maxCondition bounds the normal-equation condition number before a fit is
// treated as singular.
const maxCondition = 1e12

// LinearRegression is ridge-regularised least squares solved in closed form.
// The intercept is not penalised.
type LinearRegression struct {
	Lambda    float64   `json:"lambda"`
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
	fitted    bool
}

// NewLinearRegression creates a ridge regressor with the given penalty.
func NewLinearRegression(lambda float64) *LinearRegression {
	return &LinearRegression{Lambda: lambda}
}

// Fit solves (X'X + λI)w = X'y on an intercept-augmented design via Cholesky.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	design := augmented(X, width)
	p := width + 1

	normal := mat.NewSymDense(p, nil)
	normal.SymOuterK(1, design.T())
	for i := 1; i < p; i++ {
		normal.SetSym(i, i, normal.At(i, i)+m.Lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(len(y), y))

	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok || chol.Cond() > maxCondition {
		return fmt.Errorf("%w: normal equations are not positive definite", ErrSingularSystem)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	m.Intercept = beta.AtVec(0)
	m.Weights = make([]float64, width)
	for j := range m.Weights {
		m.Weights[j] = beta.AtVec(j + 1)
	}
	m.fitted = true
	return nil
}

// Predict returns the linear response for each row.
func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(m.Weights)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.Intercept + floats.Dot(m.Weights, row)
	}
	return out, nil
}

// augmented returns X with a leading column of ones.
func augmented(X [][]float64, width int) *mat.Dense {
	design := mat.NewDense(len(X), width+1, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	return design
}
