package ml

import "fmt"

// Predictor is the fit/predict contract every model family satisfies.
type Predictor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

func checkTrainingSet(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyTrainingSet
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimensionMismatch, i, len(row), width)
		}
	}
	return width, nil
}

func checkWidth(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimensionMismatch, i, len(row), width)
		}
	}
	return nil
}
