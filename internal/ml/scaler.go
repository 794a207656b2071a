package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardises features with the training mean and standard deviation.
type Scaler struct {
	Mean   []float64 `json:"mean"`
	StdDev []float64 `json:"std_dev"`
}

// Fit learns per-column statistics. Constant or single-row columns get a unit deviation.
func (s *Scaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}
	width := len(X[0])
	s.Mean = make([]float64, width)
	s.StdDev = make([]float64, width)

	data := mat.NewDense(len(X), width, nil)
	for i, row := range X {
		data.SetRow(i, row)
	}
	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(std) || std < 1e-12 {
			std = 1
		}
		s.Mean[j], s.StdDev[j] = mean, std
	}
}

// Transform returns standardised copies of the rows.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.StdDev[j]
		}
		out[i] = scaled
	}
	return out
}
