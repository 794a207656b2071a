// Package ml provides the in-process predictive models behind base predictions.
package ml

import "errors"

var (
	// ErrNotFitted indicates Predict was called before Fit
	ErrNotFitted = errors.New("model not fitted")

	// ErrEmptyTrainingSet indicates Fit received no rows
	ErrEmptyTrainingSet = errors.New("empty training set")

	// ErrDimensionMismatch indicates inconsistent feature or label lengths
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularSystem indicates the normal equations could not be solved
	ErrSingularSystem = errors.New("singular system")
)
