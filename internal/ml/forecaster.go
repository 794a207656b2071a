package ml

import (
	"fmt"
	"math"

	"github.com/yourusername/gridcast/internal/models"
)

// ForecasterConfig holds the hyperparameters of the three base models.
type ForecasterConfig struct {
	RidgeLambda        float64
	LogisticIterations int
	LogisticLambda     float64
	Version            string
}

// DefaultForecasterConfig returns settings that converge on standardised features.
func DefaultForecasterConfig() ForecasterConfig {
	return ForecasterConfig{
		RidgeLambda:        1.0,
		LogisticIterations: 2000,
		LogisticLambda:     0.01,
		Version:            "ridge-logit-v1",
	}
}

// Forecaster bundles spread, total and win-probability models over one feature scaler.
type Forecaster struct {
	cfg     ForecasterConfig
	scaler  Scaler
	spread  Predictor
	total   Predictor
	winProb Predictor
	trained int
}

// NewForecaster creates an untrained forecaster.
func NewForecaster(cfg ForecasterConfig) *Forecaster {
	return &Forecaster{
		cfg:     cfg,
		spread:  NewLinearRegression(cfg.RidgeLambda),
		total:   NewLinearRegression(cfg.RidgeLambda),
		winProb: NewLogisticRegression(cfg.LogisticIterations, cfg.LogisticLambda),
	}
}

// Version identifies the model family recorded on every prediction.
func (f *Forecaster) Version() string {
	return f.cfg.Version
}

// TrainedRows returns the number of rows used by the last Train call.
func (f *Forecaster) TrainedRows() int {
	return f.trained
}

// Train fits all three models on labelled rows.
func (f *Forecaster) Train(rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return ErrEmptyTrainingSet
	}
	X := make([][]float64, len(rows))
	margins := make([]float64, len(rows))
	totals := make([]float64, len(rows))
	wins := make([]float64, len(rows))
	for i := range rows {
		X[i] = rows[i].Vector()
		margins[i] = rows[i].Margin
		totals[i] = rows[i].Total
		wins[i] = rows[i].HomeWin
	}

	f.scaler.Fit(X)
	scaled := f.scaler.Transform(X)

	if err := f.spread.Fit(scaled, margins); err != nil {
		return fmt.Errorf("fit spread model: %w", err)
	}
	if err := f.total.Fit(scaled, totals); err != nil {
		return fmt.Errorf("fit total model: %w", err)
	}
	if err := f.winProb.Fit(scaled, wins); err != nil {
		return fmt.Errorf("fit win model: %w", err)
	}
	f.trained = len(rows)
	return nil
}

// Predict produces one base prediction per inference row, in input order.
func (f *Forecaster) Predict(rows []models.FeatureRow) ([]models.BasePrediction, error) {
	if f.trained == 0 {
		return nil, ErrNotFitted
	}
	if len(rows) == 0 {
		return nil, nil
	}
	X := make([][]float64, len(rows))
	for i := range rows {
		X[i] = rows[i].Vector()
	}
	scaled := f.scaler.Transform(X)

	spreads, err := f.spread.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("predict spread: %w", err)
	}
	totals, err := f.total.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("predict total: %w", err)
	}
	probs, err := f.winProb.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("predict win probability: %w", err)
	}

	out := make([]models.BasePrediction, len(rows))
	for i, row := range rows {
		out[i] = models.BasePrediction{
			MatchID:        row.MatchID,
			Season:         row.Season,
			Week:           row.Week,
			Date:           row.Date,
			HomeTeam:       row.HomeTeam,
			AwayTeam:       row.AwayTeam,
			WinProbability: probs[i],
			Spread:         spreads[i],
			Total:          math.Max(0, totals[i]),
			ModelVersion:   f.cfg.Version,
		}
	}
	return out, nil
}
