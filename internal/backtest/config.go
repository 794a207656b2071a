// Package backtest scores stored forecasts against realized results.
package backtest

import "fmt"

// Config tunes the validation engine.
type Config struct {
	// FlagTolerance is how much a stage's MAE may exceed the previous stage's before it is flagged.
	FlagTolerance float64
	// BootstrapIterations is the number of resamples behind the confidence intervals. Zero disables them.
	BootstrapIterations int
	ConfidenceLevel     float64
	// Seed makes resampling reproducible.
	Seed int64
}

// DefaultConfig returns the standard validation settings.
func DefaultConfig() Config {
	return Config{
		FlagTolerance:       0,
		BootstrapIterations: 1000,
		ConfidenceLevel:     0.9,
		Seed:                1,
	}
}

// Validate validates the engine configuration
func (c Config) Validate() error {
	if c.FlagTolerance < 0 {
		return fmt.Errorf("flag tolerance cannot be negative")
	}
	if c.BootstrapIterations < 0 {
		return fmt.Errorf("bootstrap iterations cannot be negative")
	}
	if c.BootstrapIterations > 0 && (c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1) {
		return fmt.Errorf("confidence level must be between 0 and 1")
	}
	return nil
}
