package models

import "errors"

// Error taxonomy shared across the forecasting pipeline.
var (
	// ErrDataUnavailable indicates an external feed is unreachable or returned nothing.
	// Always recoverable: the affected stage degrades to a flagged no-op.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrDataIncomplete indicates required history is missing for a team or fixture.
	// The affected row is excluded, never imputed.
	ErrDataIncomplete = errors.New("data incomplete")

	// ErrOrderingViolation indicates a match was processed out of chronological order
	// or a post-game value was requested as a pre-game feature.
	ErrOrderingViolation = errors.New("chronological ordering violation")

	// ErrValidationPrecondition indicates a batch contains unfinished fixtures.
	ErrValidationPrecondition = errors.New("batch not ready for validation")

	// ErrChainMismatch indicates an adjustment record does not replay to its stored final spread.
	ErrChainMismatch = errors.New("adjustment chain mismatch")

	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)
