// Package repository provides PostgreSQL storage for match history and validation batches.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/gridcast/internal/models"
)

// MatchRepository defines the interface for match history access
type MatchRepository interface {
	// Matches returns the full history in chronological order.
	Matches(ctx context.Context) ([]*models.Match, error)
	UpsertBatch(ctx context.Context, matches []*models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	GetBySeasonWeek(ctx context.Context, season, week int) ([]*models.Match, error)
	SetResult(ctx context.Context, id string, homeScore, awayScore int) error
}

// ValidationRepository defines the interface for validated batch storage
type ValidationRepository interface {
	SaveBatch(ctx context.Context, summary *models.ValidationSummary, records []models.ValidationRecord) error
	GetSummary(ctx context.Context, batchID uuid.UUID) (*models.ValidationSummary, error)
	RecentSummaries(ctx context.Context, limit int) ([]*models.ValidationSummary, error)
	GetRecords(ctx context.Context, batchID uuid.UUID) ([]models.ValidationRecord, error)
}
