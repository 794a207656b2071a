package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridcast/internal/database"
	"github.com/yourusername/gridcast/internal/models"
)

const (
	errScanSummary  = "failed to scan validation summary: %w"
	selectSummaries = `
		SELECT batch_id, label, validated_at, fixtures, winner_accuracy,
		       stage_mae, stage_bias, total_mae, bias, flags
		FROM validation_summaries
	`
)

// PostgresValidationRepository implements ValidationRepository for PostgreSQL
type PostgresValidationRepository struct {
	db *database.DB
}

// NewPostgresValidationRepository creates a new validation repository
func NewPostgresValidationRepository(db *database.DB) *PostgresValidationRepository {
	return &PostgresValidationRepository{db: db}
}

// SaveBatch stores a summary and its fixture records atomically
func (r *PostgresValidationRepository) SaveBatch(ctx context.Context, summary *models.ValidationSummary, records []models.ValidationRecord) error {
	flags := summary.Flags
	if flags == nil {
		flags = []models.StageFlag{}
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO validation_summaries (
				batch_id, label, validated_at, fixtures, winner_accuracy,
				stage_mae, stage_bias, total_mae, bias, flags
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			summary.BatchID, summary.Label, summary.ValidatedAt, summary.Fixtures, summary.WinnerAccuracy,
			summary.StageMAE, summary.StageBias, summary.TotalMAE, summary.Bias, flags,
		)
		if err != nil {
			return fmt.Errorf("failed to save validation summary: %w", database.TranslateError(err))
		}

		rows := make([][]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []any{
				summary.BatchID, rec.MatchID, rec.HomeTeam, rec.AwayTeam,
				rec.StageSpreads, rec.StageErrors, rec.RealizedSpread, rec.RealizedTotal,
				rec.PredictedTotal, rec.WinnerCorrect,
			})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"validation_records"},
			[]string{
				"batch_id", "match_id", "home_team", "away_team",
				"stage_spreads", "stage_errors", "realized_spread", "realized_total",
				"predicted_total", "winner_correct",
			},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to save validation records: %w", database.TranslateError(err))
		}
		return nil
	})
}

// GetSummary retrieves one batch summary
func (r *PostgresValidationRepository) GetSummary(ctx context.Context, batchID uuid.UUID) (*models.ValidationSummary, error) {
	s, err := scanSummary(r.db.GetPool().QueryRow(ctx, selectSummaries+` WHERE batch_id = $1`, batchID))
	if err != nil {
		if translated := database.TranslateError(err); translated == models.ErrNotFound {
			return nil, translated
		}
		return nil, fmt.Errorf("failed to get validation summary: %w", err)
	}
	return s, nil
}

// RecentSummaries retrieves the latest summaries, newest first
func (r *PostgresValidationRepository) RecentSummaries(ctx context.Context, limit int) ([]*models.ValidationSummary, error) {
	rows, err := r.db.GetPool().Query(ctx, selectSummaries+` ORDER BY validated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ValidationSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanSummary, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetRecords retrieves the fixture records of a batch
func (r *PostgresValidationRepository) GetRecords(ctx context.Context, batchID uuid.UUID) ([]models.ValidationRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT batch_id, match_id, home_team, away_team, stage_spreads, stage_errors,
		       realized_spread, realized_total, predicted_total, winner_correct
		FROM validation_records WHERE batch_id = $1 ORDER BY match_id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation records: %w", err)
	}
	defer rows.Close()

	var records []models.ValidationRecord
	for rows.Next() {
		var rec models.ValidationRecord
		if err := rows.Scan(
			&rec.BatchID, &rec.MatchID, &rec.HomeTeam, &rec.AwayTeam, &rec.StageSpreads, &rec.StageErrors,
			&rec.RealizedSpread, &rec.RealizedTotal, &rec.PredictedTotal, &rec.WinnerCorrect,
		); err != nil {
			return nil, fmt.Errorf("failed to scan validation record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanSummary(row pgx.Row) (*models.ValidationSummary, error) {
	s := &models.ValidationSummary{}
	err := row.Scan(
		&s.BatchID, &s.Label, &s.ValidatedAt, &s.Fixtures, &s.WinnerAccuracy,
		&s.StageMAE, &s.StageBias, &s.TotalMAE, &s.Bias, &s.Flags,
	)
	if err != nil {
		return nil, err
	}
	s.ValidatedAt = s.ValidatedAt.UTC()
	return s, nil
}
