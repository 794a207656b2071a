package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridcast/internal/database"
	"github.com/yourusername/gridcast/internal/models"
)

const (
	errScanMatch  = "failed to scan match: %w"
	selectMatches = `
		SELECT id, season, week, game_date, home_team, away_team,
		       home_score, away_score, venue, roof
		FROM matches
	`
	upsertMatch = `
		INSERT INTO matches (id, season, week, game_date, home_team, away_team, home_score, away_score, venue, roof)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			season = EXCLUDED.season,
			week = EXCLUDED.week,
			game_date = EXCLUDED.game_date,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			venue = EXCLUDED.venue,
			roof = EXCLUDED.roof,
			updated_at = NOW()
	`
)

// PostgresMatchRepository implements MatchRepository for PostgreSQL.
// It also satisfies the match feed interface so history can be served from the database.
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

// Matches retrieves every match ordered by date then id
func (r *PostgresMatchRepository) Matches(ctx context.Context) ([]*models.Match, error) {
	rows, err := r.db.GetPool().Query(ctx, selectMatches+` ORDER BY game_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	return collectMatches(rows)
}

// UpsertBatch inserts or updates matches in a single round trip
func (r *PostgresMatchRepository) UpsertBatch(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(upsertMatch,
			m.ID, m.Season, m.Week, m.Date, m.HomeTeam, m.AwayTeam,
			m.HomeScore, m.AwayScore, m.Venue, m.Roof,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()
	for i := range matches {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert match %s: %w", matches[i].ID, database.TranslateError(err))
		}
	}
	return nil
}

// GetByID retrieves a match by ID
func (r *PostgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	m, err := scanMatch(r.db.GetPool().QueryRow(ctx, selectMatches+` WHERE id = $1`, id))
	if err != nil {
		if translated := database.TranslateError(err); translated == models.ErrNotFound {
			return nil, translated
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// GetBySeasonWeek retrieves one week of a season ordered by date
func (r *PostgresMatchRepository) GetBySeasonWeek(ctx context.Context, season, week int) ([]*models.Match, error) {
	rows, err := r.db.GetPool().Query(ctx,
		selectMatches+` WHERE season = $1 AND week = $2 ORDER BY game_date ASC, id ASC`, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for %d week %d: %w", season, week, err)
	}
	return collectMatches(rows)
}

// SetResult records the final score of a fixture
func (r *PostgresMatchRepository) SetResult(ctx context.Context, id string, homeScore, awayScore int) error {
	tag, err := r.db.GetPool().Exec(ctx,
		`UPDATE matches SET home_score = $2, away_score = $3, updated_at = NOW() WHERE id = $1`,
		id, homeScore, awayScore)
	if err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.Season, &m.Week, &m.Date, &m.HomeTeam, &m.AwayTeam,
		&m.HomeScore, &m.AwayScore, &m.Venue, &m.Roof,
	)
	if err != nil {
		return nil, err
	}
	m.Date = m.Date.UTC()
	return m, nil
}

func collectMatches(rows pgx.Rows) ([]*models.Match, error) {
	defer rows.Close()
	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanMatch, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
