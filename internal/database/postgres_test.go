package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/gridcast/internal/models"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, TranslateError(nil))
	assert.ErrorIs(t, TranslateError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), models.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "matches_pkey"}
	err := TranslateError(dup)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "matches_pkey")

	other := errors.New("connection reset")
	assert.Equal(t, other, TranslateError(other))
}

func TestSchemaScriptsEmbedded(t *testing.T) {
	script, err := schemaFS.ReadFile("schema/001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(script), "CREATE TABLE IF NOT EXISTS validation_summaries")
}
