package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Initialize creates a database connection pool and applies the schema
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	applied, err := db.EnsureSchema(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"host":    cfg.Database.Host,
			"name":    cfg.Database.Name,
			"scripts": applied,
		}).Info("Database ready")
	}
	return db, nil
}

// EnsureSchema applies every embedded schema script in name order.
// Scripts are idempotent so re-running them is safe.
func (db *DB) EnsureSchema(ctx context.Context) (int, error) {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return 0, fmt.Errorf("failed to list schema scripts: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := schemaFS.ReadFile(name)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.pool.Exec(ctx, string(script)); err != nil {
			return 0, fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return len(names), nil
}
