package database

import (
	"context"
	"fmt"

	dbsql "frameworks/api_licensing/pkg/database/sql"
	"frameworks/api_licensing/pkg/logging"
)

// ApplySchema executes the embedded schema and static seed files against the
// connected database. Every statement is idempotent, so this runs on each
// service start.
func ApplySchema(ctx context.Context, db PostgresConn, logger logging.Logger) error {
	files := []string{
		"schema/steward.sql",
		"seeds/static/steward_tiers.sql",
	}

	for _, path := range files {
		content, err := dbsql.Content.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded SQL file %s: %w", path, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", path, err)
		}

		logger.WithField("file", path).Debug("Applied embedded SQL")
	}

	logger.Info("Database schema applied")
	return nil
}
