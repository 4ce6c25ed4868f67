package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus describes one migration and whether it has been applied
type MigrationStatus struct {
	Migration
	Applied bool
}

// Migrate applies every pending migration, each in its own transaction.
// It returns the number of migrations applied.
func Migrate(ctx context.Context, db *sql.DB, logger *observability.Logger) (int, error) {
	dialect := DialectOf(db)

	applied, err := appliedVersions(ctx, db, dialect)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, migration := range Migrations() {
		if applied[migration.Version] {
			continue
		}

		logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return count, fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, dialect.rewriteDDL(migration.SQL)); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
		count++
	}

	return count, nil
}

// Status lists every known migration with its applied state
func Status(ctx context.Context, db *sql.DB) ([]MigrationStatus, error) {
	applied, err := appliedVersions(ctx, db, DialectOf(db))
	if err != nil {
		return nil, err
	}

	migrations := Migrations()
	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		statuses = append(statuses, MigrationStatus{Migration: m, Applied: applied[m.Version]})
	}
	return statuses, nil
}

func appliedVersions(ctx context.Context, db *sql.DB, dialect Dialect) (map[int]bool, error) {
	_, err := db.ExecContext(ctx, dialect.rewriteDDL(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
