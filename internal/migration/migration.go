package migration

import (
	"context"

	"dixonq/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the evaluation ledger schema. Statements are
// idempotent and portable between postgres and sqlite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createEvaluationsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create dixon_evaluations table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createEvaluationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dixon_evaluations (
			id VARCHAR(64) PRIMARY KEY,
			stream_id VARCHAR(128) NOT NULL,
			classification VARCHAR(32) NOT NULL,
			sample_size INTEGER NOT NULL,
			confidence_level INTEGER NOT NULL,
			q_small DOUBLE PRECISION NOT NULL,
			q_big DOUBLE PRECISION NOT NULL,
			critical_value DOUBLE PRECISION NOT NULL,
			range_value DOUBLE PRECISION NOT NULL,
			degenerate BOOLEAN NOT NULL DEFAULT FALSE,
			low_outlier DOUBLE PRECISION,
			high_outlier DOUBLE PRECISION,
			ranked TEXT NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			median DOUBLE PRECISION NOT NULL,
			std_dev DOUBLE PRECISION NOT NULL,
			evaluated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_dixon_evaluations_stream
		ON dixon_evaluations (stream_id, evaluated_at)
	`)
	return err
}
