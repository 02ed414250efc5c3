package migration

import (
	"context"
	"fmt"

	"phackdemo/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

type step struct {
	version string
	name    string
	stmts   []string
}

// Statements stay within the subset sqlite3 and postgres share.
var steps = []step{
	{
		version: "0001",
		name:    "create run_records table",
		stmts: []string{`
		CREATE TABLE IF NOT EXISTS run_records (
			id TEXT PRIMARY KEY,
			seed BIGINT NOT NULL,
			batch_fingerprint TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			batch_size INTEGER NOT NULL,
			sample_size INTEGER NOT NULL,
			trial_cap INTEGER NOT NULL,
			trials_completed INTEGER NOT NULL,
			significant_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`},
	},
	{
		version: "0002",
		name:    "create run_records indexes",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_run_records_finished_at ON run_records(finished_at)`,
			`CREATE INDEX IF NOT EXISTS idx_run_records_status ON run_records(status)`,
		},
	},
}

// MigrationRunner applies the ledger schema, recording each applied step
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: steps[len(steps)-1].version,
	}
}

// Version returns the latest schema version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all pending migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return errors.DatabaseError("failed to read applied migrations", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, s := range steps {
		if done[s.version] {
			continue
		}
		if err := r.apply(ctx, db, s); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to %s", s.name))
		}
	}
	return nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin migration", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError("migration "+s.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), s.version, s.name); err != nil {
		return errors.DatabaseError("failed to record migration", err)
	}
	return tx.Commit()
}
