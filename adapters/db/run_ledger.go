package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"phackdemo/domain/core"
	"phackdemo/domain/run"
	"phackdemo/internal/errors"
	"phackdemo/internal/migration"
	"phackdemo/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const recordColumns = `id, seed, batch_fingerprint, fingerprint, batch_size, sample_size, trial_cap,
	trials_completed, significant_count, status, started_at, finished_at`

// Open connects to the ledger database and applies pending migrations.
// Supported drivers are "sqlite3" and "postgres".
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported ledger driver %q", driver))
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to ledger database", err)
	}
	if driver == "sqlite3" {
		// sqlite3 serialises writers; a single connection avoids SQLITE_BUSY
		// and keeps ":memory:" databases alive across calls.
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// RunLedgerAdapter implements ports.RunLedgerPort over sqlx
type RunLedgerAdapter struct {
	db *sqlx.DB
}

var _ ports.RunLedgerPort = (*RunLedgerAdapter)(nil)

// NewRunLedgerAdapter creates a ledger over an open, migrated database
func NewRunLedgerAdapter(db *sqlx.DB) *RunLedgerAdapter {
	return &RunLedgerAdapter{db: db}
}

// RecordRun appends a record to the ledger
func (a *RunLedgerAdapter) RecordRun(ctx context.Context, record run.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	_, err := a.db.NamedExecContext(ctx, `
		INSERT INTO run_records (`+recordColumns+`)
		VALUES (:id, :seed, :batch_fingerprint, :fingerprint, :batch_size, :sample_size, :trial_cap,
			:trials_completed, :significant_count, :status, :started_at, :finished_at)
	`, record)
	if err != nil {
		return errors.DatabaseError(fmt.Sprintf("failed to record run %s", record.ID), err)
	}
	return nil
}

// GetRun retrieves a recorded run by id
func (a *RunLedgerAdapter) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	var record run.Record
	err := a.db.GetContext(ctx, &record, a.db.Rebind(`
		SELECT `+recordColumns+`
		FROM run_records
		WHERE id = ?
	`), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, errors.DatabaseError("failed to get run", err)
	}
	record.StartedAt = record.StartedAt.UTC()
	record.FinishedAt = record.FinishedAt.UTC()
	return &record, nil
}

// ListRuns returns recorded runs newest first
func (a *RunLedgerAdapter) ListRuns(ctx context.Context, filters ports.RunFilters) ([]run.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filters.Status)
	}

	query := `SELECT ` + recordColumns + ` FROM run_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY finished_at DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	} else if filters.Offset > 0 {
		query += " LIMIT -1"
		if a.db.DriverName() == "postgres" {
			query = strings.TrimSuffix(query, " LIMIT -1") + " LIMIT ALL"
		}
	}
	if filters.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filters.Offset)
	}

	records := []run.Record{}
	if err := a.db.SelectContext(ctx, &records, a.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	for i := range records {
		records[i].StartedAt = records[i].StartedAt.UTC()
		records[i].FinishedAt = records[i].FinishedAt.UTC()
	}
	return records, nil
}

// Totals aggregates trials and significant results across every run
func (a *RunLedgerAdapter) Totals(ctx context.Context) (run.Totals, error) {
	var totals run.Totals
	err := a.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS runs,
			COALESCE(SUM(trials_completed), 0) AS trials,
			COALESCE(SUM(significant_count), 0) AS significant_count
		FROM run_records
	`)
	if err != nil {
		return run.Totals{}, errors.DatabaseError("failed to total runs", err)
	}
	return totals, nil
}
