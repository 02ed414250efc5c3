package ports

import (
	"context"

	"phackdemo/domain/core"
	"phackdemo/domain/run"
)

// RunLedgerWriterPort provides append-only write access to run records
type RunLedgerWriterPort interface {
	RecordRun(ctx context.Context, record run.Record) error
}

// RunLedgerReaderPort provides read-only access to recorded runs
type RunLedgerReaderPort interface {
	GetRun(ctx context.Context, id core.RunID) (*run.Record, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]run.Record, error)
	Totals(ctx context.Context) (run.Totals, error)
}

// RunFilters for querying recorded runs (newest first)
type RunFilters struct {
	Status *run.Status
	Limit  int
	Offset int
}

// RunLedgerPort combines read and write access
type RunLedgerPort interface {
	RunLedgerWriterPort
	RunLedgerReaderPort
}
