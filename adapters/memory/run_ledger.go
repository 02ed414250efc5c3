package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"phackdemo/domain/core"
	"phackdemo/domain/run"
	"phackdemo/ports"
)

// RunLedgerAdapter implements ports.RunLedgerPort with in-memory storage
type RunLedgerAdapter struct {
	records map[core.RunID]run.Record
	order   []core.RunID
	mu      sync.RWMutex
}

var _ ports.RunLedgerPort = (*RunLedgerAdapter)(nil)

func NewRunLedgerAdapter() *RunLedgerAdapter {
	return &RunLedgerAdapter{
		records: make(map[core.RunID]run.Record),
	}
}

// RecordRun appends a record; a run id can be recorded only once
func (l *RunLedgerAdapter) RecordRun(ctx context.Context, record run.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[record.ID]; exists {
		return fmt.Errorf("run %s already recorded", record.ID)
	}
	l.records[record.ID] = record
	l.order = append(l.order, record.ID)
	return nil
}

func (l *RunLedgerAdapter) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	record, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return &record, nil
}

// ListRuns returns records newest first
func (l *RunLedgerAdapter) ListRuns(ctx context.Context, filters ports.RunFilters) ([]run.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]run.Record, 0, len(l.order))
	for i := len(l.order) - 1; i >= 0; i-- {
		record := l.records[l.order[i]]
		if filters.Status != nil && record.Status != *filters.Status {
			continue
		}
		out = append(out, record)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []run.Record{}, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (l *RunLedgerAdapter) Totals(ctx context.Context) (run.Totals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var totals run.Totals
	for _, record := range l.records {
		totals.Runs++
		totals.Trials += record.TrialsCompleted
		totals.SignificantCount += record.SignificantCount
	}
	return totals, nil
}
