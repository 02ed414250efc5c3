package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phackdemo/domain/core"
	"phackdemo/domain/run"
	"phackdemo/ports"
)

func record(finished time.Time, trials, significant int, status run.Status) run.Record {
	return run.Record{
		ID:               core.NewRunID(),
		Seed:             1,
		BatchSize:        20,
		SampleSize:       30,
		TrialCap:         20,
		TrialsCompleted:  trials,
		SignificantCount: significant,
		Status:           status,
		StartedAt:        finished.Add(-time.Second),
		FinishedAt:       finished,
	}
}

func TestRunLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger := NewRunLedgerAdapter()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := record(base, 20, 1, run.StatusComplete)
	second := record(base.Add(time.Minute), 7, 0, run.StatusAborted)
	require.NoError(t, ledger.RecordRun(ctx, first))
	require.NoError(t, ledger.RecordRun(ctx, second))
	assert.Error(t, ledger.RecordRun(ctx, first), "duplicate ids are rejected")

	got, err := ledger.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got)

	_, err = ledger.GetRun(ctx, core.RunID("missing"))
	assert.True(t, core.IsNotFoundError(err))

	all, err := ledger.ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	complete := run.StatusComplete
	only, err := ledger.ListRuns(ctx, ports.RunFilters{Status: &complete})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, first.ID, only[0].ID)

	page, err := ledger.ListRuns(ctx, ports.RunFilters{Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	totals, err := ledger.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.Totals{Runs: 2, Trials: 27, SignificantCount: 1}, totals)
}

func TestRunLedgerRejectsInvalidRecord(t *testing.T) {
	bad := record(time.Now(), 3, 4, run.StatusAborted)
	assert.True(t, core.IsInvalidConfiguration(NewRunLedgerAdapter().RecordRun(context.Background(), bad)))
}
