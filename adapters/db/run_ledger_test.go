package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phackdemo/domain/core"
	"phackdemo/domain/run"
	"phackdemo/internal/errors"
	"phackdemo/internal/migration"
	"phackdemo/ports"
)

func openTestLedger(t *testing.T) *RunLedgerAdapter {
	t.Helper()
	db, err := Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunLedgerAdapter(db)
}

func testRecord(finished time.Time, trials, significant int, status run.Status) run.Record {
	fp := run.NewFingerprint(42, core.NewHash([]byte("batch")), 20, "test")
	return run.Record{
		ID:               core.NewRunID(),
		Seed:             fp.Seed,
		BatchFingerprint: fp.BatchFingerprint,
		Fingerprint:      fp.Fingerprint,
		BatchSize:        20,
		SampleSize:       30,
		TrialCap:         20,
		TrialsCompleted:  trials,
		SignificantCount: significant,
		Status:           status,
		StartedAt:        finished.Add(-6 * time.Second),
		FinishedAt:       finished,
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	// running the migrations again must be a no-op
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 2, count)
}

func TestRunLedgerRecordAndGet(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)
	rec := testRecord(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), 20, 2, run.StatusComplete)

	require.NoError(t, ledger.RecordRun(ctx, rec))

	got, err := ledger.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Fingerprint, got.Fingerprint)
	assert.Equal(t, rec.Summary(), got.Summary())
	assert.Equal(t, run.StatusComplete, got.Status)
	assert.True(t, rec.FinishedAt.Equal(got.FinishedAt))

	assert.Error(t, ledger.RecordRun(ctx, rec), "primary key rejects duplicates")
}

func TestRunLedgerGetMissing(t *testing.T) {
	_, err := openTestLedger(t).GetRun(context.Background(), core.NewRunID())
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunLedgerRejectsInconsistentCounts(t *testing.T) {
	rec := testRecord(time.Now().UTC(), 5, 6, run.StatusAborted)
	err := openTestLedger(t).RecordRun(context.Background(), rec)
	assert.True(t, core.IsInvalidConfiguration(err))
}

func TestRunLedgerListAndTotals(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	oldest := testRecord(base, 20, 1, run.StatusComplete)
	middle := testRecord(base.Add(time.Hour), 4, 0, run.StatusAborted)
	newest := testRecord(base.Add(2*time.Hour), 20, 0, run.StatusComplete)
	for _, rec := range []run.Record{oldest, middle, newest} {
		require.NoError(t, ledger.RecordRun(ctx, rec))
	}

	all, err := ledger.ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []core.RunID{newest.ID, middle.ID, oldest.ID}, []core.RunID{all[0].ID, all[1].ID, all[2].ID})

	complete := run.StatusComplete
	done, err := ledger.ListRuns(ctx, ports.RunFilters{Status: &complete, Limit: 1})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, newest.ID, done[0].ID)

	rest, err := ledger.ListRuns(ctx, ports.RunFilters{Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)

	totals, err := ledger.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.Totals{Runs: 3, Trials: 44, SignificantCount: 1}, totals)
	assert.InDelta(t, 1.0/44.0, totals.FalsePositiveRate(), 1e-12)
}

func TestRunLedgerEmptyTotals(t *testing.T) {
	totals, err := openTestLedger(t).Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.Totals{}, totals)
}
