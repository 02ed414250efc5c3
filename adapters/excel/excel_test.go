package excel

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"phackdemo/adapters/stats/pseudo"
	"phackdemo/domain/core"
	"phackdemo/domain/run"
	"phackdemo/domain/trial"
	"phackdemo/internal"
)

var quiet = internal.NewLoggerTo(io.Discard, internal.LogLevelError)

func TestBatchWorkbookRoundTrip(t *testing.T) {
	batch, err := pseudo.NewGenerator().GenerateBatch(t.Context(), rand.New(rand.NewSource(11)), 4, 5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "batch.xlsx")
	require.NoError(t, WriteBatch(path, batch))

	loaded, err := NewBatchReader(path, quiet).ReadBatch()
	require.NoError(t, err)
	require.Equal(t, batch.Len(), loaded.Len())
	assert.Equal(t, batch.SampleSize(), loaded.SampleSize())
	for i := 0; i < batch.Len(); i++ {
		assert.Equal(t, batch.At(i).ID(), loaded.At(i).ID())
		assert.InDeltaSlice(t, batch.At(i).SampleA(), loaded.At(i).SampleA(), 1e-9)
		assert.InDelta(t, batch.At(i).PValue(), loaded.At(i).PValue(), 1e-9)
	}
}

func TestBatchReaderCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identical.csv")
	content := "comparison,group,value\n1,A,10\n1,A,10\n1,B,10\n1,B,10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	batch, err := NewBatchReader(path, quiet).ReadBatch()
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())

	c := batch.At(0)
	assert.Equal(t, 10.0, c.MeanA())
	assert.Equal(t, 10.0, c.MeanB())
	assert.Equal(t, 1.0, c.PValue())
	assert.False(t, c.Significant())
}

func TestBatchReaderLogsThroughLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte("comparison,group,value\n1,A,1\n1,B,2\n"), 0o644))

	var buf bytes.Buffer
	_, err := NewBatchReader(path, internal.NewLoggerTo(&buf, internal.LogLevelInfo)).ReadBatch()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[INFO] [BatchReader] read 2 rows from "+path)
}

func TestBatchReaderErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing_column.csv": "comparison,value\n1,3\n",
		"bad_group.csv":      "comparison,group,value\n1,C,3\n",
		"bad_value.csv":      "comparison,group,value\n1,A,abc\n",
		"one_sided.csv":      "comparison,group,value\n1,A,3\n1,A,4\n",
		"header_only.csv":    "comparison,group,value\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := NewBatchReader(path, quiet).ReadBatch()
			assert.Error(t, err)
		})
	}

	_, err := NewBatchReader(filepath.Join(dir, "absent.xlsx"), quiet).ReadBatch()
	assert.Error(t, err)
}

func TestExportRuns(t *testing.T) {
	finished := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	records := []run.Record{{
		ID:               core.NewRunID(),
		Seed:             7,
		BatchFingerprint: core.NewHash([]byte("b")),
		BatchSize:        trial.DefaultBatchSize,
		SampleSize:       trial.DefaultSampleSize,
		TrialCap:         20,
		TrialsCompleted:  20,
		SignificantCount: 1,
		Status:           run.StatusComplete,
		StartedAt:        finished.Add(-7 * time.Second),
		FinishedAt:       finished,
	}}
	totals := run.Totals{Runs: 1, Trials: 20, SignificantCount: 1}

	path := filepath.Join(t.TempDir(), "runs.xlsx")
	require.NoError(t, ExportRuns(path, records, totals))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(runsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "run_id", rows[0][0])
	assert.Equal(t, string(records[0].ID), rows[1][0])
	assert.Equal(t, "complete", rows[1][1])
	assert.Equal(t, "20", rows[1][7])

	fpr, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "0.05", fpr)
}
