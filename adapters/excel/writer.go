package excel

import (
	"fmt"

	"phackdemo/domain/run"
	"phackdemo/domain/trial"

	"github.com/xuri/excelize/v2"
)

const (
	runsSheet    = "Runs"
	summarySheet = "Summary"
)

var runHeaders = []interface{}{
	"run_id", "status", "seed", "batch_fingerprint", "batch_size", "sample_size",
	"trial_cap", "trials_completed", "significant_count", "false_positive_rate",
	"started_at", "finished_at",
}

// WriteBatch saves a batch in the fixture layout read by BatchReader
func WriteBatch(path string, batch trial.Batch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(fixtureSheet, "A1", &[]interface{}{fixtureComparison, fixtureGroup, fixtureValue}); err != nil {
		return err
	}

	row := 2
	for _, c := range batch.Comparisons() {
		for _, g := range []struct {
			name   string
			sample trial.Sample
		}{{"A", c.SampleA()}, {"B", c.SampleB()}} {
			for _, v := range g.sample {
				cell, _ := excelize.CoordinatesToCellName(1, row)
				if err := f.SetSheetRow(fixtureSheet, cell, &[]interface{}{c.ID(), g.name, v}); err != nil {
					return err
				}
				row++
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save batch workbook: %w", err)
	}
	return nil
}

// ExportRuns writes the run ledger to a workbook with a Runs sheet and a
// Summary sheet holding the totals
func ExportRuns(path string, records []run.Record, totals run.Totals) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(fixtureSheet, runsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(runsSheet, "A1", &runHeaders); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(runHeaders))
	if err := f.SetCellStyle(runsSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			string(r.ID), string(r.Status), r.Seed, string(r.BatchFingerprint), r.BatchSize, r.SampleSize,
			r.TrialCap, r.TrialsCompleted, r.SignificantCount, r.Summary().FalsePositiveRate(),
			r.StartedAt, r.FinishedAt,
		}
		if err := f.SetSheetRow(runsSheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"runs", totals.Runs},
		{"trials", totals.Trials},
		{"significant_count", totals.SignificantCount},
		{"false_positive_rate", totals.FalsePositiveRate()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save run export: %w", err)
	}
	return nil
}
