package run

import (
	"testing"
	"time"

	"phackdemo/domain/core"
	"phackdemo/domain/trial"
)

func TestFingerprint_Deterministic(t *testing.T) {
	// Same inputs produce identical fingerprints
	fp1 := NewFingerprint(42, core.Hash("batch"), 20, "1.0.0")
	fp2 := NewFingerprint(42, core.Hash("batch"), 20, "1.0.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.Seed != 42 || fp1.TrialCap != 20 {
		t.Errorf("Determinism parameters not preserved: %+v", fp1)
	}
}

func TestFingerprint_Unique(t *testing.T) {
	base := NewFingerprint(42, core.Hash("batch"), 20, "1.0.0")
	variants := []Fingerprint{
		NewFingerprint(43, core.Hash("batch"), 20, "1.0.0"),
		NewFingerprint(42, core.Hash("other"), 20, "1.0.0"),
		NewFingerprint(42, core.Hash("batch"), 21, "1.0.0"),
		NewFingerprint(42, core.Hash("batch"), 20, "1.0.1"),
	}
	for i, v := range variants {
		if v.Fingerprint == base.Fingerprint {
			t.Errorf("variant %d collides with base fingerprint", i)
		}
	}
}

func TestNewRecordStatus(t *testing.T) {
	batch := trial.NewBatch([]trial.Comparison{
		trial.NewComparison(0, trial.Sample{1, 2, 3}, trial.Sample{4, 5, 6}, trial.Score{PValue: 0.5}),
	})
	fp := NewFingerprint(7, batch.Fingerprint(), 20, "test")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	complete := NewRecord(core.NewRunID(), fp, batch, trial.Summary{Cap: 20, TrialsCompleted: 20, SignificantCount: 1}, start, start.Add(time.Second))
	if complete.Status != StatusComplete {
		t.Errorf("expected complete status, got %s", complete.Status)
	}
	if complete.SampleSize != 3 || complete.BatchSize != 1 {
		t.Errorf("batch dimensions not recorded: %+v", complete)
	}
	if err := complete.Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}

	aborted := NewRecord(core.NewRunID(), fp, batch, trial.Summary{Cap: 20, TrialsCompleted: 5}, start, start)
	if aborted.Status != StatusAborted {
		t.Errorf("expected aborted status, got %s", aborted.Status)
	}
}

func TestRecordValidate(t *testing.T) {
	bad := Record{ID: core.NewRunID(), TrialCap: 5, TrialsCompleted: 2, SignificantCount: 3}
	if err := bad.Validate(); !core.IsInvalidConfiguration(err) {
		t.Errorf("expected invalid configuration, got %v", err)
	}

	if err := (Record{TrialCap: 5}).Validate(); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestTotalsRate(t *testing.T) {
	if (Totals{}).FalsePositiveRate() != 0 {
		t.Error("empty totals should have zero rate")
	}
	got := Totals{Runs: 2, Trials: 40, SignificantCount: 2}.FalsePositiveRate()
	if got != 0.05 {
		t.Errorf("expected 0.05, got %v", got)
	}
}
