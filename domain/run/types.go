package run

import (
	"crypto/sha256"
	"fmt"
	"time"

	"phackdemo/domain/core"
	"phackdemo/domain/trial"
)

// Status of a recorded run
type Status string

const (
	StatusComplete Status = "complete" // reached the trial cap
	StatusAborted  Status = "aborted"  // cancelled between trials
)

// Fingerprint ensures deterministic replay: the same seed, batch and cap
// always reproduce the same sequence of trial events.
type Fingerprint struct {
	Seed             int64     `json:"seed"`
	BatchFingerprint core.Hash `json:"batch_fingerprint"`
	TrialCap         int       `json:"trial_cap"`
	CodeVersion      string    `json:"code_version"`
	Fingerprint      core.Hash `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(seed int64, batch core.Hash, trialCap int, codeVersion string) Fingerprint {
	data := fmt.Sprintf("seed:%d|batch:%s|cap:%d|code:%s", seed, batch, trialCap, codeVersion)
	sum := sha256.Sum256([]byte(data))

	return Fingerprint{
		Seed:             seed,
		BatchFingerprint: batch,
		TrialCap:         trialCap,
		CodeVersion:      codeVersion,
		Fingerprint:      core.Hash(fmt.Sprintf("%x", sum)),
	}
}

// Record is the ledger entry for one hunt for significance
type Record struct {
	ID               core.RunID `json:"id" db:"id"`
	Seed             int64      `json:"seed" db:"seed"`
	BatchFingerprint core.Hash  `json:"batch_fingerprint" db:"batch_fingerprint"`
	Fingerprint      core.Hash  `json:"fingerprint" db:"fingerprint"`
	BatchSize        int        `json:"batch_size" db:"batch_size"`
	SampleSize       int        `json:"sample_size" db:"sample_size"`
	TrialCap         int        `json:"trial_cap" db:"trial_cap"`
	TrialsCompleted  int        `json:"trials_completed" db:"trials_completed"`
	SignificantCount int        `json:"significant_count" db:"significant_count"`
	Status           Status     `json:"status" db:"status"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       time.Time  `json:"finished_at" db:"finished_at"`
}

// NewRecord builds a ledger entry from a finished or aborted run
func NewRecord(id core.RunID, fp Fingerprint, batch trial.Batch, summary trial.Summary, startedAt, finishedAt time.Time) Record {
	status := StatusComplete
	if !summary.Complete() {
		status = StatusAborted
	}

	return Record{
		ID:               id,
		Seed:             fp.Seed,
		BatchFingerprint: fp.BatchFingerprint,
		Fingerprint:      fp.Fingerprint,
		BatchSize:        batch.Len(),
		SampleSize:       batch.SampleSize(),
		TrialCap:         summary.Cap,
		TrialsCompleted:  summary.TrialsCompleted,
		SignificantCount: summary.SignificantCount,
		Status:           status,
		StartedAt:        startedAt.UTC(),
		FinishedAt:       finishedAt.UTC(),
	}
}

// Summary returns the trial counts of the record
func (r Record) Summary() trial.Summary {
	return trial.Summary{
		Cap:              r.TrialCap,
		TrialsCompleted:  r.TrialsCompleted,
		SignificantCount: r.SignificantCount,
	}
}

// Validate checks if the record is complete
func (r Record) Validate() error {
	if core.ID(r.ID).IsEmpty() {
		return fmt.Errorf("%w: run record id cannot be empty", core.ErrInvalidConfiguration)
	}
	if r.TrialCap <= 0 {
		return core.NewConfigurationError("trial cap", r.TrialCap)
	}
	if r.SignificantCount < 0 || r.SignificantCount > r.TrialsCompleted || r.TrialsCompleted > r.TrialCap {
		return fmt.Errorf("%w: inconsistent counts %d/%d (cap %d)",
			core.ErrInvalidConfiguration, r.SignificantCount, r.TrialsCompleted, r.TrialCap)
	}
	return nil
}

// Totals aggregates the ledger across runs
type Totals struct {
	Runs             int `json:"runs" db:"runs"`
	Trials           int `json:"trials" db:"trials"`
	SignificantCount int `json:"significant_count" db:"significant_count"`
}

// FalsePositiveRate over every recorded trial
func (t Totals) FalsePositiveRate() float64 {
	if t.Trials == 0 {
		return 0
	}
	return float64(t.SignificantCount) / float64(t.Trials)
}
