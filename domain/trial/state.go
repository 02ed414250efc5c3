package trial

import (
	"fmt"

	"phackdemo/domain/core"
)

// Picker draws an index uniformly from [0, n). (*rand.Rand).Intn satisfies it.
type Picker func(n int) int

// State is the running tally of one hunt for significance.
// INVARIANTS:
// - 0 <= SignificantCount <= TrialsCompleted <= Cap
// - Current is nil until the first trial
// - once TrialsCompleted == Cap the state is frozen
type State struct {
	Cap              int         `json:"cap"`
	TrialsCompleted  int         `json:"trials_completed"`
	SignificantCount int         `json:"significant_count"`
	Current          *Comparison `json:"current,omitempty"`
}

// NewState returns the initial state for a run capped at trialCap trials
func NewState(trialCap int) (State, error) {
	if trialCap <= 0 {
		return State{}, core.NewInvalidBatchError(fmt.Sprintf("trial cap must be positive, got %d", trialCap))
	}
	return State{Cap: trialCap}, nil
}

// Done reports whether the cap has been reached
func (s State) Done() bool {
	return s.TrialsCompleted >= s.Cap
}

// Remaining returns the number of trials left before the cap
func (s State) Remaining() int {
	if s.Done() {
		return 0
	}
	return s.Cap - s.TrialsCompleted
}

// Summary freezes the counts for reporting
func (s State) Summary() Summary {
	return Summary{
		Cap:              s.Cap,
		TrialsCompleted:  s.TrialsCompleted,
		SignificantCount: s.SignificantCount,
	}
}

// Event is emitted after every trial. TrialIndex is 1-based and equals the
// number of trials completed so far.
type Event struct {
	TrialIndex              int        `json:"trial_index"`
	Comparison              Comparison `json:"comparison"`
	RunningSignificantCount int        `json:"running_significant_count"`
}

// Summary is the final tally of a run
type Summary struct {
	Cap              int `json:"cap"`
	TrialsCompleted  int `json:"trials_completed"`
	SignificantCount int `json:"significant_count"`
}

// FalsePositiveRate is the fraction of trials that came out "significant".
// Every such trial is a false positive because no effect exists.
func (s Summary) FalsePositiveRate() float64 {
	if s.TrialsCompleted == 0 {
		return 0
	}
	return float64(s.SignificantCount) / float64(s.TrialsCompleted)
}

// Complete reports whether the run reached its cap
func (s Summary) Complete() bool {
	return s.Cap > 0 && s.TrialsCompleted >= s.Cap
}

// Step performs one trial: draw a comparison uniformly from the batch, make it
// current and update the counts. The input state is never modified; on error
// the returned state equals the input.
func Step(s State, b Batch, pick Picker) (State, Event, error) {
	if b.IsEmpty() {
		return s, Event{}, core.NewInvalidBatchError("batch is empty")
	}
	if s.Cap <= 0 {
		return s, Event{}, core.NewInvalidBatchError(fmt.Sprintf("trial cap must be positive, got %d", s.Cap))
	}
	if s.Done() {
		return s, Event{}, core.ErrRunComplete
	}

	idx := pick(b.Len())
	if idx < 0 || idx >= b.Len() {
		return s, Event{}, fmt.Errorf("picker returned index %d outside batch of %d", idx, b.Len())
	}

	chosen := b.At(idx)
	next := State{
		Cap:              s.Cap,
		TrialsCompleted:  s.TrialsCompleted + 1,
		SignificantCount: s.SignificantCount,
		Current:          &chosen,
	}
	if chosen.Significant() {
		next.SignificantCount++
	}

	return next, Event{
		TrialIndex:              next.TrialsCompleted,
		Comparison:              chosen,
		RunningSignificantCount: next.SignificantCount,
	}, nil
}
