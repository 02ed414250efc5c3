package app

import (
	"context"
	"math/rand"

	"phackdemo/adapters/rng"
	"phackdemo/domain/core"
	"phackdemo/domain/trial"
	"phackdemo/internal"
	"phackdemo/ports"
)

// Simulator runs the sequential hunt for significance over a batch
type Simulator struct {
	logger *internal.Logger
}

// NewSimulator creates a simulator
func NewSimulator(logger *internal.Logger) *Simulator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Simulator{logger: logger.With("Simulator")}
}

// Run is a single in-progress hunt. It has exactly one writer: whoever calls
// Step. Each Step is applied whole or not at all.
type Run struct {
	batch    trial.Batch
	pick     trial.Picker
	state    trial.State
	sink     ports.TrialSink
	finished bool
	logger   *internal.Logger
}

// Start validates the batch and cap and returns a run in its initial state.
// No events are emitted until Step is called. A nil draws source is replaced
// by a freshly seeded one.
func (s *Simulator) Start(batch trial.Batch, trialCap int, draws *rand.Rand, sink ports.TrialSink) (*Run, error) {
	if batch.IsEmpty() {
		return nil, core.NewInvalidBatchError("batch is empty")
	}
	state, err := trial.NewState(trialCap)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = ports.SinkFuncs{}
	}
	if draws == nil {
		draws = rand.New(rand.NewSource(rng.NewSeed()))
	}

	s.logger.Debug("starting run over batch %s (%d comparisons, cap %d)",
		batch.Fingerprint().Short(), batch.Len(), trialCap)

	return &Run{
		batch:  batch,
		pick:   draws.Intn,
		state:  state,
		sink:   sink,
		logger: s.logger,
	}, nil
}

// Step performs one trial and notifies the sink. The terminal notification
// fires once, right after the trial that reaches the cap.
func (r *Run) Step() (trial.Event, error) {
	next, event, err := trial.Step(r.state, r.batch, r.pick)
	if err != nil {
		return trial.Event{}, err
	}
	r.state = next
	r.sink.OnTrial(event)
	r.logger.Trace("trial %d/%d drew comparison %d (p=%.4f)",
		event.TrialIndex, r.state.Cap, event.Comparison.ID(), event.Comparison.PValue())

	if r.state.Done() && !r.finished {
		r.finished = true
		summary := r.state.Summary()
		r.logger.Debug("run complete: %d significant of %d", summary.SignificantCount, summary.TrialsCompleted)
		r.sink.OnComplete(summary)
	}
	return event, nil
}

func (r *Run) State() trial.State     { return r.state }
func (r *Run) Done() bool             { return r.state.Done() }
func (r *Run) Summary() trial.Summary { return r.state.Summary() }
func (r *Run) Batch() trial.Batch     { return r.batch }

// RunTrials drives a run to its cap without pacing. On cancellation it stops
// between trials and returns the partial summary with the context error.
func (s *Simulator) RunTrials(ctx context.Context, batch trial.Batch, trialCap int, draws *rand.Rand, sink ports.TrialSink) (trial.Summary, error) {
	run, err := s.Start(batch, trialCap, draws, sink)
	if err != nil {
		return trial.Summary{}, err
	}
	for !run.Done() {
		if err := ctx.Err(); err != nil {
			return run.Summary(), err
		}
		if _, err := run.Step(); err != nil {
			return run.Summary(), err
		}
	}
	return run.Summary(), nil
}
