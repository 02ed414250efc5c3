package app

import (
	"context"
	"time"

	"phackdemo/domain/trial"
	"phackdemo/internal"
)

// Stepper is the single-step surface a driver needs from a run
type Stepper interface {
	Step() (trial.Event, error)
	Done() bool
	Summary() trial.Summary
}

// PacedDriver calls Step on a fixed interval, then waits RevealDelay before
// returning so the final result stays on screen. Pacing is presentation only;
// the run itself has no notion of time.
type PacedDriver struct {
	interval    time.Duration
	revealDelay time.Duration
	logger      *internal.Logger
}

// NewPacedDriver creates a driver; zero durations step and reveal immediately
func NewPacedDriver(interval, revealDelay time.Duration, logger *internal.Logger) *PacedDriver {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PacedDriver{
		interval:    interval,
		revealDelay: revealDelay,
		logger:      logger.With("PacedDriver"),
	}
}

// Drive steps the run until it is done or ctx is cancelled. Cancellation only
// takes effect between trials.
func (d *PacedDriver) Drive(ctx context.Context, run Stepper) (trial.Summary, error) {
	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for !run.Done() {
		if err := ctx.Err(); err != nil {
			d.logger.Debug("run aborted after %d trials", run.Summary().TrialsCompleted)
			return run.Summary(), err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				continue
			case <-tick:
			}
		}

		if _, err := run.Step(); err != nil {
			return run.Summary(), err
		}
	}

	if d.revealDelay > 0 {
		timer := time.NewTimer(d.revealDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return run.Summary(), ctx.Err()
		case <-timer.C:
		}
	}
	return run.Summary(), nil
}
