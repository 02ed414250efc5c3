package app

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phackdemo/domain/trial"
	"phackdemo/ports"
)

func TestPacedDriverRunsToCap(t *testing.T) {
	sink := &recordingSink{}
	run, err := NewSimulator(nil).Start(generatedBatch(t, 1, 20), 5, rand.New(rand.NewSource(1)), sink)
	require.NoError(t, err)

	start := time.Now()
	summary, err := NewPacedDriver(2*time.Millisecond, 5*time.Millisecond, nil).Drive(context.Background(), run)
	require.NoError(t, err)

	assert.True(t, summary.Complete())
	assert.Len(t, sink.events, 5)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPacedDriverAbortsBetweenTrials(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := ports.SinkFuncs{Trial: func(ev trial.Event) {
		if ev.TrialIndex == 3 {
			cancel()
		}
	}}
	run, err := NewSimulator(nil).Start(generatedBatch(t, 1, 20), 20, rand.New(rand.NewSource(1)), sink)
	require.NoError(t, err)

	summary, err := NewPacedDriver(time.Millisecond, 0, nil).Drive(ctx, run)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, summary.TrialsCompleted)
}

func TestPacedDriverWithoutInterval(t *testing.T) {
	run, err := NewSimulator(nil).Start(generatedBatch(t, 2, 20), 20, rand.New(rand.NewSource(2)), nil)
	require.NoError(t, err)

	summary, err := NewPacedDriver(0, 0, nil).Drive(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.TrialsCompleted)
}
