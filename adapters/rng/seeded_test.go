package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededStreamDeterministic(t *testing.T) {
	ctx := context.Background()
	adapter := NewSeededAdapter()

	a, err := adapter.SeededStream(ctx, "batch", 42)
	require.NoError(t, err)
	b, err := adapter.SeededStream(ctx, "batch", 42)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestStreamsAreIndependentByName(t *testing.T) {
	ctx := context.Background()
	adapter := NewSeededAdapter()

	batch, err := adapter.Stream(ctx, "run-1", "batch", 42)
	require.NoError(t, err)
	draws, err := adapter.Stream(ctx, "run-1", "draws", 42)
	require.NoError(t, err)

	same := 0
	for i := 0; i < 50; i++ {
		if batch.Int63() == draws.Int63() {
			same++
		}
	}
	assert.Less(t, same, 50)
}

func TestSeedsDivergeAcrossNames(t *testing.T) {
	ctx := context.Background()
	adapter := NewSeededAdapter()

	a, err := adapter.SeededStream(ctx, "calibration-0", 7)
	require.NoError(t, err)
	b, err := adapter.SeededStream(ctx, "calibration-1", 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.Int63(), b.Int63())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSeededAdapter().Stream(ctx, "run", "draws", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
