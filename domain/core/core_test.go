package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatalf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	_, err := ParseRunID("   ")
	assert.Error(t, err)

	id, err := ParseRunID("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", id.String())
}

func TestHashFloatsSeriesBoundaries(t *testing.T) {
	a := HashFloats([]float64{1}, []float64{2, 3})
	b := HashFloats([]float64{1, 2}, []float64{3})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashFloats([]float64{1}, []float64{2, 3}))
	assert.Len(t, a.Short(), 12)
}

func TestErrorClassification(t *testing.T) {
	err := fmt.Errorf("run trials: %w", NewInvalidBatchError("batch is empty"))
	assert.True(t, IsInvalidBatch(err))
	assert.False(t, IsInvalidConfiguration(err))

	cfgErr := NewConfigurationError("sample size", 0)
	assert.True(t, IsInvalidConfiguration(cfgErr))
	assert.Contains(t, cfgErr.Error(), "sample size must be positive, got 0")

	assert.True(t, IsNotFoundError(ErrSessionNotFound))
}
