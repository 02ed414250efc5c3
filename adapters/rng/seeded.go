package rng

import (
	"context"
	"math/rand"
	"time"

	"phackdemo/ports"
)

// SeededAdapter implements ports.RNGPort with math/rand sources
type SeededAdapter struct{}

var _ ports.RNGPort = (*SeededAdapter)(nil)

// NewSeededAdapter creates a new seeded RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(mix(seed, name))), nil
}

// Stream derives an independent stream for (runID, streamName) from baseSeed
func (r *SeededAdapter) Stream(ctx context.Context, runID, streamName string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := baseSeed
	if runID != "" {
		seed = mix(seed, runID)
	}
	seed = mix(seed, streamName)
	return rand.New(rand.NewSource(seed)), nil
}

// NewSeed returns a fresh seed for runs that did not ask for one
func NewSeed() int64 {
	return time.Now().UnixNano()
}

// mix folds a djb2 hash of s into seed
func mix(seed int64, s string) int64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return seed ^ int64(hash*0x9E3779B97F4A7C15)
}
