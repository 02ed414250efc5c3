package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one purpose within a run
	// (e.g. "batch" or "draws"), so regenerating a batch never shifts the trial draws
	Stream(ctx context.Context, runID, streamName string, baseSeed int64) (*rand.Rand, error)
}
