package ports

import (
	"context"
	"math/rand"

	"phackdemo/domain/trial"
)

// BatchGeneratorPort produces batches of null-effect comparisons
type BatchGeneratorPort interface {
	GenerateBatch(ctx context.Context, rng *rand.Rand, batchSize, sampleSize int) (trial.Batch, error)
}
