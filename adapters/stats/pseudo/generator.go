package pseudo

import (
	"context"
	"math"
	"math/rand"

	"phackdemo/domain/core"
	"phackdemo/domain/trial"
	"phackdemo/ports"
)

// Generator draws null-effect comparisons: both groups come from the same
// uniform distribution, so every significant result is a false positive.
type Generator struct {
	low, high float64
}

var _ ports.BatchGeneratorPort = (*Generator)(nil)

// NewGenerator creates a generator sampling from [trial.SampleLow, trial.SampleHigh)
func NewGenerator() *Generator {
	return &Generator{low: trial.SampleLow, high: trial.SampleHigh}
}

// GenerateBatch produces batchSize comparisons with samples of length sampleSize
func (g *Generator) GenerateBatch(ctx context.Context, rng *rand.Rand, batchSize, sampleSize int) (trial.Batch, error) {
	if batchSize <= 0 {
		return trial.Batch{}, core.NewConfigurationError("batch size", batchSize)
	}
	if sampleSize <= 0 {
		return trial.Batch{}, core.NewConfigurationError("sample size", sampleSize)
	}

	comparisons := make([]trial.Comparison, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		if err := ctx.Err(); err != nil {
			return trial.Batch{}, err
		}
		c, err := g.Comparison(rng, i, sampleSize)
		if err != nil {
			return trial.Batch{}, err
		}
		comparisons = append(comparisons, c)
	}
	return trial.NewBatch(comparisons), nil
}

// Comparison draws and scores a single comparison
func (g *Generator) Comparison(rng *rand.Rand, id, sampleSize int) (trial.Comparison, error) {
	a := g.sample(rng, sampleSize)
	b := g.sample(rng, sampleSize)
	return ComparisonFromSamples(id, a, b)
}

func (g *Generator) sample(rng *rand.Rand, n int) trial.Sample {
	out := make(trial.Sample, n)
	width := g.high - g.low
	for i := range out {
		v := g.low + rng.Float64()*width
		if v >= g.high {
			v = math.Nextafter(g.high, g.low)
		}
		out[i] = v
	}
	return out
}

// ComparisonFromSamples scores explicit samples into a comparison
func ComparisonFromSamples(id int, a, b trial.Sample) (trial.Comparison, error) {
	score, err := Score(a, b)
	if err != nil {
		return trial.Comparison{}, err
	}
	return trial.NewComparison(id, a, b, score), nil
}
