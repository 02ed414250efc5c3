package testkit

import (
	"fmt"
	"math/rand"

	"phackdemo/adapters/memory"
	"phackdemo/adapters/rng"
	"phackdemo/adapters/stats/pseudo"
	"phackdemo/domain/trial"
)

// TestKit provides adapters and fixtures for tests
type TestKit struct {
	ledger    *memory.RunLedgerAdapter
	rng       *rng.SeededAdapter
	generator *pseudo.Generator
}

// NewTestKit creates a test kit with an empty in-memory ledger
func NewTestKit() *TestKit {
	return &TestKit{
		ledger:    memory.NewRunLedgerAdapter(),
		rng:       rng.NewSeededAdapter(),
		generator: pseudo.NewGenerator(),
	}
}

func (t *TestKit) Ledger() *memory.RunLedgerAdapter { return t.ledger }
func (t *TestKit) RNG() *rng.SeededAdapter          { return t.rng }
func (t *TestKit) Generator() *pseudo.Generator     { return t.generator }

// Rand returns a plain seeded source for driving runs
func (t *TestKit) Rand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Two-observation samples with known scores:
//
//	significant: means 0.5 vs 0.55, t ~ 0.071, p ~ 0.042
//	null:        means 0.5 vs 5.5,  t ~ 7.07,  p ~ 1.76
//	identical:   [10, 10] twice,    t = 0,     p = 1
var (
	significantA = trial.Sample{0, 1}
	significantB = trial.Sample{0.05, 1.05}
	nullA        = trial.Sample{0, 1}
	nullB        = trial.Sample{5, 6}
	identical    = trial.Sample{10, 10}
)

// SignificantComparison scores below the threshold
func SignificantComparison(id int) trial.Comparison {
	return mustScore(id, significantA, significantB)
}

// NullComparison scores well above the threshold
func NullComparison(id int) trial.Comparison {
	return mustScore(id, nullA, nullB)
}

// IdenticalComparison has equal constant samples and p = 1
func IdenticalComparison(id int) trial.Comparison {
	return mustScore(id, identical, identical)
}

// BatchOf builds a batch whose i-th comparison is significant when pattern[i] is set
func BatchOf(pattern ...bool) trial.Batch {
	cs := make([]trial.Comparison, len(pattern))
	for i, sig := range pattern {
		if sig {
			cs[i] = SignificantComparison(i + 1)
		} else {
			cs[i] = NullComparison(i + 1)
		}
	}
	return trial.NewBatch(cs)
}

// UniformBatch returns n comparisons that are all significant or all not
func UniformBatch(n int, significant bool) trial.Batch {
	pattern := make([]bool, n)
	for i := range pattern {
		pattern[i] = significant
	}
	return BatchOf(pattern...)
}

func mustScore(id int, a, b trial.Sample) trial.Comparison {
	c, err := pseudo.ComparisonFromSamples(id, a, b)
	if err != nil {
		panic(fmt.Sprintf("testkit: fixture %d: %v", id, err))
	}
	return c
}
