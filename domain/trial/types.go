package trial

import (
	"encoding/json"

	"phackdemo/domain/core"
)

// Defaults used by the original demo
const (
	DefaultBatchSize  = 20
	DefaultSampleSize = 30
	DefaultTrialCap   = 20

	// SignificanceThreshold is the conventional p < 0.05 cutoff
	SignificanceThreshold = 0.05

	// Measurements are drawn uniformly from [SampleLow, SampleHigh)
	SampleLow  = 0.0
	SampleHigh = 100.0
)

// Sample is an ordered series of measurements for one group
type Sample []float64

// Clone returns an independent copy
func (s Sample) Clone() Sample {
	if s == nil {
		return nil
	}
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// Score holds the statistics computed for one two-group comparison
type Score struct {
	MeanA      float64 `json:"mean_a"`
	MeanB      float64 `json:"mean_b"`
	TStatistic float64 `json:"t_statistic"`
	PValue     float64 `json:"p_value"`
}

// Comparison is one synthetic dataset: two groups drawn from the same
// distribution plus their pseudo p-value.
// INVARIANTS:
// - immutable after NewComparison (accessors return copies)
// - Significant() is always derived from PValue()
type Comparison struct {
	id      int
	sampleA Sample
	sampleB Sample
	score   Score
}

// NewComparison builds a comparison, copying both samples
func NewComparison(id int, a, b Sample, score Score) Comparison {
	return Comparison{
		id:      id,
		sampleA: a.Clone(),
		sampleB: b.Clone(),
		score:   score,
	}
}

func (c Comparison) ID() int             { return c.id }
func (c Comparison) SampleA() Sample     { return c.sampleA.Clone() }
func (c Comparison) SampleB() Sample     { return c.sampleB.Clone() }
func (c Comparison) SampleSize() int     { return len(c.sampleA) }
func (c Comparison) MeanA() float64      { return c.score.MeanA }
func (c Comparison) MeanB() float64      { return c.score.MeanB }
func (c Comparison) TStatistic() float64 { return c.score.TStatistic }
func (c Comparison) PValue() float64     { return c.score.PValue }
func (c Comparison) Score() Score        { return c.score }

// Significant reports whether the pseudo p-value is below the threshold
func (c Comparison) Significant() bool {
	return c.score.PValue < SignificanceThreshold
}

// ChartBar is one bar of the per-comparison group-mean chart
type ChartBar struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartData returns the group means in display order
func (c Comparison) ChartData() []ChartBar {
	return []ChartBar{
		{Name: "Group A", Value: c.score.MeanA},
		{Name: "Group B", Value: c.score.MeanB},
	}
}

type comparisonJSON struct {
	ID          int        `json:"id"`
	SampleA     Sample     `json:"sample_a"`
	SampleB     Sample     `json:"sample_b"`
	MeanA       float64    `json:"mean_a"`
	MeanB       float64    `json:"mean_b"`
	TStatistic  float64    `json:"t_statistic"`
	PValue      float64    `json:"p_value"`
	Significant bool       `json:"significant"`
	ChartData   []ChartBar `json:"chart_data"`
}

// MarshalJSON exposes the comparison with its derived fields
func (c Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(comparisonJSON{
		ID:          c.id,
		SampleA:     c.sampleA,
		SampleB:     c.sampleB,
		MeanA:       c.score.MeanA,
		MeanB:       c.score.MeanB,
		TStatistic:  c.score.TStatistic,
		PValue:      c.score.PValue,
		Significant: c.Significant(),
		ChartData:   c.ChartData(),
	})
}

// Batch is the ordered set of comparisons a run draws from. Batches are
// replaced wholesale, never edited.
type Batch struct {
	comparisons []Comparison
	sampleSize  int
	fingerprint core.Hash
}

// NewBatch wraps generated comparisons and fingerprints their samples
func NewBatch(comparisons []Comparison) Batch {
	cs := make([]Comparison, len(comparisons))
	copy(cs, comparisons)

	series := make([][]float64, 0, 2*len(cs))
	sampleSize := 0
	for _, c := range cs {
		series = append(series, c.sampleA, c.sampleB)
		if sampleSize == 0 {
			sampleSize = len(c.sampleA)
		}
	}

	return Batch{
		comparisons: cs,
		sampleSize:  sampleSize,
		fingerprint: core.HashFloats(series...),
	}
}

func (b Batch) Len() int               { return len(b.comparisons) }
func (b Batch) IsEmpty() bool          { return len(b.comparisons) == 0 }
func (b Batch) At(i int) Comparison    { return b.comparisons[i] }
func (b Batch) SampleSize() int        { return b.sampleSize }
func (b Batch) Fingerprint() core.Hash { return b.fingerprint }

// Comparisons returns a copy of the batch contents
func (b Batch) Comparisons() []Comparison {
	out := make([]Comparison, len(b.comparisons))
	copy(out, b.comparisons)
	return out
}

// SignificantCount counts comparisons below the threshold
func (b Batch) SignificantCount() int {
	n := 0
	for _, c := range b.comparisons {
		if c.Significant() {
			n++
		}
	}
	return n
}

// MarshalJSON exposes the batch for presentation layers
func (b Batch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fingerprint core.Hash    `json:"fingerprint"`
		SampleSize  int          `json:"sample_size"`
		Comparisons []Comparison `json:"comparisons"`
	}{
		Fingerprint: b.fingerprint,
		SampleSize:  b.sampleSize,
		Comparisons: b.comparisons,
	})
}
