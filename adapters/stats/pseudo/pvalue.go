// Package pseudo scores two-group comparisons with the demo's simplified
// significance formula. It is not a t-test: p grows with |t| and is only
// kept because the demo's narrative was tuned against it.
package pseudo

import (
	"math"

	"github.com/montanaflynn/stats"

	"phackdemo/domain/core"
	"phackdemo/domain/trial"
)

// decay is the exponent coefficient of the pseudo p-value formula
const decay = 0.3

// Score computes means, pooled-variance t and the pseudo p-value for two
// equal-length samples.
//
//	p = 2 * (1 - min(1, exp(-0.3 * t * sqrt(df/2)))),  df = 2n - 2
//
// Degenerate inputs (zero or undefined standard error, t == 0) score p = 1,
// which keeps p inside (0, 2] and never marks them significant.
func Score(a, b trial.Sample) (trial.Score, error) {
	n := len(a)
	if n == 0 || len(b) != n {
		return trial.Score{}, core.NewConfigurationError("sample size", n)
	}

	meanA, err := stats.Mean(stats.Float64Data(a))
	if err != nil {
		return trial.Score{}, err
	}
	meanB, err := stats.Mean(stats.Float64Data(b))
	if err != nil {
		return trial.Score{}, err
	}

	score := trial.Score{MeanA: meanA, MeanB: meanB, PValue: 1}
	if n < 2 {
		return score, nil
	}

	varA, err := stats.SampleVariance(stats.Float64Data(a))
	if err != nil {
		return trial.Score{}, err
	}
	varB, err := stats.SampleVariance(stats.Float64Data(b))
	if err != nil {
		return trial.Score{}, err
	}

	nf := float64(n)
	df := 2*nf - 2
	pooled := ((nf-1)*varA + (nf-1)*varB) / df
	se := math.Sqrt(pooled * (2 / nf))
	if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return score, nil
	}

	t := math.Abs(meanA-meanB) / se
	if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return score, nil
	}

	score.TStatistic = t
	score.PValue = PValue(t, df)
	if score.PValue <= 0 {
		score.PValue = 1
	}
	return score, nil
}

// PValue applies the pseudo p-value formula to a t statistic and its degrees of freedom
func PValue(t, df float64) float64 {
	return 2 * (1 - math.Min(1, math.Exp(-decay*t*math.Sqrt(df/2))))
}
