package app

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"phackdemo/domain/calibration"
	"phackdemo/domain/core"
	"phackdemo/domain/trial"
	"phackdemo/internal"
	"phackdemo/ports"
)

const (
	calibrationChunk   = 1000
	calibrationWorkers = 4
	confidenceLevel    = 0.95
)

// CalibrationService measures how often the generator produces "significant"
// comparisons when there is no real effect.
type CalibrationService struct {
	generator ports.BatchGeneratorPort
	rngPort   ports.RNGPort
	logger    *internal.Logger
}

func NewCalibrationService(generator ports.BatchGeneratorPort, rngPort ports.RNGPort, logger *internal.Logger) *CalibrationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &CalibrationService{
		generator: generator,
		rngPort:   rngPort,
		logger:    logger.With("Calibration"),
	}
}

// Report generates req.Comparisons comparisons in fixed-size chunks, each on
// its own seeded stream, so the result does not depend on req.Workers.
func (s *CalibrationService) Report(ctx context.Context, req calibration.Request) (calibration.Report, error) {
	if req.Comparisons <= 0 {
		return calibration.Report{}, core.NewConfigurationError("comparisons", req.Comparisons)
	}
	if req.SampleSize <= 0 {
		return calibration.Report{}, core.NewConfigurationError("sample size", req.SampleSize)
	}
	if req.Workers <= 0 {
		req.Workers = calibrationWorkers
	}

	chunks := (req.Comparisons + calibrationChunk - 1) / calibrationChunk
	pvalues := make([]float64, req.Comparisons)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Workers)
	for i := 0; i < chunks; i++ {
		g.Go(func() error {
			start := i * calibrationChunk
			size := min(calibrationChunk, req.Comparisons-start)

			rng, err := s.rngPort.SeededStream(gctx, fmt.Sprintf("calibration-%d", i), req.Seed)
			if err != nil {
				return err
			}
			batch, err := s.generator.GenerateBatch(gctx, rng, size, req.SampleSize)
			if err != nil {
				return err
			}
			for j, c := range batch.Comparisons() {
				pvalues[start+j] = c.PValue()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return calibration.Report{}, err
	}

	significant := 0
	for _, p := range pvalues {
		if p < trial.SignificanceThreshold {
			significant++
		}
	}

	dist, err := distribution(pvalues)
	if err != nil {
		return calibration.Report{}, err
	}

	report := calibration.Report{
		Request:          req,
		SignificantCount: significant,
		Rate:             float64(significant) / float64(req.Comparisons),
		Interval:         WilsonInterval(significant, req.Comparisons, confidenceLevel),
		PValues:          dist,
	}
	s.logger.Info("%d/%d significant (%.2f%%, %.0f%% CI %.2f%%-%.2f%%)",
		significant, req.Comparisons, report.Rate*100, confidenceLevel*100,
		report.Interval.Low*100, report.Interval.High*100)
	return report, nil
}

// WilsonInterval is the Wilson score interval for k successes out of n
func WilsonInterval(k, n int, level float64) calibration.Interval {
	if n <= 0 {
		return calibration.Interval{Level: level}
	}
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	nf := float64(n)
	phat := float64(k) / nf
	z2 := z * z

	denom := 1 + z2/nf
	center := (phat + z2/(2*nf)) / denom
	half := z * math.Sqrt(phat*(1-phat)/nf+z2/(4*nf*nf)) / denom

	return calibration.Interval{
		Low:   math.Max(0, center-half),
		High:  math.Min(1, center+half),
		Level: level,
	}
}

func distribution(values []float64) (calibration.Distribution, error) {
	data := stats.Float64Data(values)
	var (
		d   calibration.Distribution
		err error
	)
	if d.Min, err = data.Min(); err != nil {
		return d, err
	}
	if d.Max, err = data.Max(); err != nil {
		return d, err
	}
	if d.Mean, err = data.Mean(); err != nil {
		return d, err
	}
	if d.Median, err = data.Median(); err != nil {
		return d, err
	}
	if d.Q1, err = data.Percentile(25); err != nil {
		return d, err
	}
	if d.Q3, err = data.Percentile(75); err != nil {
		return d, err
	}
	return d, nil
}
