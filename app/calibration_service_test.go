package app

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phackdemo/adapters/rng"
	"phackdemo/adapters/stats/pseudo"
	"phackdemo/domain/calibration"
	"phackdemo/domain/core"
	"phackdemo/internal"
)

func newCalibrationService() *CalibrationService {
	return NewCalibrationService(pseudo.NewGenerator(), rng.NewSeededAdapter(), internal.NewLoggerTo(io.Discard, internal.LogLevelError))
}

func TestCalibrationReportIsIndependentOfWorkers(t *testing.T) {
	svc := newCalibrationService()
	req := calibration.Request{Comparisons: 2500, SampleSize: 30, Seed: 99}

	req.Workers = 1
	serial, err := svc.Report(context.Background(), req)
	require.NoError(t, err)

	req.Workers = 8
	parallel, err := svc.Report(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, serial.SignificantCount, parallel.SignificantCount)
	assert.Equal(t, serial.PValues, parallel.PValues)
}

func TestCalibrationReportShape(t *testing.T) {
	report, err := newCalibrationService().Report(context.Background(), calibration.Request{Comparisons: 3000, SampleSize: 30, Seed: 5})
	require.NoError(t, err)

	assert.Equal(t, float64(report.SignificantCount)/3000, report.Rate)
	assert.True(t, report.Interval.Contains(report.Rate))
	assert.Equal(t, 0.95, report.Interval.Level)

	d := report.PValues
	assert.Greater(t, d.Min, 0.0)
	assert.LessOrEqual(t, d.Max, 2.0)
	assert.LessOrEqual(t, d.Min, d.Q1)
	assert.LessOrEqual(t, d.Q1, d.Median)
	assert.LessOrEqual(t, d.Median, d.Q3)
	assert.LessOrEqual(t, d.Q3, d.Max)
}

func TestCalibrationRateMatchesFormula(t *testing.T) {
	if testing.Short() {
		t.Skip("large sweep")
	}
	report, err := newCalibrationService().Report(context.Background(), calibration.Request{Comparisons: 100000, SampleSize: 30, Seed: 2024})
	require.NoError(t, err)
	assert.InDelta(t, 0.0123, report.Rate, 0.004)
}

func TestCalibrationRejectsBadRequests(t *testing.T) {
	svc := newCalibrationService()
	_, err := svc.Report(context.Background(), calibration.Request{Comparisons: 0, SampleSize: 30})
	assert.True(t, core.IsInvalidConfiguration(err))
	_, err = svc.Report(context.Background(), calibration.Request{Comparisons: 10, SampleSize: -1})
	assert.True(t, core.IsInvalidConfiguration(err))
}

func TestCalibrationCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCalibrationService().Report(ctx, calibration.Request{Comparisons: 5000, SampleSize: 30})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWilsonInterval(t *testing.T) {
	ci := WilsonInterval(0, 100, 0.95)
	assert.InDelta(t, 0.0, ci.Low, 1e-12)
	assert.InDelta(t, 0.037, ci.High, 0.001)

	ci = WilsonInterval(50, 100, 0.95)
	assert.InDelta(t, 0.404, ci.Low, 0.001)
	assert.InDelta(t, 0.596, ci.High, 0.001)

	assert.Equal(t, calibration.Interval{Level: 0.95}, WilsonInterval(0, 0, 0.95))
}
