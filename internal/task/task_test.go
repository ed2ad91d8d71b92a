package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

func newTestTask(t *testing.T, opts ...Option) *Task {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	tk, err := New(opts...)
	require.NoError(t, err)
	return tk
}

func TestNewDefaults(t *testing.T) {
	tk := newTestTask(t)

	cfg := tk.Config()
	assert.Equal(t, 2, cfg.Dim)
	assert.Equal(t, 10.0, cfg.PriorBound)
	assert.Equal(t, []float64{-10, -10}, cfg.Low)
	assert.Equal(t, []float64{10, 10}, cfg.High)
	assert.Equal(t, []float64{1, 1}, cfg.Mixture.LocsFactor)
	assert.Equal(t, []float64{1, 0.1}, cfg.Mixture.Scales)
	assert.Equal(t, []float64{0.5, 0.5}, cfg.Mixture.Weights)
}

func TestConfigReturnsCopy(t *testing.T) {
	tk := newTestTask(t)

	cfg := tk.Config()
	cfg.Low[0] = 99
	cfg.Mixture.Scales[0] = 99

	fresh := tk.Config()
	assert.Equal(t, -10.0, fresh.Low[0])
	assert.Equal(t, 1.0, fresh.Mixture.Scales[0])
}

func TestWithMixtureCopiesInput(t *testing.T) {
	scales := []float64{2, 0.5}
	tk := newTestTask(t, WithMixture([]float64{1, 2}, scales, []float64{0.3, 0.7}))
	scales[0] = -1

	assert.Equal(t, []float64{2, 0.5}, tk.Config().Mixture.Scales)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero dim", []Option{WithDim(0)}},
		{"negative dim", []Option{WithDim(-3)}},
		{"zero bound", []Option{WithPriorBound(0)}},
		{"negative bound", []Option{WithPriorBound(-1)}},
		{"mismatched mixture", []Option{WithMixture([]float64{1}, []float64{1, 1}, []float64{1, 1})}},
		{"empty mixture", []Option{WithMixture(nil, nil, nil)}},
		{"zero scale", []Option{WithMixture([]float64{1, 1}, []float64{0, 1}, []float64{1, 1})}},
		{"negative weight", []Option{WithMixture([]float64{1, 1}, []float64{1, 1}, []float64{-1, 2})}},
		{"zero weights", []Option{WithMixture([]float64{1, 1}, []float64{1, 1}, []float64{0, 0})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestMetadata(t *testing.T) {
	tk := newTestTask(t, WithDim(5))
	meta := tk.Metadata()

	assert.Equal(t, Name, meta.Name)
	assert.Equal(t, 5, meta.DimParameters)
	assert.Equal(t, 5, meta.DimData)
	assert.Equal(t, 10, meta.NumObservations)
	assert.Equal(t, 10000, meta.NumReferencePosteriorSamples)
	assert.Equal(t, []int{100, 1000, 10000, 100000, 1000000}, meta.NumSimulations)
}

func TestObservationSeed(t *testing.T) {
	tk := newTestTask(t)
	assert.Equal(t, int64(1_000_000), tk.ObservationSeed(1))
	assert.Equal(t, int64(1_000_009), tk.ObservationSeed(10))

	tk = newTestTask(t, WithObservationSeed(7))
	assert.Equal(t, int64(9), tk.ObservationSeed(3))
}

func TestSentinelErrorsDistinct(t *testing.T) {
	sentinels := []error{
		ErrObservationArgs, ErrSimulationBudgetExceeded, ErrMaxAttemptsExceeded,
		ErrSamplingCancelled, ErrDimensionMismatch, ErrInvalidObservation,
		ErrInvalidCount, ErrInvalidConfig, ErrNoObservationSource,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
				assert.NotEqual(t, a.Error(), b.Error())
			}
		}
	}
}
