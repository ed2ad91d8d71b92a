// Package task implements the Gaussian-mixture benchmark task: a uniform prior
// over a mean parameter, a two-component Gaussian mixture simulator, and a
// rejection-sampled reference posterior.
//
// All sampling takes an explicit rand.Source; the package keeps no global
// random state.
package task

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

// Name is the registry name of the task.
const Name = "gaussian_mixture"

const (
	defaultDim        = 2
	defaultPriorBound = 10.0

	// first observation seed; observation k uses defaultObservationSeed + k - 1
	defaultObservationSeed = 1_000_000
)

// Metadata describes the task the way benchmark tooling lists it.
type Metadata struct {
	Name                         string `json:"name"`
	DisplayName                  string `json:"display_name"`
	DimParameters                int    `json:"dim_parameters"`
	DimData                      int    `json:"dim_data"`
	NumObservations              int    `json:"num_observations"`
	NumPosteriorSamples          int    `json:"num_posterior_samples"`
	NumReferencePosteriorSamples int    `json:"num_reference_posterior_samples"`
	NumSimulations               []int  `json:"num_simulations"`
}

// Mixture holds the simulator's per-component parameters.
type Mixture struct {
	LocsFactor []float64 `json:"locs_factor"`
	Scales     []float64 `json:"scales"`
	Weights    []float64 `json:"weights"`
}

// Config is the immutable configuration of a Task.
type Config struct {
	Dim        int       `json:"dim"`
	PriorBound float64   `json:"prior_bound"`
	Low        []float64 `json:"low"`
	High       []float64 `json:"high"`
	Mixture    Mixture   `json:"mixture"`
}

// Task is the Gaussian-mixture benchmark task. It is immutable after New and
// safe for concurrent use; randomness is supplied per call.
type Task struct {
	dim        int
	priorBound float64
	low        []float64
	high       []float64
	mixture    Mixture

	observationSeed int64
	source          ObservationSource
	metrics         *metrics.Collector
	log             *slog.Logger
}

// Option configures a Task.
type Option func(*Task)

// WithDim sets the dimensionality of parameters and data.
func WithDim(dim int) Option {
	return func(t *Task) { t.dim = dim }
}

// WithPriorBound sets b for the uniform prior on [-b, b]^dim.
func WithPriorBound(bound float64) Option {
	return func(t *Task) { t.priorBound = bound }
}

// WithMixture replaces the simulator's mixture components.
func WithMixture(locsFactor, scales, weights []float64) Option {
	return func(t *Task) {
		t.mixture = Mixture{
			LocsFactor: slices.Clone(locsFactor),
			Scales:     slices.Clone(scales),
			Weights:    slices.Clone(weights),
		}
	}
}

// WithObservationSource sets where observations are looked up by number.
func WithObservationSource(src ObservationSource) Option {
	return func(t *Task) { t.source = src }
}

// WithObservationSeed sets the seed of observation 1; observation k uses seed+k-1.
func WithObservationSeed(seed int64) Option {
	return func(t *Task) { t.observationSeed = seed }
}

// WithMetrics reports simulator and sampler activity to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(t *Task) { t.metrics = c }
}

// WithLogger sets the logger. Defaults to logger.ForTask(Name).
func WithLogger(l *slog.Logger) Option {
	return func(t *Task) { t.log = l }
}

// New creates a task. Defaults: dim 2, prior bound 10, mixture
// locs_factor [1, 1], scales [1, 0.1], weights [0.5, 0.5].
func New(opts ...Option) (*Task, error) {
	t := &Task{
		dim:        defaultDim,
		priorBound: defaultPriorBound,
		mixture: Mixture{
			LocsFactor: []float64{1.0, 1.0},
			Scales:     []float64{1.0, 0.1},
			Weights:    []float64{0.5, 0.5},
		},
		observationSeed: defaultObservationSeed,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	if t.log == nil {
		t.log = logger.ForTask(Name)
	}

	t.low = make([]float64, t.dim)
	t.high = make([]float64, t.dim)
	for i := range t.low {
		t.low[i] = -t.priorBound
		t.high[i] = t.priorBound
	}
	return t, nil
}

func (t *Task) validate() error {
	if t.dim <= 0 {
		return fmt.Errorf("%w: dim must be positive, got %d", ErrInvalidConfig, t.dim)
	}
	if !(t.priorBound > 0) || math.IsInf(t.priorBound, 0) {
		return fmt.Errorf("%w: prior bound must be positive and finite, got %v", ErrInvalidConfig, t.priorBound)
	}
	m := t.mixture
	n := len(m.Weights)
	if n == 0 || len(m.LocsFactor) != n || len(m.Scales) != n {
		return fmt.Errorf("%w: mixture needs equal, non-empty locs_factor/scales/weights (got %d/%d/%d)",
			ErrInvalidConfig, len(m.LocsFactor), len(m.Scales), n)
	}
	total := 0.0
	for i := 0; i < n; i++ {
		if !(m.Scales[i] > 0) {
			return fmt.Errorf("%w: component %d scale must be positive", ErrInvalidConfig, i)
		}
		if m.Weights[i] < 0 {
			return fmt.Errorf("%w: component %d weight is negative", ErrInvalidConfig, i)
		}
		total += m.Weights[i]
	}
	if total <= 0 {
		return fmt.Errorf("%w: mixture weights sum to zero", ErrInvalidConfig)
	}
	return nil
}

// Dim returns the dimensionality of parameters and data.
func (t *Task) Dim() int { return t.dim }

// PriorBound returns b for the prior on [-b, b]^dim.
func (t *Task) PriorBound() float64 { return t.priorBound }

// Config returns a copy of the task configuration.
func (t *Task) Config() Config {
	return Config{
		Dim:        t.dim,
		PriorBound: t.priorBound,
		Low:        slices.Clone(t.low),
		High:       slices.Clone(t.high),
		Mixture: Mixture{
			LocsFactor: slices.Clone(t.mixture.LocsFactor),
			Scales:     slices.Clone(t.mixture.Scales),
			Weights:    slices.Clone(t.mixture.Weights),
		},
	}
}

// Metadata returns the benchmark metadata of the task.
func (t *Task) Metadata() Metadata {
	return Metadata{
		Name:                         Name,
		DisplayName:                  "Gaussian Mixture",
		DimParameters:                t.dim,
		DimData:                      t.dim,
		NumObservations:              10,
		NumPosteriorSamples:          10000,
		NumReferencePosteriorSamples: 10000,
		NumSimulations:               []int{100, 1000, 10000, 100000, 1000000},
	}
}

// ObservationSeed returns the seed used to generate observation num (1-based).
func (t *Task) ObservationSeed(num int) int64 {
	return t.observationSeed + int64(num) - 1
}
