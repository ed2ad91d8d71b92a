package task

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/sbi-core/pkg/utils"
)

// ObservationSource looks up stored observations by task name and number.
type ObservationSource interface {
	Observation(ctx context.Context, task string, num int) ([]float64, error)
}

// ObservationStore persists everything Setup produces for an observation.
type ObservationStore interface {
	ObservationSource
	SaveObservation(ctx context.Context, task string, num int, observation []float64) error
	SaveTrueParameters(ctx context.Context, task string, num int, theta []float64) error
	SaveReferenceSamples(ctx context.Context, task string, num int, samples *mat.Dense) error
}

// SetupOptions control observation generation.
type SetupOptions struct {
	// Observations lists the observation numbers to generate.
	// Defaults to 1..NumObservations.
	Observations []int
	// NumReferenceSamples defaults to the task's NumReferencePosteriorSamples.
	NumReferenceSamples int
	MaxAttempts         int
	// Workers bounds parallelism. Zero uses GOMAXPROCS.
	Workers int
}

// SetupResult summarises one generated observation.
type SetupResult struct {
	NumObservation int       `json:"num_observation"`
	Seed           int64     `json:"seed"`
	TrueParameters []float64 `json:"true_parameters"`
	Observation    []float64 `json:"observation"`
	Attempts       int       `json:"attempts"`
	AcceptanceRate float64   `json:"acceptance_rate"`
}

// Setup generates and stores, for each observation number, the true
// parameters, the observation and the reference posterior samples.
//
// Observation k is generated from its own stream seeded with
// ObservationSeed(k), so output does not depend on worker scheduling.
// Results are returned in the order of opts.Observations.
func (t *Task) Setup(ctx context.Context, store ObservationStore, opts SetupOptions) ([]SetupResult, error) {
	meta := t.Metadata()
	nums := opts.Observations
	if len(nums) == 0 {
		nums = make([]int, meta.NumObservations)
		for i := range nums {
			nums[i] = i + 1
		}
	}
	for _, num := range nums {
		if num < 1 {
			return nil, fmt.Errorf("setup: observation number must be >= 1, got %d", num)
		}
	}
	if opts.NumReferenceSamples <= 0 {
		opts.NumReferenceSamples = meta.NumReferencePosteriorSamples
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]SetupResult, len(nums))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, num := range nums {
		g.Go(func() error {
			res, err := t.setupObservation(gctx, store, num, opts)
			if err != nil {
				return fmt.Errorf("setup observation %d: %w", num, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.log.Info("task setup complete", "observations", len(nums), "workers", workers)
	return results, nil
}

func (t *Task) setupObservation(ctx context.Context, store ObservationStore, num int, opts SetupOptions) (*SetupResult, error) {
	seed := t.ObservationSeed(num)
	src := utils.NewRandSource(seed)

	theta, err := t.Prior().Sample(src, 1)
	if err != nil {
		return nil, err
	}
	trueParameters := theta.RawRowView(0)

	observation, err := t.Simulator(nil).SimulateVector(src, trueParameters)
	if err != nil {
		return nil, err
	}

	if err := store.SaveTrueParameters(ctx, Name, num, trueParameters); err != nil {
		return nil, fmt.Errorf("save true parameters: %w", err)
	}
	if err := store.SaveObservation(ctx, Name, num, observation); err != nil {
		return nil, fmt.Errorf("save observation: %w", err)
	}

	ref, err := t.runReference(ctx, src, opts.NumReferenceSamples, observation, num, opts.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if err := store.SaveReferenceSamples(ctx, Name, num, ref.Samples); err != nil {
		return nil, fmt.Errorf("save reference samples: %w", err)
	}

	t.log.Debug("observation generated", "num_observation", num, "seed", seed)
	return &SetupResult{
		NumObservation: num,
		Seed:           seed,
		TrueParameters: trueParameters,
		Observation:    observation,
		Attempts:       ref.Attempts,
		AcceptanceRate: ref.AcceptanceRate,
	}, nil
}
