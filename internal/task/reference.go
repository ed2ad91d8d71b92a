package task

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
)

const (
	// ctxCheckInterval is how many attempts pass between context checks.
	ctxCheckInterval = 1024
	// initialRows caps the rows reserved up front; larger runs grow as they accept.
	initialRows = 1024
)

// ObservationRef selects the observation to condition on: either a stored
// observation by number or a literal observation vector, never both.
type ObservationRef struct {
	Num         *int
	Observation []float64
}

// ByNumber refers to stored observation num (1-based).
func ByNumber(num int) ObservationRef {
	return ObservationRef{Num: &num}
}

// ByValue refers to a literal observation.
func ByValue(observation []float64) ObservationRef {
	return ObservationRef{Observation: observation}
}

// Validate checks that exactly one of Num and Observation is set.
func (r ObservationRef) Validate() error {
	hasNum := r.Num != nil
	hasObs := r.Observation != nil
	if hasNum == hasObs {
		return ErrObservationArgs
	}
	return nil
}

// ReferenceOptions bound the rejection sampler.
type ReferenceOptions struct {
	// MaxAttempts caps the number of candidates drawn. Zero means no cap;
	// the context is then the only bound.
	MaxAttempts int
}

// ReferenceResult is the output of a reference posterior run.
type ReferenceResult struct {
	Samples        *mat.Dense
	Attempts       int
	AcceptanceRate float64
	// NumObservation is the stored observation number, or 0 for a literal observation.
	NumObservation int
	Observation    []float64
}

// SampleReferencePosterior draws numSamples rows from the reference
// posterior of the observation selected by ref.
//
// For every attempt a mixture component k is drawn from the mixture weights
// and a candidate from Normal(locs_factor[k]*x_o, scales[k]). Candidates
// outside the prior support, or identical to an accepted sample, are rejected.
// The acceptance rate is numSamples/attempts.
func (t *Task) SampleReferencePosterior(ctx context.Context, src rand.Source, numSamples int, ref ObservationRef, opts ReferenceOptions) (*ReferenceResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("reference posterior: %w", err)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("reference posterior: %w (got %d)", ErrInvalidCount, numSamples)
	}
	if numSamples > math.MaxInt/t.dim {
		return nil, fmt.Errorf("reference posterior: %w (%d rows of %d values overflow)", ErrInvalidCount, numSamples, t.dim)
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("reference posterior: %w: max attempts cannot be negative", ErrInvalidConfig)
	}

	observation, numObservation, err := t.resolveObservation(ctx, ref)
	if err != nil {
		return nil, err
	}

	return t.runReference(ctx, src, numSamples, observation, numObservation, opts.MaxAttempts)
}

// runReference runs the rejection sampler against a resolved observation and
// reports the acceptance rate.
func (t *Task) runReference(ctx context.Context, src rand.Source, numSamples int, observation []float64, numObservation, maxAttempts int) (*ReferenceResult, error) {
	start := time.Now()
	samples, attempts, err := t.rejectionSample(ctx, src, numSamples, observation, maxAttempts)
	if err != nil {
		return nil, err
	}

	rate := float64(numSamples) / float64(attempts)
	t.metrics.RecordReferenceRun(Name, metrics.ObservationLabel(numObservation), attempts, numSamples, time.Since(start))
	t.log.Info("reference posterior acceptance rate",
		"num_observation", numObservation,
		"acceptance_rate", rate,
		"attempts", attempts,
		"num_samples", numSamples,
	)

	return &ReferenceResult{
		Samples:        samples,
		Attempts:       attempts,
		AcceptanceRate: rate,
		NumObservation: numObservation,
		Observation:    observation,
	}, nil
}

func (t *Task) resolveObservation(ctx context.Context, ref ObservationRef) ([]float64, int, error) {
	var (
		observation []float64
		num         int
	)
	if ref.Num != nil {
		num = *ref.Num
		if num < 1 {
			return nil, 0, fmt.Errorf("reference posterior: observation number must be >= 1, got %d: %w", num, ErrObservationArgs)
		}
		if t.source == nil {
			return nil, 0, fmt.Errorf("reference posterior: observation %d: %w", num, ErrNoObservationSource)
		}
		obs, err := t.source.Observation(ctx, Name, num)
		if err != nil {
			return nil, 0, fmt.Errorf("reference posterior: load observation %d: %w", num, err)
		}
		observation = obs
	} else {
		observation = slices.Clone(ref.Observation)
	}

	if len(observation) != t.dim {
		return nil, 0, fmt.Errorf("reference posterior: %w: observation has %d values, task dim is %d",
			ErrDimensionMismatch, len(observation), t.dim)
	}
	for _, v := range observation {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("reference posterior: %w", ErrInvalidObservation)
		}
	}
	return observation, num, nil
}

func (t *Task) rejectionSample(ctx context.Context, src rand.Source, numSamples int, observation []float64, maxAttempts int) (*mat.Dense, int, error) {
	var (
		prior      = t.Prior()
		m          = t.mixture
		components = distuv.NewCategorical(m.Weights, src)
		reserve    = min(numSamples, initialRows)
		accepted   = make([]float64, 0, reserve*t.dim)
		seen       = make(map[string]struct{}, reserve)
		loc        = make([]float64, t.dim)
		candidate  = make([]float64, t.dim)
		attempts   = 0
	)

	for len(seen) < numSamples {
		if maxAttempts > 0 && attempts >= maxAttempts {
			return nil, attempts, fmt.Errorf("reference posterior: %w: %d accepted of %d after %d attempts",
				ErrMaxAttemptsExceeded, len(seen), numSamples, attempts)
		}
		if attempts%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, attempts, fmt.Errorf("reference posterior: %w after %d attempts: %w", ErrSamplingCancelled, attempts, err)
			}
		}
		attempts++

		k := int(components.Rand())
		floats.ScaleTo(loc, m.LocsFactor[k], observation)
		for j := range candidate {
			candidate[j] = distuv.Normal{Mu: loc[j], Sigma: m.Scales[k], Src: src}.Rand()
		}

		if !prior.Contains(candidate) {
			continue
		}
		key := rowKey(candidate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		accepted = append(accepted, candidate...)
	}

	return mat.NewDense(numSamples, t.dim, accepted), attempts, nil
}

// rowKey encodes a vector's exact bit pattern for duplicate detection.
// Negative zero is folded onto zero so that keys agree with ==.
func rowKey(v []float64) string {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		if x == 0 {
			x = 0
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return string(buf)
}
