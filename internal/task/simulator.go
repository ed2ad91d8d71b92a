package task

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Unlimited is the Remaining value of a simulator without a budget.
const Unlimited = -1

// Simulator draws observations from the Gaussian mixture likelihood and
// enforces an optional simulation budget. The budget counts simulations,
// one per parameter row, across all calls. It is safe for concurrent use.
type Simulator struct {
	task     *Task
	maxCalls int64 // Unlimited when no budget
	calls    atomic.Int64
}

// Simulator returns a simulator for the task. A nil maxCalls means no budget.
func (t *Task) Simulator(maxCalls *int) *Simulator {
	s := &Simulator{task: t, maxCalls: Unlimited}
	if maxCalls != nil {
		s.maxCalls = int64(*maxCalls)
	}
	return s
}

// Calls returns the number of simulations run so far.
func (s *Simulator) Calls() int {
	return int(s.calls.Load())
}

// Remaining returns the simulations left in the budget, or Unlimited.
func (s *Simulator) Remaining() int {
	if s.maxCalls == Unlimited {
		return Unlimited
	}
	return int(s.maxCalls - s.calls.Load())
}

// reserve claims n simulations from the budget.
func (s *Simulator) reserve(n int) bool {
	for {
		cur := s.calls.Load()
		next := cur + int64(n)
		if s.maxCalls != Unlimited && next > s.maxCalls {
			return false
		}
		if s.calls.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Simulate returns one observation per row of theta. For every row a
// mixture component k is drawn from the mixture weights, then each
// coordinate is drawn from Normal(locs_factor[k]*theta, scales[k]).
// The output has the same shape as theta.
func (s *Simulator) Simulate(src rand.Source, theta mat.Matrix) (*mat.Dense, error) {
	rows, cols := theta.Dims()
	if cols != s.task.dim {
		return nil, fmt.Errorf("simulate: %w: parameters have %d columns, task dim is %d", ErrDimensionMismatch, cols, s.task.dim)
	}
	if rows == 0 {
		return nil, fmt.Errorf("simulate: %w (got 0 rows)", ErrInvalidCount)
	}
	if !s.reserve(rows) {
		s.task.metrics.RecordBudgetExceeded(Name)
		return nil, fmt.Errorf("simulate %d rows after %d of %d: %w", rows, s.Calls(), s.maxCalls, ErrSimulationBudgetExceeded)
	}
	s.task.metrics.RecordSimulations(Name, rows)

	m := s.task.mixture
	components := distuv.NewCategorical(m.Weights, src)
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	loc := make([]float64, cols)
	for i := 0; i < rows; i++ {
		k := int(components.Rand())
		mat.Row(row, i, theta)
		floats.ScaleTo(loc, m.LocsFactor[k], row)
		for j := range loc {
			out.Set(i, j, distuv.Normal{Mu: loc[j], Sigma: m.Scales[k], Src: src}.Rand())
		}
	}
	return out, nil
}

// SimulateVector simulates a single parameter vector, treating it as a
// one-row batch.
func (s *Simulator) SimulateVector(src rand.Source, theta []float64) ([]float64, error) {
	if len(theta) == 0 {
		return nil, fmt.Errorf("simulate: %w (empty parameter vector)", ErrInvalidCount)
	}
	out, err := s.Simulate(src, mat.NewDense(1, len(theta), theta))
	if err != nil {
		return nil, err
	}
	return out.RawRowView(0), nil
}
