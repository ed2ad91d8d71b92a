package task

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is the box-uniform prior over the mean parameter.
type Prior struct {
	low  []float64
	high []float64
}

// Prior returns the task's prior distribution.
func (t *Task) Prior() Prior {
	return Prior{low: t.low, high: t.high}
}

// Dim returns the number of parameter coordinates.
func (p Prior) Dim() int { return len(p.low) }

// Sample draws n independent parameter vectors, one per row.
func (p Prior) Sample(src rand.Source, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prior sample: %w (got %d)", ErrInvalidCount, n)
	}
	dim := p.Dim()
	if n > math.MaxInt/dim {
		return nil, fmt.Errorf("prior sample: %w (%d rows of %d values overflow)", ErrInvalidCount, n, dim)
	}
	data := make([]float64, n*dim)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			data[i*dim+j] = distuv.Uniform{Min: p.low[j], Max: p.high[j], Src: src}.Rand()
		}
	}
	return mat.NewDense(n, dim, data), nil
}

// LogProb returns the joint log density of theta. It is -Inf outside the
// support, for NaN coordinates, and when theta has the wrong length.
func (p Prior) LogProb(theta []float64) float64 {
	if len(theta) != p.Dim() {
		return math.Inf(-1)
	}
	lp := 0.0
	for j, v := range theta {
		if math.IsNaN(v) {
			return math.Inf(-1)
		}
		lp += distuv.Uniform{Min: p.low[j], Max: p.high[j]}.LogProb(v)
	}
	return lp
}

// Contains reports whether theta lies in the prior's support.
func (p Prior) Contains(theta []float64) bool {
	return !math.IsInf(p.LogProb(theta), 0)
}
