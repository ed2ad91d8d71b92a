// Package store persists task artifacts: observations, the parameters that
// generated them, and reference posterior samples.
package store

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNotFound is returned when no artifact is stored under the requested key.
var ErrNotFound = errors.New("not found")

// Artifact kinds.
const (
	KindObservation      = "observation"
	KindTrueParameters   = "true_parameters"
	KindReferenceSamples = "reference_posterior_samples"
)

// Store reads and writes task artifacts keyed by task name, kind and
// observation number. Implementations are safe for concurrent use.
type Store interface {
	Observation(ctx context.Context, task string, num int) ([]float64, error)
	TrueParameters(ctx context.Context, task string, num int) ([]float64, error)
	ReferenceSamples(ctx context.Context, task string, num int) (*mat.Dense, error)

	SaveObservation(ctx context.Context, task string, num int, observation []float64) error
	SaveTrueParameters(ctx context.Context, task string, num int, theta []float64) error
	SaveReferenceSamples(ctx context.Context, task string, num int, samples *mat.Dense) error

	Close() error
}

// key identifies one stored array.
type key struct {
	task string
	kind string
	num  int
}

func (k key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.task, k.kind, k.num)
}

// array is a row-major matrix as stored. Vectors are stored as one row.
type array struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func vectorArray(v []float64) array {
	return array{Rows: 1, Cols: len(v), Data: append([]float64(nil), v...)}
}

func denseArray(m *mat.Dense) array {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return array{Rows: r, Cols: c, Data: data}
}

func (a array) validate() error {
	if a.Rows < 1 || a.Cols < 1 || len(a.Data) != a.Rows*a.Cols {
		return fmt.Errorf("store: malformed array %dx%d with %d values", a.Rows, a.Cols, len(a.Data))
	}
	return nil
}

func (a array) vector() []float64 {
	return append([]float64(nil), a.Data...)
}

func (a array) dense() *mat.Dense {
	return mat.NewDense(a.Rows, a.Cols, append([]float64(nil), a.Data...))
}

func notFound(k key) error {
	return fmt.Errorf("%s: %w", k, ErrNotFound)
}
