package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/utils"
)

var (
	_ task.ObservationStore = (*Memory)(nil)
	_ task.ObservationStore = (*SQLite)(nil)
	_ Store                 = (*Memory)(nil)
	_ Store                 = (*SQLite)(nil)
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "sbi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	mem, err := OpenSQLite(context.Background(), MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	return map[string]Store{
		"memory":        NewMemory(),
		"sqlite":        sq,
		"sqlite-memory": mem,
	}
}

func TestStoreVectors(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", 1, []float64{0.5, -1.25}))
			require.NoError(t, s.SaveTrueParameters(ctx, "gaussian_mixture", 1, []float64{0.4, -1.3}))

			obs, err := s.Observation(ctx, "gaussian_mixture", 1)
			require.NoError(t, err)
			assert.Equal(t, []float64{0.5, -1.25}, obs)

			theta, err := s.TrueParameters(ctx, "gaussian_mixture", 1)
			require.NoError(t, err)
			assert.Equal(t, []float64{0.4, -1.3}, theta)
		})
	}
}

func TestStoreReferenceSamples(t *testing.T) {
	ctx := context.Background()
	samples := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveReferenceSamples(ctx, "gaussian_mixture", 2, samples))

			got, err := s.ReferenceSamples(ctx, "gaussian_mixture", 2)
			require.NoError(t, err)
			assert.True(t, mat.Equal(samples, got))
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", 1, []float64{1, 1}))
			require.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", 1, []float64{2, 2, 2}))

			obs, err := s.Observation(ctx, "gaussian_mixture", 1)
			require.NoError(t, err)
			assert.Equal(t, []float64{2, 2, 2}, obs)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", 1, []float64{1}))

			_, err := s.Observation(ctx, "gaussian_mixture", 2)
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = s.Observation(ctx, "other_task", 1)
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = s.TrueParameters(ctx, "gaussian_mixture", 1)
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = s.ReferenceSamples(ctx, "gaussian_mixture", 1)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStoreRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.SaveObservation(ctx, "gaussian_mixture", 1, nil))
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	in := []float64{1, 2}
	require.NoError(t, s.SaveObservation(ctx, "t", 1, in))
	in[0] = 100

	out, err := s.Observation(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, out)

	out[1] = 100
	again, err := s.Observation(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, again)
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sbi.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", 4, []float64{3.5, -0.125}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	obs, err := s.Observation(ctx, "gaussian_mixture", 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, -0.125}, obs)
}

func TestStoreConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 1; i <= 8; i++ {
				wg.Add(1)
				go func(num int) {
					defer wg.Done()
					assert.NoError(t, s.SaveObservation(ctx, "gaussian_mixture", num, []float64{float64(num)}))
				}(i)
			}
			wg.Wait()

			for i := 1; i <= 8; i++ {
				obs, err := s.Observation(ctx, "gaussian_mixture", i)
				require.NoError(t, err)
				assert.Equal(t, []float64{float64(i)}, obs)
			}
		})
	}
}

func TestSetupIntoSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "sbi.db"))
	require.NoError(t, err)
	defer s.Close()

	tk, err := task.New(task.WithObservationSource(s))
	require.NoError(t, err)
	results, err := tk.Setup(ctx, s, task.SetupOptions{Observations: []int{1, 2}, NumReferenceSamples: 10, Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	samples, err := s.ReferenceSamples(ctx, task.Name, 2)
	require.NoError(t, err)
	rows, cols := samples.Dims()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 2, cols)

	res, err := tk.SampleReferencePosterior(ctx, utils.NewRandSource(1), 5, task.ByNumber(1), task.ReferenceOptions{})
	require.NoError(t, err)
	assert.Equal(t, results[0].Observation, res.Observation)
}
