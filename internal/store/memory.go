package store

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Memory is an in-process Store for tests and ephemeral runs.
type Memory struct {
	mu     sync.RWMutex
	arrays map[key]array
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{arrays: make(map[key]array)}
}

func (s *Memory) get(k key) (array, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.arrays[k]
	if !ok {
		return array{}, notFound(k)
	}
	return a, nil
}

func (s *Memory) put(k key, a array) error {
	if err := a.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrays[k] = a
	return nil
}

// Observation returns the stored observation num of task.
func (s *Memory) Observation(_ context.Context, task string, num int) ([]float64, error) {
	a, err := s.get(key{task, KindObservation, num})
	if err != nil {
		return nil, err
	}
	return a.vector(), nil
}

// TrueParameters returns the parameters that generated observation num.
func (s *Memory) TrueParameters(_ context.Context, task string, num int) ([]float64, error) {
	a, err := s.get(key{task, KindTrueParameters, num})
	if err != nil {
		return nil, err
	}
	return a.vector(), nil
}

// ReferenceSamples returns the reference posterior samples for observation num.
func (s *Memory) ReferenceSamples(_ context.Context, task string, num int) (*mat.Dense, error) {
	a, err := s.get(key{task, KindReferenceSamples, num})
	if err != nil {
		return nil, err
	}
	return a.dense(), nil
}

func (s *Memory) SaveObservation(_ context.Context, task string, num int, observation []float64) error {
	return s.put(key{task, KindObservation, num}, vectorArray(observation))
}

func (s *Memory) SaveTrueParameters(_ context.Context, task string, num int, theta []float64) error {
	return s.put(key{task, KindTrueParameters, num}, vectorArray(theta))
}

func (s *Memory) SaveReferenceSamples(_ context.Context, task string, num int, samples *mat.Dense) error {
	return s.put(key{task, KindReferenceSamples, num}, denseArray(samples))
}

// Close is a no-op.
func (s *Memory) Close() error { return nil }
