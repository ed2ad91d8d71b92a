package simd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sbi-core/internal/store"
	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/utils"
)

// PriorRequest asks for prior samples. A missing seed uses a time-based stream.
type PriorRequest struct {
	NumSamples int    `json:"num_samples"`
	Seed       *int64 `json:"seed,omitempty"`
}

// SamplesResponse carries prior draws and the seed that produced them.
type SamplesResponse struct {
	Samples [][]float64 `json:"samples"`
	Seed    int64       `json:"seed"`
}

// SimulateRequest asks for one observation per parameter row.
type SimulateRequest struct {
	Parameters [][]float64 `json:"parameters"`
	Seed       *int64      `json:"seed,omitempty"`
}

// SimulateResponse carries simulated observations.
type SimulateResponse struct {
	Observations [][]float64 `json:"observations"`
	Seed         int64       `json:"seed"`
	// Remaining is the simulation budget left, -1 when unlimited.
	Remaining int `json:"remaining_simulations"`
}

// ReferenceRequest asks for reference posterior samples. Exactly one of
// NumObservation and Observation must be set.
type ReferenceRequest struct {
	NumSamples     int       `json:"num_samples"`
	Seed           *int64    `json:"seed,omitempty"`
	NumObservation *int      `json:"num_observation,omitempty"`
	Observation    []float64 `json:"observation,omitempty"`
	MaxAttempts    int       `json:"max_attempts,omitempty"`
}

// ReferenceResponse carries reference posterior samples and sampler statistics.
type ReferenceResponse struct {
	Samples        [][]float64     `json:"samples"`
	Attempts       int             `json:"attempts"`
	AcceptanceRate float64         `json:"acceptance_rate"`
	NumObservation int             `json:"num_observation,omitempty"`
	Observation    []float64       `json:"observation"`
	Seed           int64           `json:"seed"`
	Summary        []utils.Summary `json:"summary"`
}

// ObservationResponse is a stored observation and, when known, its true parameters.
type ObservationResponse struct {
	NumObservation int       `json:"num_observation"`
	Observation    []float64 `json:"observation"`
	TrueParameters []float64 `json:"true_parameters,omitempty"`
}

// DefaultMaxSamples is the per-request limit used when ServiceOptions sets none.
const DefaultMaxSamples = 1_000_000

// ServiceOptions configure a Service.
type ServiceOptions struct {
	Store             store.Store
	Metrics           *metrics.Collector
	MaxSimulatorCalls *int
	// MaxSamples bounds num_samples and parameter rows per request.
	MaxSamples int
	// MaxAttempts is the default rejection cap when a request sets none.
	MaxAttempts int
	// Timeout bounds every reference posterior run. Zero means none.
	Timeout time.Duration
}

// Service runs task operations on behalf of the HTTP and gRPC servers.
// The simulator and its budget are shared by all callers.
type Service struct {
	task        *task.Task
	simulator   *task.Simulator
	store       store.Store
	metrics     *metrics.Collector
	maxAttempts int
	maxSamples  int
	timeout     time.Duration
}

// NewService wraps t for serving.
func NewService(t *task.Task, opts ServiceOptions) *Service {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	return &Service{
		task:        t,
		simulator:   t.Simulator(opts.MaxSimulatorCalls),
		store:       opts.Store,
		metrics:     opts.Metrics,
		maxAttempts: opts.MaxAttempts,
		maxSamples:  opts.MaxSamples,
		timeout:     opts.Timeout,
	}
}

// Task returns the served task.
func (s *Service) Task() *task.Task { return s.task }

// Metrics returns the collector, which may be nil.
func (s *Service) Metrics() *metrics.Collector { return s.metrics }

// Simulator returns the shared budgeted simulator.
func (s *Service) Simulator() *task.Simulator { return s.simulator }

// checkCount rejects requests larger than the service limit before anything is allocated.
func (s *Service) checkCount(what string, n int) error {
	if n > s.maxSamples {
		return fmt.Errorf("%w: %d %s exceeds the limit of %d", task.ErrInvalidCount, n, what, s.maxSamples)
	}
	return nil
}

func newSource(seed *int64) *utils.RandSource {
	if seed == nil {
		return utils.NewRandSource(0)
	}
	return utils.NewRandSource(*seed)
}

// SamplePrior draws req.NumSamples parameter vectors from the prior.
func (s *Service) SamplePrior(_ context.Context, req PriorRequest) (*SamplesResponse, error) {
	if err := s.checkCount("samples", req.NumSamples); err != nil {
		return nil, fmt.Errorf("prior sample: %w", err)
	}
	src := newSource(req.Seed)
	samples, err := s.task.Prior().Sample(src, req.NumSamples)
	if err != nil {
		return nil, err
	}
	return &SamplesResponse{Samples: denseRows(samples), Seed: src.Seed()}, nil
}

// Simulate runs the shared simulator on req.Parameters.
func (s *Service) Simulate(_ context.Context, req SimulateRequest) (*SimulateResponse, error) {
	if err := s.checkCount("parameter rows", len(req.Parameters)); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	theta, err := rowsDense(req.Parameters)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	src := newSource(req.Seed)
	x, err := s.simulator.Simulate(src, theta)
	if err != nil {
		return nil, err
	}
	return &SimulateResponse{
		Observations: denseRows(x),
		Seed:         src.Seed(),
		Remaining:    s.simulator.Remaining(),
	}, nil
}

// SampleReference draws reference posterior samples. The service timeout,
// when set, is applied on top of ctx.
func (s *Service) SampleReference(ctx context.Context, req ReferenceRequest) (*ReferenceResponse, error) {
	if err := s.checkCount("samples", req.NumSamples); err != nil {
		return nil, fmt.Errorf("reference posterior: %w", err)
	}
	ref := task.ObservationRef{Num: req.NumObservation, Observation: req.Observation}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	src := newSource(req.Seed)
	res, err := s.task.SampleReferencePosterior(ctx, src, req.NumSamples, ref, task.ReferenceOptions{MaxAttempts: maxAttempts})
	if err != nil {
		return nil, err
	}

	rows := denseRows(res.Samples)
	summary, err := utils.SummarizeColumns(rows)
	if err != nil {
		return nil, fmt.Errorf("summarize samples: %w", err)
	}
	return &ReferenceResponse{
		Samples:        rows,
		Attempts:       res.Attempts,
		AcceptanceRate: res.AcceptanceRate,
		NumObservation: res.NumObservation,
		Observation:    res.Observation,
		Seed:           src.Seed(),
		Summary:        summary,
	}, nil
}

// Observation returns stored observation num.
func (s *Service) Observation(ctx context.Context, num int) (*ObservationResponse, error) {
	if s.store == nil {
		return nil, task.ErrNoObservationSource
	}
	obs, err := s.store.Observation(ctx, task.Name, num)
	if err != nil {
		return nil, err
	}
	out := &ObservationResponse{NumObservation: num, Observation: obs}
	theta, err := s.store.TrueParameters(ctx, task.Name, num)
	switch {
	case err == nil:
		out.TrueParameters = theta
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return out, nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func rowsDense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no parameter rows", task.ErrInvalidCount)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: empty parameter row", task.ErrDimensionMismatch)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, row 0 has %d", task.ErrDimensionMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
