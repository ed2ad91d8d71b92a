package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus collectors for simulator and sampler activity.
// All methods are safe on a nil *Collector so callers can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	simulatorCalls    *prometheus.CounterVec
	budgetExceeded    *prometheus.CounterVec
	referenceAttempts *prometheus.CounterVec
	referenceAccepted *prometheus.CounterVec
	acceptanceRate    *prometheus.GaugeVec
	samplingDuration  *prometheus.HistogramVec
	jobs              *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		simulatorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSimulatorCalls,
				Help: "Number of simulations run, counted per parameter row",
			},
			[]string{LabelTask},
		),
		budgetExceeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBudgetExceeded,
				Help: "Simulator calls refused because the simulation budget was exhausted",
			},
			[]string{LabelTask},
		),
		referenceAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReferenceAttempts,
				Help: "Candidates drawn by the reference posterior rejection sampler",
			},
			[]string{LabelTask},
		),
		referenceAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReferenceAccepted,
				Help: "Candidates accepted by the reference posterior rejection sampler",
			},
			[]string{LabelTask},
		),
		acceptanceRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricAcceptanceRate,
				Help: "Acceptance rate of the most recent reference posterior run",
			},
			[]string{LabelTask, LabelObservation},
		),
		samplingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSamplingDuration,
				Help:    "Wall time of reference posterior runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{LabelTask},
		),
		jobs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricJobs,
				Help: "Reference posterior jobs by status",
			},
			[]string{LabelStatus},
		),
	}

	c.registry.MustRegister(
		c.simulatorCalls,
		c.budgetExceeded,
		c.referenceAttempts,
		c.referenceAccepted,
		c.acceptanceRate,
		c.samplingDuration,
		c.jobs,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordSimulations counts n simulations for task.
func (c *Collector) RecordSimulations(task string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.simulatorCalls.WithLabelValues(task).Add(float64(n))
}

// RecordBudgetExceeded counts a refused simulator call.
func (c *Collector) RecordBudgetExceeded(task string) {
	if c == nil {
		return
	}
	c.budgetExceeded.WithLabelValues(task).Inc()
}

// RecordReferenceRun records the outcome of one rejection sampling run.
// observation is the observation number, or ObservationLiteral.
func (c *Collector) RecordReferenceRun(task, observation string, attempts, accepted int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.referenceAttempts.WithLabelValues(task).Add(float64(attempts))
	c.referenceAccepted.WithLabelValues(task).Add(float64(accepted))
	if attempts > 0 {
		c.acceptanceRate.WithLabelValues(task, observation).Set(float64(accepted) / float64(attempts))
	}
	c.samplingDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// SetJobCount sets the number of jobs currently in status.
func (c *Collector) SetJobCount(status string, n int) {
	if c == nil {
		return
	}
	c.jobs.WithLabelValues(status).Set(float64(n))
}
