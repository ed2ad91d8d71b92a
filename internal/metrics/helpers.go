package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	MetricSimulatorCalls    = "sbi_simulator_calls_total"
	MetricBudgetExceeded    = "sbi_simulator_budget_exceeded_total"
	MetricReferenceAttempts = "sbi_reference_attempts_total"
	MetricReferenceAccepted = "sbi_reference_accepted_total"
	MetricAcceptanceRate    = "sbi_reference_acceptance_rate"
	MetricSamplingDuration  = "sbi_reference_sampling_seconds"
	MetricJobs              = "sbi_jobs"
)

// Label names
const (
	LabelTask        = "task"
	LabelObservation = "observation"
	LabelStatus      = "status"
)

// ObservationLiteral labels runs against an observation passed by value.
const ObservationLiteral = "literal"

// ObservationLabel returns the label value for an observation number.
func ObservationLabel(num int) string {
	if num <= 0 {
		return ObservationLiteral
	}
	return strconv.Itoa(num)
}

// Handler serves the collector's registry in the Prometheus exposition format.
// A nil collector serves the process-wide default registry.
func Handler(c *Collector) http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
