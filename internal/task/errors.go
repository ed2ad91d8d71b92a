package task

import "errors"

var (
	// ErrObservationArgs is returned when a reference posterior request names
	// both an observation number and a literal observation, or neither.
	ErrObservationArgs = errors.New("exactly one of observation number or observation must be given")

	// ErrSimulationBudgetExceeded is returned once a simulator's call budget is used up.
	ErrSimulationBudgetExceeded = errors.New("simulation budget exceeded")

	// ErrMaxAttemptsExceeded is returned when rejection sampling hits its attempt cap
	// before collecting the requested number of samples.
	ErrMaxAttemptsExceeded = errors.New("rejection sampling exceeded max attempts")

	// ErrSamplingCancelled wraps the context error when sampling is cancelled or times out.
	ErrSamplingCancelled = errors.New("sampling cancelled")

	// ErrDimensionMismatch is returned when parameters or observations do not
	// have the task's dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidObservation is returned for observations containing NaN or Inf.
	ErrInvalidObservation = errors.New("observation must be finite")

	// ErrInvalidCount is returned when a sample or row count is not positive,
	// is too large to allocate, or exceeds a configured limit.
	ErrInvalidCount = errors.New("invalid sample count")

	// ErrInvalidConfig is returned by New and by samplers given bad options.
	ErrInvalidConfig = errors.New("invalid task configuration")

	// ErrNoObservationSource is returned when an observation is requested by
	// number but the task has no source to look it up in.
	ErrNoObservationSource = errors.New("no observation source configured")
)
