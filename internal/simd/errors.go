package simd

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GoSim-25-26J-441/sbi-core/internal/store"
	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
)

// httpStatus maps task, store and job errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, task.ErrObservationArgs),
		errors.Is(err, task.ErrInvalidCount),
		errors.Is(err, task.ErrDimensionMismatch),
		errors.Is(err, task.ErrInvalidObservation),
		errors.Is(err, task.ErrInvalidConfig),
		errors.Is(err, ErrJobIDMissing):
		return http.StatusBadRequest
	case errors.Is(err, task.ErrSimulationBudgetExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, task.ErrMaxAttemptsExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, task.ErrSamplingCancelled):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrJobExists), errors.Is(err, ErrJobTerminal):
		return http.StatusConflict
	case errors.Is(err, task.ErrNoObservationSource):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// grpcError maps the same errors onto gRPC status errors.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch {
	case errors.Is(err, task.ErrObservationArgs),
		errors.Is(err, task.ErrInvalidCount),
		errors.Is(err, task.ErrDimensionMismatch),
		errors.Is(err, task.ErrInvalidObservation),
		errors.Is(err, task.ErrInvalidConfig):
		code = codes.InvalidArgument
	case errors.Is(err, task.ErrSimulationBudgetExceeded):
		code = codes.ResourceExhausted
	case errors.Is(err, task.ErrMaxAttemptsExceeded),
		errors.Is(err, task.ErrNoObservationSource):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, task.ErrSamplingCancelled):
		code = codes.Canceled
	case errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
