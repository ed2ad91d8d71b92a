package simd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

// JobExecutor runs reference posterior jobs asynchronously with per-job
// cancellation.
type JobExecutor struct {
	store    *JobStore
	service  *Service
	notifier *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewJobExecutor(store *JobStore, service *Service) *JobExecutor {
	return &JobExecutor{
		store:   store,
		service: service,
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetNotifier enables callbacks for jobs that carry a callback URL.
func (e *JobExecutor) SetNotifier(n *Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

func (e *JobExecutor) notify(rec JobRecord) {
	e.mu.Lock()
	n := e.notifier
	e.mu.Unlock()
	if n != nil && rec.Callback.URL != "" {
		n.Notify(rec.Callback, rec)
	}
}

// Start begins executing a job asynchronously.
// Returns the updated job (running) or an error. Starting a running job is a
// no-op; the status change and the cancel registration happen under one lock
// so concurrent calls launch at most one run.
func (e *JobExecutor) Start(jobID string) (JobRecord, error) {
	if jobID == "" {
		return JobRecord{}, ErrJobIDMissing
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.store.Get(jobID)
	if !ok {
		return JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.Job.Status == JobStatusRunning {
		return rec, nil
	}

	updated, err := e.store.SetStatus(jobID, JobStatusRunning, "")
	if err != nil {
		return JobRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[jobID] = cancel
	e.wg.Add(1)
	go e.runJob(ctx, jobID, rec.Request)
	return updated, nil
}

// Stop requests cancellation of a job and marks it cancelled.
func (e *JobExecutor) Stop(jobID string) (JobRecord, error) {
	if jobID == "" {
		return JobRecord{}, ErrJobIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[jobID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(jobID, JobStatusCancelled, "")
	if err != nil {
		return updated, err
	}
	e.notify(updated)
	return updated, nil
}

// StopAll cancels every running job and waits for their goroutines to exit.
func (e *JobExecutor) StopAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrJobTerminal) {
			logger.Warn("failed to stop job", "job_id", id, "error", err)
		}
	}
	e.wg.Wait()
}

func (e *JobExecutor) cleanup(jobID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[jobID]; ok {
		cancel()
		delete(e.cancels, jobID)
	}
	e.mu.Unlock()
}

func (e *JobExecutor) runJob(ctx context.Context, jobID string, req ReferenceRequest) {
	defer e.wg.Done()
	defer e.cleanup(jobID)

	logger.Info("starting reference posterior job", "job_id", jobID, "num_samples", req.NumSamples)
	res, err := e.service.SampleReference(ctx, req)
	if err != nil {
		// Stop already recorded the cancellation.
		if ctx.Err() != nil && errors.Is(err, task.ErrSamplingCancelled) {
			logger.Info("job cancelled", "job_id", jobID)
			return
		}
		logger.Error("job failed", "job_id", jobID, "error", err)
		failed, setErr := e.store.SetStatus(jobID, JobStatusFailed, err.Error())
		if setErr != nil {
			logger.Error("failed to set failed status", "job_id", jobID, "error", setErr)
			return
		}
		e.notify(failed)
		return
	}

	completed, err := e.store.Complete(jobID, res)
	if err != nil {
		logger.Warn("job finished after reaching a terminal state", "job_id", jobID, "error", err)
		return
	}
	e.notify(completed)
	logger.Info("job completed", "job_id", jobID,
		"attempts", res.Attempts,
		"acceptance_rate", res.AcceptanceRate)
}
