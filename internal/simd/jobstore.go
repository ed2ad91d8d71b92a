package simd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/utils"
)

// JobStatus is the lifecycle state of an asynchronous reference posterior job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

var allJobStatuses = []JobStatus{
	JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ParseJobStatus parses a status name case-insensitively.
func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(strings.ToLower(s))
	for _, known := range allJobStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobTerminal  = errors.New("job is terminal")
	ErrJobIDMissing = errors.New("job_id is required")
	ErrJobExists    = errors.New("job already exists")
)

// Job is the externally visible state of a job.
type Job struct {
	ID              string    `json:"id"`
	Status          JobStatus `json:"status"`
	Error           string    `json:"error,omitempty"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
}

// JobRecord is a job with its request and, once completed, its result.
type JobRecord struct {
	Job     Job                `json:"job"`
	Request ReferenceRequest   `json:"request"`
	Result  *ReferenceResponse `json:"result,omitempty"`

	Callback Callback `json:"-"`
}

// JobStore keeps jobs in memory. Get and List return copies.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*JobRecord
	metrics *metrics.Collector
}

// NewJobStore creates an empty store reporting job counts to c, which may be nil.
func NewJobStore(c *metrics.Collector) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*JobRecord),
		metrics: c,
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create registers a pending job. An empty id is replaced by a generated one.
func (s *JobStore) Create(jobID string, req ReferenceRequest, cb Callback) (JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID == "" {
		jobID = utils.GenerateJobID()
	}
	if strings.ContainsAny(jobID, ":/") {
		return JobRecord{}, fmt.Errorf("job id cannot contain ':' or '/': %s", jobID)
	}
	if _, exists := s.jobs[jobID]; exists {
		return JobRecord{}, fmt.Errorf("%w: %s", ErrJobExists, jobID)
	}

	rec := &JobRecord{
		Job: Job{
			ID:              jobID,
			Status:          JobStatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Request:  req,
		Callback: cb,
	}
	s.jobs[jobID] = rec
	s.reportLocked()
	return rec.copy(), nil
}

// Get returns a copy of the job.
func (s *JobStore) Get(jobID string) (JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return JobRecord{}, false
	}
	return rec.copy(), true
}

// List returns up to limit jobs after offset, newest first. An empty
// status matches every job.
func (s *JobStore) List(limit, offset int, status JobStatus) []JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	all := make([]*JobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if status != "" && rec.Job.Status != status {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Job.CreatedAtUnixMs != all[j].Job.CreatedAtUnixMs {
			return all[i].Job.CreatedAtUnixMs > all[j].Job.CreatedAtUnixMs
		}
		return all[i].Job.ID < all[j].Job.ID
	})

	if offset >= len(all) {
		return []JobRecord{}
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]JobRecord, len(all))
	for i, rec := range all {
		out[i] = rec.copy()
	}
	return out
}

// SetStatus moves a job to status. Terminal jobs cannot change.
func (s *JobStore) SetStatus(jobID string, status JobStatus, errMsg string) (JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.Job.Status.Terminal() {
		return rec.copy(), fmt.Errorf("%w: %s is %s", ErrJobTerminal, jobID, rec.Job.Status)
	}

	rec.Job.Status = status
	if errMsg != "" {
		rec.Job.Error = errMsg
	}
	switch {
	case status == JobStatusRunning:
		if rec.Job.StartedAtUnixMs == 0 {
			rec.Job.StartedAtUnixMs = nowUnixMs()
		}
	case status.Terminal():
		rec.Job.EndedAtUnixMs = nowUnixMs()
	}
	s.reportLocked()
	return rec.copy(), nil
}

// Complete stores the result and marks the job completed, unless it has
// already reached a terminal state.
func (s *JobStore) Complete(jobID string, result *ReferenceResponse) (JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[jobID]
	if !ok {
		return JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.Job.Status.Terminal() {
		return rec.copy(), fmt.Errorf("%w: %s is %s", ErrJobTerminal, jobID, rec.Job.Status)
	}
	rec.Result = result
	rec.Job.Status = JobStatusCompleted
	rec.Job.EndedAtUnixMs = nowUnixMs()
	s.reportLocked()
	return rec.copy(), nil
}

// Counts returns the number of jobs per status.
func (s *JobStore) Counts() map[JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *JobStore) countsLocked() map[JobStatus]int {
	counts := make(map[JobStatus]int, len(allJobStatuses))
	for _, st := range allJobStatuses {
		counts[st] = 0
	}
	for _, rec := range s.jobs {
		counts[rec.Job.Status]++
	}
	return counts
}

func (s *JobStore) reportLocked() {
	if s.metrics == nil {
		return
	}
	for st, n := range s.countsLocked() {
		s.metrics.SetJobCount(string(st), n)
	}
}

// copy shares Result, which is never mutated after Complete.
func (r *JobRecord) copy() JobRecord {
	return *r
}
