package simd

import (
	"errors"
	"strings"
	"testing"
)

func TestJobStoreCreateAndGet(t *testing.T) {
	store := NewJobStore(nil)

	rec, err := store.Create("", ReferenceRequest{NumSamples: 10}, Callback{})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !strings.HasPrefix(rec.Job.ID, "job-") {
		t.Fatalf("expected generated job id, got %q", rec.Job.ID)
	}
	if rec.Job.Status != JobStatusPending {
		t.Fatalf("expected status pending, got %v", rec.Job.Status)
	}
	if rec.Job.CreatedAtUnixMs == 0 {
		t.Fatalf("expected created_at_unix_ms to be set")
	}

	got, ok := store.Get(rec.Job.ID)
	if !ok {
		t.Fatalf("expected job to exist")
	}
	if got.Request.NumSamples != 10 {
		t.Fatalf("expected request to be stored")
	}
}

func TestJobStoreCreateDuplicate(t *testing.T) {
	store := NewJobStore(nil)
	if _, err := store.Create("job-1", ReferenceRequest{}, Callback{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	_, err := store.Create("job-1", ReferenceRequest{}, Callback{})
	if !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestJobStoreCreateRejectsReservedCharacters(t *testing.T) {
	store := NewJobStore(nil)
	for _, id := range []string{"a:stop", "a/b"} {
		if _, err := store.Create(id, ReferenceRequest{}, Callback{}); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}

func TestJobStoreGetReturnsCopy(t *testing.T) {
	store := NewJobStore(nil)
	rec, _ := store.Create("job-1", ReferenceRequest{}, Callback{})
	rec.Job.Status = JobStatusFailed

	got, _ := store.Get("job-1")
	if got.Job.Status != JobStatusPending {
		t.Fatalf("mutating a returned record changed the store")
	}
}

func TestJobStoreSetStatusTimestamps(t *testing.T) {
	store := NewJobStore(nil)
	_, _ = store.Create("job-1", ReferenceRequest{}, Callback{})

	running, err := store.SetStatus("job-1", JobStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if running.Job.StartedAtUnixMs == 0 {
		t.Fatalf("expected started_at_unix_ms to be set")
	}

	failed, err := store.SetStatus("job-1", JobStatusFailed, "boom")
	if err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if failed.Job.EndedAtUnixMs == 0 || failed.Job.Error != "boom" {
		t.Fatalf("expected ended_at and error to be set, got %+v", failed.Job)
	}
}

func TestJobStoreTerminalIsFinal(t *testing.T) {
	store := NewJobStore(nil)
	_, _ = store.Create("job-1", ReferenceRequest{}, Callback{})
	if _, err := store.SetStatus("job-1", JobStatusCancelled, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	if _, err := store.SetStatus("job-1", JobStatusRunning, ""); !errors.Is(err, ErrJobTerminal) {
		t.Fatalf("expected ErrJobTerminal, got %v", err)
	}
	if _, err := store.Complete("job-1", &ReferenceResponse{}); !errors.Is(err, ErrJobTerminal) {
		t.Fatalf("expected ErrJobTerminal from Complete, got %v", err)
	}
	got, _ := store.Get("job-1")
	if got.Job.Status != JobStatusCancelled || got.Result != nil {
		t.Fatalf("terminal job changed: %+v", got)
	}
}

func TestJobStoreSetStatusNotFound(t *testing.T) {
	store := NewJobStore(nil)
	if _, err := store.SetStatus("missing", JobStatusRunning, ""); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobStoreListFilterAndPaging(t *testing.T) {
	store := NewJobStore(nil)
	for _, id := range []string{"job-a", "job-b", "job-c", "job-d"} {
		if _, err := store.Create(id, ReferenceRequest{}, Callback{}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	_, _ = store.SetStatus("job-b", JobStatusRunning, "")

	if got := store.List(10, 0, ""); len(got) != 4 {
		t.Fatalf("expected 4 jobs, got %d", len(got))
	}
	if got := store.List(2, 0, ""); len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
	if got := store.List(10, 3, ""); len(got) != 1 {
		t.Fatalf("expected offset to apply, got %d", len(got))
	}
	if got := store.List(10, 10, ""); len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(got))
	}
	running := store.List(10, 0, JobStatusRunning)
	if len(running) != 1 || running[0].Job.ID != "job-b" {
		t.Fatalf("expected only job-b running, got %+v", running)
	}

	counts := store.Counts()
	if counts[JobStatusPending] != 3 || counts[JobStatusRunning] != 1 || counts[JobStatusCompleted] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestParseJobStatus(t *testing.T) {
	if st, ok := ParseJobStatus("RUNNING"); !ok || st != JobStatusRunning {
		t.Fatalf("expected running, got %q %v", st, ok)
	}
	if _, ok := ParseJobStatus("bogus"); ok {
		t.Fatalf("expected unknown status to fail")
	}
	if !JobStatusFailed.Terminal() || JobStatusPending.Terminal() {
		t.Fatalf("unexpected Terminal results")
	}
}
