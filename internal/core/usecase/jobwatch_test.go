package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func seededJobs(status domain.JobStatus) *jobRepoFake {
	repo := newJobRepoFake()
	repo.jobs["job-1"] = &domain.Job{ID: "job-1", UserID: "user-1", Status: status}
	return repo
}

func TestWatchPollsUntilCompleted(t *testing.T) {
	api := &apiFake{jobStates: []domain.JobState{
		{Status: domain.JobProcessing, Progress: 0.2},
		{Status: domain.JobProcessing, Progress: 0.2},
		{Status: domain.JobCompleted, Progress: 1, BatchID: "batch-9"},
	}}
	jobs := seededJobs(domain.JobQueued)
	queue := &queueFake{}
	recorder := &recorderFake{}
	svc := NewJobWatchService(api, jobs, queue, JobWatchOptions{Interval: time.Millisecond, Recorder: recorder})

	job, err := svc.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if job.Status != domain.JobCompleted || job.BatchID != "batch-9" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if api.jobCalls != 3 {
		t.Fatalf("expected 3 polls, got %d", api.jobCalls)
	}
	if len(jobs.updates) != 2 {
		t.Fatalf("expected only status changes persisted, got %d updates", len(jobs.updates))
	}
	if len(queue.completed) != 1 || queue.completed[0].BatchID != "batch-9" || queue.completed[0].UserID != "user-1" {
		t.Fatalf("unexpected completion events: %+v", queue.completed)
	}
	if len(recorder.watches) != 1 || recorder.watches[0] != "completed" {
		t.Fatalf("unexpected watch records: %v", recorder.watches)
	}
}

func TestWatchRetriesTemporaryErrors(t *testing.T) {
	api := &apiFake{
		jobStates: []domain.JobState{{}, {Status: domain.JobFailed, Error: "ocr crashed"}},
		jobErrs:   []error{domain.WrapError(domain.ErrTemporary, "job status", errors.New("503"))},
	}
	jobs := seededJobs(domain.JobProcessing)
	svc := NewJobWatchService(api, jobs, &queueFake{}, JobWatchOptions{Interval: time.Millisecond})

	job, err := svc.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if job.Status != domain.JobFailed || job.Error != "ocr crashed" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestWatchStopsOnPermanentError(t *testing.T) {
	api := &apiFake{
		jobStates: []domain.JobState{{}},
		jobErrs:   []error{domain.WrapError(domain.ErrJobNotFound, "job status", errors.New("404"))},
	}
	queue := &queueFake{}
	svc := NewJobWatchService(api, seededJobs(domain.JobQueued), queue, JobWatchOptions{Interval: time.Millisecond})

	if _, err := svc.Watch(context.Background(), "job-1"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if len(queue.completed) != 0 {
		t.Fatalf("no completion expected")
	}
}

func TestWatchTimeoutMarksJobFailed(t *testing.T) {
	api := &apiFake{jobStates: []domain.JobState{{Status: domain.JobProcessing, Progress: 0.5}}}
	jobs := seededJobs(domain.JobQueued)
	queue := &queueFake{}
	svc := NewJobWatchService(api, jobs, queue, JobWatchOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond})

	job, err := svc.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if job.Status != domain.JobFailed || job.Error == "" {
		t.Fatalf("expected failed job with reason, got %+v", job)
	}
	if len(queue.completed) != 1 || queue.completed[0].Status != domain.JobFailed {
		t.Fatalf("expected failed completion event, got %+v", queue.completed)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	api := &apiFake{jobStates: []domain.JobState{{Status: domain.JobProcessing}}}
	svc := NewJobWatchService(api, seededJobs(domain.JobQueued), &queueFake{}, JobWatchOptions{Interval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Watch(ctx, "job-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestWatchSkipsTerminalJobs(t *testing.T) {
	api := &apiFake{}
	svc := NewJobWatchService(api, seededJobs(domain.JobCompleted), &queueFake{}, JobWatchOptions{})

	job, err := svc.Watch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if job.Status != domain.JobCompleted || api.jobCalls != 0 {
		t.Fatalf("expected no polling for terminal job")
	}
}
