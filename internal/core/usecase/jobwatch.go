package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/polling"
)

type JobWatchService struct {
	api      ports.SentinelAPI
	jobs     ports.JobRepository
	queue    ports.MessageQueue
	interval time.Duration
	timeout  time.Duration
	recorder ports.JobWatchRecorder
	logger   *slog.Logger
}

type JobWatchOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Recorder ports.JobWatchRecorder
	Logger   *slog.Logger
}

func NewJobWatchService(
	api ports.SentinelAPI,
	jobs ports.JobRepository,
	queue ports.MessageQueue,
	opts JobWatchOptions,
) *JobWatchService {
	if opts.Interval <= 0 {
		opts.Interval = polling.DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &JobWatchService{
		api:      api,
		jobs:     jobs,
		queue:    queue,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// Watch polls the upstream job until it completes or fails, persisting every
// status change. Temporary upstream errors are retried on the next tick.
func (s *JobWatchService) Watch(ctx context.Context, jobID string) (*domain.Job, error) {
	started := time.Now()
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.Status.Terminal() {
		return job, nil
	}

	err = polling.Until(ctx, s.interval, s.timeout, func(ctx context.Context) (bool, error) {
		state, err := s.api.JobStatus(ctx, jobID)
		if err != nil {
			if domain.IsKind(err, domain.ErrTemporary) {
				s.logger.Warn("job_status_unavailable", "job_id", jobID, "error", err)
				return false, nil
			}
			return false, err
		}
		if err := s.apply(ctx, job, *state); err != nil {
			return false, err
		}
		return job.Status.Terminal(), nil
	})

	switch {
	case err == nil:
	case errors.Is(err, polling.ErrTimeout):
		failure := domain.JobState{Status: domain.JobFailed, Progress: job.Progress, Error: "timed out waiting for processing"}
		if applyErr := s.apply(context.WithoutCancel(ctx), job, failure); applyErr != nil {
			return nil, fmt.Errorf("%w; mark timed out job: %v", err, applyErr)
		}
	default:
		return nil, fmt.Errorf("watch job %s: %w", jobID, err)
	}

	event := domain.BatchCompleted{
		JobID:   job.ID,
		BatchID: job.BatchID,
		UserID:  job.UserID,
		Status:  job.Status,
		Error:   job.Error,
	}
	if err := s.queue.PublishBatchCompleted(ctx, event); err != nil {
		return nil, fmt.Errorf("publish batch completed: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordJobWatch(string(job.Status), time.Since(started))
	}
	return job, nil
}

func (s *JobWatchService) apply(ctx context.Context, job *domain.Job, state domain.JobState) error {
	if state.Status == "" {
		state.Status = job.Status
	}
	if state.BatchID == "" {
		state.BatchID = job.BatchID
	}
	if state.Status == job.Status && state.Progress == job.Progress && state.BatchID == job.BatchID && state.Error == job.Error {
		return nil
	}
	if err := s.jobs.UpdateJobState(ctx, job.ID, state); err != nil {
		return fmt.Errorf("persist job state: %w", err)
	}
	s.logger.Info("job_status_changed",
		"job_id", job.ID,
		"from", job.Status,
		"to", state.Status,
		"progress", state.Progress,
	)
	job.Status = state.Status
	job.Progress = state.Progress
	job.BatchID = state.BatchID
	job.Error = state.Error
	job.UpdatedAt = time.Now().UTC()
	return nil
}
