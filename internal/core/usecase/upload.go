package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

type UploadService struct {
	api    ports.SentinelAPI
	jobs   ports.JobRepository
	queue  ports.MessageQueue
	pages  ports.PageCounter
	logger *slog.Logger
}

func NewUploadService(
	api ports.SentinelAPI,
	jobs ports.JobRepository,
	queue ports.MessageQueue,
	pages ports.PageCounter,
	logger *slog.Logger,
) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		api:    api,
		jobs:   jobs,
		queue:  queue,
		pages:  pages,
		logger: logger,
	}
}

func (s *UploadService) Submit(ctx context.Context, userID string, files []domain.UploadFile) (*domain.Job, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit upload", errors.New("at least one file is required"))
	}

	totalPages := 0
	for i := range files {
		if len(files[i].Data) == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit upload", fmt.Errorf("file %q is empty", files[i].Filename))
		}
		files[i].Filename = sanitizeFilename(files[i].Filename)
		totalPages += s.countPages(&files[i])
	}

	state, err := s.api.Upload(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("forward upload: %w", err)
	}
	if state.JobID == "" {
		return nil, fmt.Errorf("forward upload: upstream returned no job id")
	}

	now := time.Now().UTC()
	status := state.Status
	if status == "" {
		status = domain.JobQueued
	}
	job := &domain.Job{
		ID:        state.JobID,
		UserID:    userID,
		BatchID:   state.BatchID,
		Status:    status,
		Progress:  state.Progress,
		FileCount: len(files),
		PageCount: totalPages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}
	if err := s.queue.PublishUploadSubmitted(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}
	return job, nil
}

func (s *UploadService) Job(ctx context.Context, jobID string) (*domain.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get job", errors.New("job id is required"))
	}
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// countPages is best-effort: a file that cannot be parsed still uploads.
func (s *UploadService) countPages(file *domain.UploadFile) int {
	if s.pages == nil {
		return 0
	}
	pages, err := s.pages.CountPages(file.Filename, file.Data)
	if err != nil {
		s.logger.Warn("page_count_failed", "filename", file.Filename, "error", err)
		return 0
	}
	file.PageCount = pages
	return pages
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
