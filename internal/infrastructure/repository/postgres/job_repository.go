package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (id, user_id, batch_id, status, progress, file_count, page_count, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, job.ID, job.UserID, job.BatchID, string(job.Status), job.Progress, job.FileCount, job.PageCount, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, batch_id, status, progress, file_count, page_count, error_message, created_at, updated_at
FROM jobs
WHERE id = $1
`, jobID)

	var job domain.Job
	var status string
	err := row.Scan(
		&job.ID, &job.UserID, &job.BatchID, &status, &job.Progress,
		&job.FileCount, &job.PageCount, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", jobID))
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateJobState(ctx context.Context, jobID string, state domain.JobState) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE jobs
SET status = $2, progress = $3, error_message = $4, batch_id = COALESCE(NULLIF($5, ''), batch_id), updated_at = $6
WHERE id = $1
`, jobID, string(state.Status), state.Progress, state.Error, state.BatchID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update job state", fmt.Errorf("id=%s", jobID))
	}
	return nil
}
