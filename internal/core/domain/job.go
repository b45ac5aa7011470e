package domain

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BatchID   string    `json:"batch_id"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	FileCount int       `json:"file_count"`
	PageCount int       `json:"page_count"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobState is what the upstream reports while a batch is being processed.
type JobState struct {
	JobID    string    `json:"job_id"`
	BatchID  string    `json:"batch_id"`
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// UploadFile is one file handed to the upload pipeline.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
	PageCount   int
}

// BatchCompleted is published once a job reaches a terminal state.
type BatchCompleted struct {
	JobID   string    `json:"job_id"`
	BatchID string    `json:"batch_id"`
	UserID  string    `json:"user_id"`
	Status  JobStatus `json:"status"`
	Error   string    `json:"error,omitempty"`
}
