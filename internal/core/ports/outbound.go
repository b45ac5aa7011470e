package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

// SentinelAPI is the upstream detection/masking service.
type SentinelAPI interface {
	ListBatches(ctx context.Context) ([]domain.BatchSummary, error)
	DeleteBatch(ctx context.Context, batchID string) error
	GetAnalysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error)
	Upload(ctx context.Context, files []domain.UploadFile) (*domain.JobState, error)
	JobStatus(ctx context.Context, jobID string) (*domain.JobState, error)
	Mask(ctx context.Context, batchID string, req domain.MaskRequest) (*domain.MaskResult, error)
	Export(ctx context.Context, batchID string, req domain.ExportRequest) (*domain.ExportPayload, error)
	Decrypt(ctx context.Context, payload []byte, password string) ([]byte, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// CheckoutGateway creates orders on the third-party payment gateway.
type CheckoutGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
	VerifySignature(receipt domain.CheckoutReceipt) error
}

// JobRepository persists processing jobs.
type JobRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJobState(ctx context.Context, jobID string, state domain.JobState) error
}

// BillingRepository persists orders and token accounts.
type BillingRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByGatewayID(ctx context.Context, userID, gatewayOrderID string) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, orderID, paymentID string, plan domain.Plan) (*domain.TokenAccount, error)
	GetAccount(ctx context.Context, userID string) (*domain.TokenAccount, error)
}

// BlobStore keeps opaque per-key JSON blobs with a TTL.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ObjectStorage stores archives and export payloads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries job lifecycle events between api and worker.
type MessageQueue interface {
	PublishUploadSubmitted(ctx context.Context, jobID string) error
	SubscribeUploadSubmitted(ctx context.Context, handler func(context.Context, string) error) error
	PublishBatchCompleted(ctx context.Context, event domain.BatchCompleted) error
}

// PageCounter inspects uploads before they are forwarded.
type PageCounter interface {
	CountPages(filename string, data []byte) (int, error)
}

// RiskRecorder observes computed risk levels.
type RiskRecorder interface {
	RecordRiskAssessment(level domain.RiskLevel)
}

// ArchiveRecorder counts archive items by outcome.
type ArchiveRecorder interface {
	RecordArchiveItem(outcome string)
}

// JobWatchRecorder observes finished job watches.
type JobWatchRecorder interface {
	RecordJobWatch(status string, duration time.Duration)
}
