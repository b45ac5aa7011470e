package ports

import (
	"context"
	"io"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

// BatchManager lists and removes batches on behalf of a user.
type BatchManager interface {
	ListBatches(ctx context.Context) ([]domain.BatchSummary, error)
	DeleteBatch(ctx context.Context, batchID string) error
}

// AnalysisReader is the inbound contract for derived batch analytics.
type AnalysisReader interface {
	Analysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error)
	Overview(ctx context.Context, batchID string) (*domain.AnalysisOverview, error)
	Details(ctx context.Context, batchID string, query domain.DetailQuery) (*domain.DetailPage, error)
	Report(ctx context.Context, batchID string, filter domain.DetailFilter) (*domain.DetectionReport, error)
}

// UploadSubmitter hands files to the detection pipeline.
type UploadSubmitter interface {
	Submit(ctx context.Context, userID string, files []domain.UploadFile) (*domain.Job, error)
}

// JobReader is the read model for processing jobs.
type JobReader interface {
	Job(ctx context.Context, jobID string) (*domain.Job, error)
}

// JobWatcher follows a job until it reaches a terminal state.
type JobWatcher interface {
	Watch(ctx context.Context, jobID string) (*domain.Job, error)
}

// ArchiveAssembler masks a batch and packs the results into one archive.
type ArchiveAssembler interface {
	Mask(ctx context.Context, batchID string, req domain.MaskRequest) (*domain.MaskResult, error)
	Assemble(ctx context.Context, userID, batchID string, req domain.MaskRequest, progress func(domain.ArchiveProgress)) (*domain.ArchiveResult, error)
	OpenArchive(ctx context.Context, userID, key string) (io.ReadCloser, error)
}

// Exporter produces and opens export payloads.
type Exporter interface {
	Export(ctx context.Context, userID, batchID string, req domain.ExportRequest) (*domain.ExportResult, error)
	OpenExport(ctx context.Context, userID, key string) (io.ReadCloser, error)
	Decrypt(ctx context.Context, payload []byte, password string) ([]byte, error)
}

// BillingManager drives the checkout flow.
type BillingManager interface {
	Plans() []domain.Plan
	CreateOrder(ctx context.Context, userID, planID string) (*domain.Order, error)
	VerifyPayment(ctx context.Context, userID string, receipt domain.CheckoutReceipt) (*domain.TokenAccount, error)
	Account(ctx context.Context, userID string) (*domain.TokenAccount, error)
}

// SessionManager is the single accessor for per-user session blobs.
type SessionManager interface {
	Session(ctx context.Context, userID string) domain.Session
	SaveUserInfo(ctx context.Context, userID string, info domain.UserInfo) error
}
