package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

type batchesFake struct {
	batches []domain.BatchSummary
	err     error
}

func (f *batchesFake) ListBatches(context.Context) ([]domain.BatchSummary, error) {
	return f.batches, f.err
}

func (f *batchesFake) DeleteBatch(context.Context, string) error { return f.err }

type analysisFake struct {
	err       error
	lastQuery domain.DetailQuery
	report    *domain.DetectionReport
}

func (f *analysisFake) Analysis(_ context.Context, batchID string) (*domain.BatchAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BatchAnalysis{BatchID: batchID}, nil
}

func (f *analysisFake) Overview(context.Context, string) (*domain.AnalysisOverview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisOverview{}, nil
}

func (f *analysisFake) Details(_ context.Context, _ string, query domain.DetailQuery) (*domain.DetailPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastQuery = query
	return &domain.DetailPage{Rows: []domain.DetailRow{}, Page: query.Page, PageSize: query.PageSize, Empty: true}, nil
}

func (f *analysisFake) Report(_ context.Context, batchID string, filter domain.DetailFilter) (*domain.DetectionReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastQuery = domain.DetailQuery{Filter: filter}
	if f.report != nil {
		return f.report, nil
	}
	return &domain.DetectionReport{BatchID: batchID}, nil
}

type uploadsFake struct {
	files  []domain.UploadFile
	userID string
}

func (f *uploadsFake) Submit(_ context.Context, userID string, files []domain.UploadFile) (*domain.Job, error) {
	f.userID = userID
	f.files = files
	return &domain.Job{ID: "job-1", UserID: userID, Status: domain.JobQueued, FileCount: len(files)}, nil
}

type jobsFake struct {
	job *domain.Job
}

func (f *jobsFake) Job(_ context.Context, jobID string) (*domain.Job, error) {
	if f.job == nil || f.job.ID != jobID {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", jobID))
	}
	return f.job, nil
}

type archivesFake struct {
	progress []domain.ArchiveProgress
	err      error
	owner    string
}

func (f *archivesFake) Mask(context.Context, string, domain.MaskRequest) (*domain.MaskResult, error) {
	return &domain.MaskResult{}, f.err
}

func (f *archivesFake) Assemble(_ context.Context, _, _ string, _ domain.MaskRequest, progress func(domain.ArchiveProgress)) (*domain.ArchiveResult, error) {
	for _, p := range f.progress {
		if progress != nil {
			progress(p)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ArchiveResult{Key: "a.zip", Included: []string{"a.pdf"}, Bytes: 10}, nil
}

func (f *archivesFake) OpenArchive(_ context.Context, userID, _ string) (io.ReadCloser, error) {
	f.owner = userID
	return io.NopCloser(strings.NewReader("PK")), f.err
}

type exportsFake struct {
	decrypted []byte
	err       error
	payload   []byte
	owner     string
}

func (f *exportsFake) Export(context.Context, string, string, domain.ExportRequest) (*domain.ExportResult, error) {
	return &domain.ExportResult{Key: "e.json"}, f.err
}

func (f *exportsFake) OpenExport(_ context.Context, userID, _ string) (io.ReadCloser, error) {
	f.owner = userID
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(`{"ok":true}`)), nil
}

func (f *exportsFake) Decrypt(_ context.Context, payload []byte, _ string) ([]byte, error) {
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.decrypted, nil
}

type billingFake struct {
	userID string
}

func (f *billingFake) Plans() []domain.Plan {
	return []domain.Plan{{ID: "starter", Name: "Starter", Amount: 49900, Currency: "INR", Tokens: 1000}}
}

func (f *billingFake) CreateOrder(_ context.Context, userID, planID string) (*domain.Order, error) {
	f.userID = userID
	return &domain.Order{ID: "o-1", UserID: userID, PlanID: planID}, nil
}

func (f *billingFake) VerifyPayment(_ context.Context, userID string, _ domain.CheckoutReceipt) (*domain.TokenAccount, error) {
	f.userID = userID
	return nil, domain.WrapError(domain.ErrSignatureMismatch, "verify payment", errors.New("bad signature"))
}

func (f *billingFake) Account(_ context.Context, userID string) (*domain.TokenAccount, error) {
	f.userID = userID
	return &domain.TokenAccount{UserID: userID, PlanID: "free"}, nil
}

type sessionsFake struct {
	saved domain.UserInfo
}

func (f *sessionsFake) Session(_ context.Context, userID string) domain.Session {
	return domain.Session{User: domain.UserInfo{UserID: userID}}
}

func (f *sessionsFake) SaveUserInfo(_ context.Context, _ string, info domain.UserInfo) error {
	f.saved = info
	return nil
}

type testServices struct {
	batches  *batchesFake
	analysis *analysisFake
	uploads  *uploadsFake
	jobs     *jobsFake
	archives *archivesFake
	exports  *exportsFake
	billing  *billingFake
	sessions *sessionsFake
}

func newTestServices() *testServices {
	return &testServices{
		batches:  &batchesFake{},
		analysis: &analysisFake{},
		uploads:  &uploadsFake{},
		jobs:     &jobsFake{},
		archives: &archivesFake{},
		exports:  &exportsFake{},
		billing:  &billingFake{},
		sessions: &sessionsFake{},
	}
}

func (s *testServices) services() Services {
	return Services{
		Batches:  s.batches,
		Analysis: s.analysis,
		Uploads:  s.uploads,
		Jobs:     s.jobs,
		Archives: s.archives,
		Exports:  s.exports,
		Billing:  s.billing,
		Sessions: s.sessions,
	}
}

func newTestHandler(t *testing.T, svc *testServices, opts Options) http.Handler {
	t.Helper()
	handler, err := NewRouter(svc.services(), opts).Handler()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	return handler
}
