package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

type apiFake struct {
	mu sync.Mutex

	batches     []domain.BatchSummary
	deleted     []string
	analyses    map[string]*domain.BatchAnalysis
	analysisErr error
	// analysisGate, when set, blocks GetAnalysis for the batch until closed.
	analysisGate map[string]chan struct{}
	// started receives each batch id as GetAnalysis begins.
	started chan string

	uploaded  []domain.UploadFile
	uploadRes *domain.JobState
	uploadErr error

	jobStates []domain.JobState
	jobErrs   []error
	jobCalls  int

	maskRes *domain.MaskResult
	maskErr error

	downloads    map[string]string
	downloadErrs map[string]error
	downloadWait map[string]time.Duration

	exportRes  *domain.ExportPayload
	decryptRes []byte
	decryptErr error
}

func (f *apiFake) ListBatches(context.Context) ([]domain.BatchSummary, error) {
	return f.batches, nil
}

func (f *apiFake) DeleteBatch(_ context.Context, batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, batchID)
	return nil
}

func (f *apiFake) GetAnalysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error) {
	f.mu.Lock()
	gate := f.analysisGate[batchID]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- batchID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.analysisErr != nil {
		return nil, f.analysisErr
	}
	a, ok := f.analyses[batchID]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "analysis", errors.New(batchID))
	}
	copied := *a
	return &copied, nil
}

func (f *apiFake) Upload(_ context.Context, files []domain.UploadFile) (*domain.JobState, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append([]domain.UploadFile(nil), files...)
	return f.uploadRes, nil
}

func (f *apiFake) JobStatus(context.Context, string) (*domain.JobState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.jobCalls
	f.jobCalls++
	if i < len(f.jobErrs) && f.jobErrs[i] != nil {
		return nil, f.jobErrs[i]
	}
	if i >= len(f.jobStates) {
		i = len(f.jobStates) - 1
	}
	state := f.jobStates[i]
	return &state, nil
}

func (f *apiFake) Mask(context.Context, string, domain.MaskRequest) (*domain.MaskResult, error) {
	return f.maskRes, f.maskErr
}

func (f *apiFake) Export(context.Context, string, domain.ExportRequest) (*domain.ExportPayload, error) {
	return f.exportRes, nil
}

func (f *apiFake) Decrypt(context.Context, []byte, string) ([]byte, error) {
	return f.decryptRes, f.decryptErr
}

func (f *apiFake) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	if wait := f.downloadWait[url]; wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.downloadErrs[url]; err != nil {
		return nil, err
	}
	body, ok := f.downloads[url]
	if !ok {
		return nil, errors.New("unexpected url " + url)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type jobRepoFake struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	updates []domain.JobState
}

func newJobRepoFake() *jobRepoFake {
	return &jobRepoFake{jobs: map[string]*domain.Job{}}
}

func (f *jobRepoFake) CreateJob(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *jobRepoFake) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New(jobID))
	}
	copied := *job
	return &copied, nil
}

func (f *jobRepoFake) UpdateJobState(_ context.Context, jobID string, state domain.JobState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return domain.WrapError(domain.ErrJobNotFound, "update job", errors.New(jobID))
	}
	job.Status = state.Status
	job.Progress = state.Progress
	job.Error = state.Error
	if state.BatchID != "" {
		job.BatchID = state.BatchID
	}
	f.updates = append(f.updates, state)
	return nil
}

type queueFake struct {
	submitted  []string
	completed  []domain.BatchCompleted
	publishErr error
}

func (f *queueFake) PublishUploadSubmitted(_ context.Context, jobID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.submitted = append(f.submitted, jobID)
	return nil
}

func (f *queueFake) SubscribeUploadSubmitted(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *queueFake) PublishBatchCompleted(_ context.Context, event domain.BatchCompleted) error {
	f.completed = append(f.completed, event)
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return int64(len(raw)), nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrObjectNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type blobStoreFake struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	getErr error
}

func newBlobStoreFake() *blobStoreFake {
	return &blobStoreFake{blobs: map[string][]byte{}}
}

func (f *blobStoreFake) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.blobs[key]
	return raw, ok, nil
}

func (f *blobStoreFake) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = value
	return nil
}

func (f *blobStoreFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

type pageCounterFake struct {
	pages map[string]int
	err   error
}

func (f *pageCounterFake) CountPages(filename string, _ []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.pages[filename], nil
}

type recorderFake struct {
	mu      sync.Mutex
	levels  []domain.RiskLevel
	items   []string
	watches []string
}

func (f *recorderFake) RecordRiskAssessment(level domain.RiskLevel) {
	f.levels = append(f.levels, level)
}

func (f *recorderFake) RecordArchiveItem(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, outcome)
}

func (f *recorderFake) RecordJobWatch(status string, _ time.Duration) {
	f.watches = append(f.watches, status)
}
