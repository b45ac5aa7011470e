package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

const (
	archivePrefix = "archives/"

	ArchiveItemIncluded = "included"
	ArchiveItemSkipped  = "skipped"
)

type ArchiveService struct {
	api         ports.SentinelAPI
	storage     ports.ObjectStorage
	concurrency int
	recorder    ports.ArchiveRecorder
	logger      *slog.Logger
}

type ArchiveOptions struct {
	// Concurrency bounds parallel downloads; 1 downloads sequentially.
	Concurrency int
	Recorder    ports.ArchiveRecorder
	Logger      *slog.Logger
}

func NewArchiveService(api ports.SentinelAPI, storage ports.ObjectStorage, opts ArchiveOptions) *ArchiveService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ArchiveService{
		api:         api,
		storage:     storage,
		concurrency: opts.Concurrency,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
	}
}

func (s *ArchiveService) Mask(ctx context.Context, batchID string, req domain.MaskRequest) (*domain.MaskResult, error) {
	if err := validateBatchID(batchID); err != nil {
		return nil, err
	}
	if !req.Mode.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "mask batch", fmt.Errorf("unsupported mask mode %q", req.Mode))
	}
	result, err := s.api.Mask(ctx, batchID, req)
	if err != nil {
		return nil, fmt.Errorf("mask batch: %w", err)
	}
	return result, nil
}

type downloaded struct {
	name string
	data []byte
	err  error
}

// Assemble masks the batch and stores every masked file in one zip archive
// owned by userID. Items that fail to download are skipped and listed in the
// result.
func (s *ArchiveService) Assemble(
	ctx context.Context,
	userID, batchID string,
	req domain.MaskRequest,
	progress func(domain.ArchiveProgress),
) (*domain.ArchiveResult, error) {
	if err := validateOwner(userID); err != nil {
		return nil, err
	}
	masked, err := s.Mask(ctx, batchID, req)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(domain.ArchiveProgress) {}
	}

	key := uuid.NewString() + ".zip"
	if masked.ArchiveURL != "" {
		return s.storeUpstreamArchive(ctx, userID, key, masked.ArchiveURL, progress)
	}
	if len(masked.Files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "assemble archive", errors.New("mask produced no files"))
	}

	items := s.downloadAll(ctx, masked.Files, progress)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assemble archive: %w", err)
	}

	result := &domain.ArchiveResult{Key: key, Included: []string{}}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make(map[string]int, len(items))
	for _, item := range items {
		if item.err != nil {
			result.Skipped = append(result.Skipped, item.name)
			continue
		}
		w, err := zw.Create(uniqueName(names, item.name))
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", item.name, err)
		}
		if _, err := w.Write(item.data); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", item.name, err)
		}
		result.Included = append(result.Included, item.name)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if len(result.Included) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "assemble archive", errors.New("every download failed"))
	}

	n, err := s.storage.Save(ctx, ownedKey(archivePrefix, userID, key), &buf)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	result.Bytes = n
	return result, nil
}

// OpenArchive opens an archive assembled for userID. Keys of other users
// resolve to ErrObjectNotFound.
func (s *ArchiveService) OpenArchive(ctx context.Context, userID, key string) (io.ReadCloser, error) {
	if err := validateOwner(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open archive", fmt.Errorf("invalid key %q", key))
	}
	rc, err := s.storage.Open(ctx, ownedKey(archivePrefix, userID, key))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return rc, nil
}

// downloadAll fetches files through a bounded pool and reports progress in
// input order regardless of completion order.
func (s *ArchiveService) downloadAll(
	ctx context.Context,
	files []domain.MaskedFile,
	progress func(domain.ArchiveProgress),
) []downloaded {
	items := make([]downloaded, len(files))
	done := make([]chan struct{}, len(files))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	go func() {
		for i := range files {
			g.Go(func() error {
				defer close(done[i])
				items[i] = downloaded{name: fileName(files[i])}
				items[i].data, items[i].err = s.fetch(ctx, files[i].URL)
				return nil
			})
		}
	}()

	for i := range files {
		<-done[i]
		ok := items[i].err == nil
		outcome := ArchiveItemIncluded
		if !ok {
			outcome = ArchiveItemSkipped
			s.logger.Warn("archive_item_skipped", "filename", items[i].name, "error", items[i].err)
		}
		if s.recorder != nil {
			s.recorder.RecordArchiveItem(outcome)
		}
		progress(domain.ArchiveProgress{Index: i, Total: len(files), Filename: items[i].name, OK: ok})
	}
	_ = g.Wait()
	return items
}

func (s *ArchiveService) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.api.Download(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ArchiveService) storeUpstreamArchive(
	ctx context.Context,
	userID, key, archiveURL string,
	progress func(domain.ArchiveProgress),
) (*domain.ArchiveResult, error) {
	name := fileName(domain.MaskedFile{URL: archiveURL})
	rc, err := s.api.Download(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer rc.Close()

	n, err := s.storage.Save(ctx, ownedKey(archivePrefix, userID, key), rc)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordArchiveItem(ArchiveItemIncluded)
	}
	progress(domain.ArchiveProgress{Index: 0, Total: 1, Filename: name, OK: true})
	return &domain.ArchiveResult{Key: key, Included: []string{name}, Bytes: n}, nil
}

func fileName(f domain.MaskedFile) string {
	if f.Filename != "" {
		return sanitizeFilename(f.Filename)
	}
	if u, err := url.Parse(f.URL); err == nil && u.Path != "" {
		return sanitizeFilename(path.Base(u.Path))
	}
	return "document.bin"
}

func uniqueName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}
