package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

const exportPrefix = "exports/"

// ownerNamespace derives per-user storage directories, so arbitrary user ids
// never reach the object store as path segments.
var ownerNamespace = uuid.MustParse("5b0f2c1e-8d4a-4f57-9a43-2f6de1c7b8a9")

// ownedKey places key under a directory derived from userID.
func ownedKey(prefix, userID, key string) string {
	return prefix + uuid.NewSHA1(ownerNamespace, []byte(userID)).String() + "/" + key
}

func validateOwner(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, "resolve owner", errors.New("user id is required"))
	}
	return nil
}

type ExportService struct {
	api     ports.SentinelAPI
	storage ports.ObjectStorage
}

func NewExportService(api ports.SentinelAPI, storage ports.ObjectStorage) *ExportService {
	return &ExportService{api: api, storage: storage}
}

// Export stores the batch export under a fresh key owned by userID.
func (s *ExportService) Export(ctx context.Context, userID, batchID string, req domain.ExportRequest) (*domain.ExportResult, error) {
	if err := validateOwner(userID); err != nil {
		return nil, err
	}
	if err := validateBatchID(batchID); err != nil {
		return nil, err
	}
	payload, err := s.api.Export(ctx, batchID, req)
	if err != nil {
		return nil, fmt.Errorf("export batch: %w", err)
	}

	ext := ".json"
	if payload.Encrypted {
		ext = ".enc.json"
	}
	key := uuid.NewString() + ext
	if _, err := s.storage.Save(ctx, ownedKey(exportPrefix, userID, key), bytes.NewReader(payload.Data)); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	return &domain.ExportResult{
		Key:       key,
		Encrypted: payload.Encrypted,
		Bytes:     len(payload.Data),
	}, nil
}

func (s *ExportService) OpenExport(ctx context.Context, userID, key string) (io.ReadCloser, error) {
	if err := validateOwner(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open export", fmt.Errorf("invalid key %q", key))
	}
	rc, err := s.storage.Open(ctx, ownedKey(exportPrefix, userID, key))
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	return rc, nil
}

// Decrypt opens an encrypted export. A wrong password surfaces as
// domain.ErrDecryptFailed.
func (s *ExportService) Decrypt(ctx context.Context, payload []byte, password string) ([]byte, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decrypt export", errors.New("payload is required"))
	}
	if password == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decrypt export", errors.New("password is required"))
	}
	data, err := s.api.Decrypt(ctx, payload, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt export: %w", err)
	}
	return data, nil
}
