package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func TestExportStoresPayload(t *testing.T) {
	api := &apiFake{exportRes: &domain.ExportPayload{Encrypted: true, Data: []byte(`{"encrypted":true,"payload":"xx"}`)}}
	storage := newStorageFake()
	svc := NewExportService(api, storage)

	result, err := svc.Export(context.Background(), "u-1", "b-1", domain.ExportRequest{Password: "pw"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !result.Encrypted || result.Bytes != len(api.exportRes.Data) {
		t.Fatalf("unexpected result: %+v", result)
	}

	rc, err := svc.OpenExport(context.Background(), "u-1", result.Key)
	if err != nil {
		t.Fatalf("OpenExport() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != string(api.exportRes.Data) {
		t.Fatalf("stored payload mismatch: %s", body)
	}
}

func TestOpenExportMissingKey(t *testing.T) {
	svc := NewExportService(&apiFake{}, newStorageFake())
	if _, err := svc.OpenExport(context.Background(), "u-1", "nope.json"); !domain.IsKind(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestDecryptValidatesInput(t *testing.T) {
	svc := NewExportService(&apiFake{}, newStorageFake())
	if _, err := svc.Decrypt(context.Background(), nil, "pw"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty payload, got %v", err)
	}
	if _, err := svc.Decrypt(context.Background(), []byte("{}"), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestDecryptSurfacesWrongPassword(t *testing.T) {
	api := &apiFake{decryptErr: domain.WrapError(domain.ErrDecryptFailed, "decrypt", errors.New("403"))}
	svc := NewExportService(api, newStorageFake())

	if _, err := svc.Decrypt(context.Background(), []byte(`{"payload":"x"}`), "wrong"); !domain.IsKind(err, domain.ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestOpenExportIsScopedToOwner(t *testing.T) {
	api := &apiFake{exportRes: &domain.ExportPayload{Data: []byte(`{"rows":[]}`)}}
	svc := NewExportService(api, newStorageFake())

	result, err := svc.Export(context.Background(), "u-1", "b-1", domain.ExportRequest{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := svc.OpenExport(context.Background(), "u-2", result.Key); !domain.IsKind(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected another user's export to be not found, got %v", err)
	}
	if _, err := svc.OpenExport(context.Background(), "", result.Key); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without a user, got %v", err)
	}
	if ownedKey(exportPrefix, "../..", result.Key) == ownedKey(exportPrefix, "u-1", result.Key) {
		t.Fatalf("expected distinct owner directories")
	}
}
