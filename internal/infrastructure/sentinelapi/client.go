package sentinelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/resilience"
)

const apiKeyHeader = "X-API-Key"

// Client talks to the PII detection/masking API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (c *Client) ListBatches(ctx context.Context) ([]domain.BatchSummary, error) {
	var response struct {
		Batches []domain.BatchSummary `json:"batches"`
	}
	err := c.call(ctx, "batches.list", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/api/batches", nil, &response, "batches.list")
	})
	if err != nil {
		return nil, err
	}
	if response.Batches == nil {
		response.Batches = []domain.BatchSummary{}
	}
	return response.Batches, nil
}

func (c *Client) DeleteBatch(ctx context.Context, batchID string) error {
	path := "/api/batch/" + url.PathEscape(batchID)
	return c.call(ctx, "batches.delete", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodDelete, path, nil, nil, "batches.delete")
	})
}

func (c *Client) GetAnalysis(ctx context.Context, batchID string) (*domain.BatchAnalysis, error) {
	path := "/api/batch/" + url.PathEscape(batchID) + "/analysis"
	var analysis domain.BatchAnalysis
	err := c.call(ctx, "analysis.get", func(ctx context.Context) error {
		analysis = domain.BatchAnalysis{}
		return c.doJSON(ctx, http.MethodGet, path, nil, &analysis, "analysis.get")
	})
	if err != nil {
		return nil, err
	}
	if analysis.BatchID == "" {
		analysis.BatchID = batchID
	}
	return &analysis, nil
}

func (c *Client) Upload(ctx context.Context, files []domain.UploadFile) (*domain.JobState, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no files"))
	}

	var state domain.JobState
	err := c.call(ctx, "upload.submit", func(ctx context.Context) error {
		body, contentType, err := buildMultipart(files)
		if err != nil {
			return err
		}
		return c.do(ctx, http.MethodPost, c.baseURL+"/api/upload", contentType, body, &state, "upload.submit")
	})
	if err != nil {
		return nil, err
	}
	if state.Status == "" {
		state.Status = domain.JobQueued
	}
	return &state, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.JobState, error) {
	path := "/api/job/" + url.PathEscape(jobID)
	var state domain.JobState
	err := c.call(ctx, "job.status", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &state, "job.status")
	})
	if err != nil {
		return nil, err
	}
	if state.JobID == "" {
		state.JobID = jobID
	}
	return &state, nil
}

func (c *Client) Mask(ctx context.Context, batchID string, req domain.MaskRequest) (*domain.MaskResult, error) {
	path := "/api/batch/" + url.PathEscape(batchID) + "/mask"
	var result domain.MaskResult
	err := c.call(ctx, "batch.mask", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, req, &result, "batch.mask")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Export(ctx context.Context, batchID string, req domain.ExportRequest) (*domain.ExportPayload, error) {
	path := "/api/batch/" + url.PathEscape(batchID) + "/export"
	var raw json.RawMessage
	err := c.call(ctx, "batch.export", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, req, &raw, "batch.export")
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Encrypted bool `json:"encrypted"`
	}
	_ = json.Unmarshal(raw, &envelope)
	return &domain.ExportPayload{Encrypted: envelope.Encrypted, Data: []byte(raw)}, nil
}

func (c *Client) Decrypt(ctx context.Context, payload []byte, password string) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, domain.WrapError(domain.ErrDecryptFailed, "decrypt", errors.New("payload is not valid json"))
	}
	request := map[string]any{
		"payload":  json.RawMessage(payload),
		"password": password,
	}

	var response struct {
		Data json.RawMessage `json:"data"`
	}
	err := c.call(ctx, "payload.decrypt", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/api/decrypt", request, &response, "payload.decrypt")
	})
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && isDecryptRejection(statusErr.StatusCode) {
			return nil, domain.WrapError(domain.ErrDecryptFailed, "decrypt", err)
		}
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, domain.WrapError(domain.ErrDecryptFailed, "decrypt", errors.New("empty decrypted payload"))
	}
	return []byte(response.Data), nil
}

// Download opens a file URL returned by the mask endpoint. Relative URLs are
// resolved against the base URL. The API key is only sent to the base URL's
// own scheme and host.
func (c *Client) Download(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	target := c.resolve(fileURL)
	var body io.ReadCloser
	err := c.call(ctx, "file.download", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create file.download request: %w", err)
		}
		if c.sameOrigin(req.URL) {
			c.authorize(req)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sentinel file.download request: %w", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return newHTTPStatusError("file.download", resp)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "sentinel."+operation, fn, classifySentinelError)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(operation, mapStatusKind(operation, err))
	}
	return nil
}

func (c *Client) resolve(fileURL string) string {
	if strings.HasPrefix(fileURL, "http://") || strings.HasPrefix(fileURL, "https://") {
		return fileURL
	}
	return c.baseURL + "/" + strings.TrimLeft(fileURL, "/")
}

func (c *Client) sameOrigin(target *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil || target == nil {
		return false
	}
	return strings.EqualFold(base.Scheme, target.Scheme) && strings.EqualFold(base.Host, target.Host)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
}

func buildMultipart(files []domain.UploadFile) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create multipart part %s: %w", f.Filename, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write multipart part %s: %w", f.Filename, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func isDecryptRejection(statusCode int) bool {
	return statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity || statusCode == http.StatusForbidden
}
