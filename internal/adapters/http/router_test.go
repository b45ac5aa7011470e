package httpadapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestHealthzIsPublic(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{JWTSecret: "s3cret"})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMissingTokenReturnsSigninRedirect(t *testing.T) {
	failures := 0
	observer := &observerFake{onAuth: func() { failures++ }}
	handler := newTestHandler(t, newTestServices(), Options{JWTSecret: "s3cret", Observer: observer})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/account", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["redirect"] != "/signin" {
		t.Fatalf("expected signin redirect, got %+v", body)
	}
	if failures != 1 {
		t.Fatalf("expected one auth failure recorded, got %d", failures)
	}
}

func TestValidTokenScopesRequestToSubject(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{JWTSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", "user-42"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.billing.userID != "user-42" {
		t.Fatalf("expected account lookup for user-42, got %q", svc.billing.userID)
	}
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{JWTSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other", "user-42"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestNoSecretUsesLocalUser(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/account", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.billing.userID != LocalUserID {
		t.Fatalf("expected local user, got %q", svc.billing.userID)
	}
}

func TestContractRejectsUnknownMaskMode(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/batches/b1/mask", strings.NewReader(`{"mode":"shred"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
}

func TestContractRejectsPageBelowOne(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/b1/detections?page=0", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListDetectionsBindsQuery(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	target := "/v1/batches/b1/detections?type=email&categories=contact&categories=identity&page=2&page_size=5"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	q := svc.analysis.lastQuery
	if q.Filter.Type != "email" || q.Page != 2 || q.PageSize != 5 {
		t.Fatalf("unexpected query: %+v", q)
	}
	if len(q.Filter.Categories) != 2 || q.Filter.Categories[0] != "contact" || q.Filter.Categories[1] != "identity" {
		t.Fatalf("unexpected categories: %+v", q.Filter.Categories)
	}
}

func TestListDetectionsDefaultsToFirstPage(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/b1/detections", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.analysis.lastQuery.Page != 1 || len(svc.analysis.lastQuery.Filter.Categories) != 0 {
		t.Fatalf("unexpected default query: %+v", svc.analysis.lastQuery)
	}
}

func TestExportDetectionsXLSX(t *testing.T) {
	svc := newTestServices()
	page := 0
	svc.analysis.report = &domain.DetectionReport{
		BatchID: "b/1",
		Rows:    []domain.DetailRow{{Type: "email", Value: "a@b.c", Filename: "a.pdf", Page: &page, Confidence: 0.9}},
		Risk:    domain.RiskAssessment{Level: domain.RiskLow},
	}
	handler := newTestHandler(t, svc, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/b1/detections.xlsx?type=email", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="detections-b1.xlsx"` {
		t.Fatalf("unexpected disposition: %q", got)
	}
	if !bytes.HasPrefix(res.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip container body")
	}
	if svc.analysis.lastQuery.Filter.Type != "email" {
		t.Fatalf("expected type filter to reach report, got %+v", svc.analysis.lastQuery)
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: domain.WrapError(domain.ErrBatchNotFound, "get analysis", errors.New("b1")), want: http.StatusNotFound},
		{name: "upstream unauthorized", err: domain.WrapError(domain.ErrUnauthorized, "get analysis", errors.New("401")), want: http.StatusUnauthorized},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "get analysis", errors.New("502")), want: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServices()
			svc.analysis.err = tt.err
			handler := newTestHandler(t, svc, Options{})

			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches/b1/analysis", nil))
			if res.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, res.Code)
			}
		})
	}
}

func TestDecryptWrongPasswordReturns422(t *testing.T) {
	svc := newTestServices()
	svc.exports.err = domain.WrapError(domain.ErrDecryptFailed, "decrypt export", errors.New("bad tag"))
	handler := newTestHandler(t, svc, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/decrypt", strings.NewReader(`{"payload":"abc","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.Code, res.Body.String())
	}
	if string(svc.exports.payload) != "abc" {
		t.Fatalf("expected string payload to be unwrapped, got %q", svc.exports.payload)
	}
}

func TestDecryptReturnsData(t *testing.T) {
	svc := newTestServices()
	svc.exports.decrypted = []byte(`{"piis":3}`)
	handler := newTestHandler(t, svc, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/decrypt", strings.NewReader(`{"payload":{"ct":"x"},"password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"data":{"piis":3}`) {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
	if string(svc.exports.payload) != `{"ct":"x"}` {
		t.Fatalf("expected object payload passed through, got %q", svc.exports.payload)
	}
}

func TestSubmitUploadAcceptsMultipart(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"a.pdf", "b.txt"} {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte("content of " + name))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if len(svc.uploads.files) != 2 || svc.uploads.files[1].Filename != "b.txt" {
		t.Fatalf("unexpected files: %+v", svc.uploads.files)
	}
	if svc.uploads.userID != LocalUserID {
		t.Fatalf("expected local user, got %q", svc.uploads.userID)
	}
}

func TestSubmitUploadWithoutFilesReturns400(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "nothing here")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetJobHidesOtherUsersJobs(t *testing.T) {
	svc := newTestServices()
	svc.jobs.job = &domain.Job{ID: "job-1", UserID: "someone-else"}
	handler := newTestHandler(t, svc, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestAssembleArchiveStreamsProgress(t *testing.T) {
	svc := newTestServices()
	svc.archives.progress = []domain.ArchiveProgress{
		{Index: 1, Total: 2, Filename: "a.pdf", OK: true},
		{Index: 2, Total: 2, Filename: "b.pdf", OK: false},
	}
	handler := newTestHandler(t, svc, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/batches/b1/archive", strings.NewReader(`{"mode":"blur"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var events []string
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		var line struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		events = append(events, line.Event)
	}
	if fmt.Sprint(events) != "[progress progress result]" {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestAssembleArchiveWithoutNDJSONReturnsSummary(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/batches/b1/archive", strings.NewReader(`{"mode":"hash"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var result domain.ArchiveResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Key != "a.zip" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDownloadArchiveRejectsBadKey(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/archives/bad%20key", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateOrderIncludesCheckoutKey(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{CheckoutKeyID: "rzp_test_key"})

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/orders", strings.NewReader(`{"plan_id":"starter"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		KeyID string       `json:"key_id"`
		Order domain.Order `json:"order"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.KeyID != "rzp_test_key" || body.Order.PlanID != "starter" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestVerifyPaymentSignatureMismatchReturns402(t *testing.T) {
	handler := newTestHandler(t, newTestServices(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/billing/verify",
		strings.NewReader(`{"order_id":"o","payment_id":"p","signature":"s"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", res.Code, res.Body.String())
	}
}

func TestSaveSessionStoresUserInfo(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{})

	req := httptest.NewRequest(http.MethodPut, "/v1/session", strings.NewReader(`{"name":"Ada","theme":"dark"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", res.Code, res.Body.String())
	}
	if svc.sessions.saved.Name != "Ada" || svc.sessions.saved.Theme != "dark" {
		t.Fatalf("unexpected saved info: %+v", svc.sessions.saved)
	}
}

func TestRouterRateLimitRecordsObserver(t *testing.T) {
	limited := 0
	observer := &observerFake{onLimited: func() { limited++ }}
	handler := newTestHandler(t, newTestServices(), Options{RateLimitRPS: 1, RateLimitBurst: 1, Observer: observer})

	for i := 0; i < 2; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/batches", nil))
		if i == 1 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 on second request, got %d", res.Code)
		}
	}
	if limited != 1 {
		t.Fatalf("expected one rate limited event, got %d", limited)
	}
}

type observerFake struct {
	onAuth    func()
	onLimited func()
}

func (o *observerFake) Middleware(next http.Handler) http.Handler { return next }

func (o *observerFake) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (o *observerFake) RecordRateLimited() {
	if o.onLimited != nil {
		o.onLimited()
	}
}

func (o *observerFake) RecordAuthFailure() {
	if o.onAuth != nil {
		o.onAuth()
	}
}

func TestDownloadsAreOpenedForTokenSubject(t *testing.T) {
	svc := newTestServices()
	handler := newTestHandler(t, svc, Options{JWTSecret: "s3cret"})
	token := signToken(t, "s3cret", "user-42")

	for _, path := range []string{"/v1/archives/a.zip", "/v1/exports/e.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, res.Code, res.Body.String())
		}
	}
	if svc.archives.owner != "user-42" || svc.exports.owner != "user-42" {
		t.Fatalf("expected downloads scoped to user-42, got archive=%q export=%q", svc.archives.owner, svc.exports.owner)
	}
}
