package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

// Services are the inbound ports the HTTP API drives.
type Services struct {
	Batches  ports.BatchManager
	Analysis ports.AnalysisReader
	Uploads  ports.UploadSubmitter
	Jobs     ports.JobReader
	Archives ports.ArchiveAssembler
	Exports  ports.Exporter
	Billing  ports.BillingManager
	Sessions ports.SessionManager
}

// Observer receives middleware level events; metrics.HTTPServerMetrics
// satisfies it.
type Observer interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RecordRateLimited()
	RecordAuthFailure()
}

type Options struct {
	JWTSecret         string
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxInFlight       int
	BackpressureWait  time.Duration
	MaxUploadBytes    int64
	CheckoutKeyID     string
	Observer          Observer
	DisableValidation bool
}

type Router struct {
	svc  Services
	opts Options
}

func NewRouter(svc Services, opts Options) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if opts.BackpressureWait <= 0 {
		opts.BackpressureWait = 50 * time.Millisecond
	}
	return &Router{svc: svc, opts: opts}
}

func (rt *Router) Handler() (http.Handler, error) {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/batches", rt.listBatches)
	api.HandleFunc("DELETE /v1/batches/{id}", rt.deleteBatch)
	api.HandleFunc("GET /v1/batches/{id}/analysis", rt.getAnalysis)
	api.HandleFunc("GET /v1/batches/{id}/overview", rt.getOverview)
	api.HandleFunc("GET /v1/batches/{id}/detections", rt.listDetections)
	api.HandleFunc("GET /v1/batches/{id}/detections.xlsx", rt.exportDetectionsXLSX)
	api.HandleFunc("POST /v1/batches/{id}/mask", rt.maskBatch)
	api.HandleFunc("POST /v1/batches/{id}/archive", rt.assembleArchive)
	api.HandleFunc("POST /v1/batches/{id}/export", rt.exportBatch)
	api.HandleFunc("GET /v1/archives/{key}", rt.downloadArchive)
	api.HandleFunc("GET /v1/exports/{key}", rt.downloadExport)
	api.HandleFunc("POST /v1/decrypt", rt.decrypt)
	api.HandleFunc("POST /v1/uploads", rt.submitUpload)
	api.HandleFunc("GET /v1/jobs/{id}", rt.getJob)
	api.HandleFunc("GET /v1/billing/plans", rt.listPlans)
	api.HandleFunc("POST /v1/billing/orders", rt.createOrder)
	api.HandleFunc("POST /v1/billing/verify", rt.verifyPayment)
	api.HandleFunc("GET /v1/account", rt.getAccount)
	api.HandleFunc("GET /v1/session", rt.getSession)
	api.HandleFunc("PUT /v1/session", rt.saveSession)

	var protected http.Handler = api
	if !rt.opts.DisableValidation {
		contract, err := loadContract()
		if err != nil {
			return nil, err
		}
		protected = validationMiddleware(protected, contract)
	}
	protected = authMiddleware(protected, []byte(rt.opts.JWTSecret), rt.onAuthFailure)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.opts.Observer != nil {
		root.Handle("GET /metrics", rt.opts.Observer.Handler())
	}
	root.Handle("/", protected)

	var handler http.Handler = root
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.onRateLimited)
	if rt.opts.Observer != nil {
		handler = rt.opts.Observer.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) onAuthFailure() {
	if rt.opts.Observer != nil {
		rt.opts.Observer.RecordAuthFailure()
	}
}

func (rt *Router) onRateLimited() {
	if rt.opts.Observer != nil {
		rt.opts.Observer.RecordRateLimited()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func logHandlerWarning(r *http.Request, event string, attrs ...any) {
	attrs = append([]any{"request_id", requestIDFromContext(r.Context())}, attrs...)
	slog.Warn(event, attrs...)
}
