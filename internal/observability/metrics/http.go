package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const namespace = "pii_sentinel"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	riskAssessmentsTotal *prometheus.CounterVec
	archiveItemsTotal    *prometheus.CounterVec
	rateLimitedTotal     *prometheus.CounterVec
	authFailuresTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	riskAssessmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "risk_assessments_total",
			Help:      "Total computed risk assessments by level.",
		},
		[]string{"service", "level"},
	)
	archiveItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "items_total",
			Help:      "Masked files handled during archive assembly by outcome.",
		},
		[]string{"service", "outcome"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"service"},
	)
	authFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Requests rejected for missing or invalid credentials.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		riskAssessmentsTotal,
		archiveItemsTotal,
		rateLimitedTotal,
		authFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		service:              service,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		riskAssessmentsTotal: riskAssessmentsTotal,
		archiveItemsTotal:    archiveItemsTotal,
		rateLimitedTotal:     rateLimitedTotal,
		authFailuresTotal:    authFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// parameterized collections whose second segment is an identifier
var idCollections = map[string]string{
	"batches":  "{id}",
	"jobs":     "{id}",
	"archives": "{key}",
	"exports":  "{key}",
}

func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return path
	}
	placeholder, ok := idCollections[parts[1]]
	if !ok {
		return path
	}
	parts[2] = placeholder
	return "/" + strings.Join(parts, "/")
}

func (m *HTTPServerMetrics) RecordRiskAssessment(level domain.RiskLevel) {
	if level == "" {
		level = "UNKNOWN"
	}
	m.riskAssessmentsTotal.WithLabelValues(m.service, string(level)).Inc()
}

func (m *HTTPServerMetrics) RecordArchiveItem(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.archiveItemsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.WithLabelValues(m.service).Inc()
}

func (m *HTTPServerMetrics) RecordAuthFailure() {
	m.authFailuresTotal.WithLabelValues(m.service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
