package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	watchTotal    *prometheus.CounterVec
	watchDuration *prometheus.HistogramVec
	watchInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	watchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_watch_total",
			Help:      "Total finished job watches by final status.",
		},
		[]string{"service", "status"},
	)
	watchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_watch_duration_seconds",
			Help:      "Time from pickup to terminal job state.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "status"},
	)
	watchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_watch_in_flight",
			Help:      "Number of jobs currently being watched.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(watchTotal, watchDuration, watchInFlight)

	return &WorkerMetrics{
		registry:      registry,
		service:       service,
		watchTotal:    watchTotal,
		watchDuration: watchDuration,
		watchInFlight: watchInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartWatch() {
	m.watchInFlight.Inc()
}

func (m *WorkerMetrics) FinishWatch() {
	m.watchInFlight.Dec()
}

// RecordJobWatch is called once per watch that reached a terminal state.
func (m *WorkerMetrics) RecordJobWatch(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.watchTotal.WithLabelValues(m.service, status).Inc()
	m.watchDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

// RecordWatchError counts watches that ended without a terminal state.
func (m *WorkerMetrics) RecordWatchError() {
	m.watchTotal.WithLabelValues(m.service, "error").Inc()
}
