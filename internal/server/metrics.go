package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus metrics on a private registry.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	detectionsTotal prometheus.Counter
	storageFailures prometheus.Counter
	authDenials     *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		detectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_detections_total",
				Help: "Total number of objects detected across all requests",
			},
		),
		storageFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_storage_failures_total",
				Help: "Total number of best-effort persistence failures",
			},
		),
		authDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_denials_total",
				Help: "Total number of rejected admin requests by reason",
			},
			[]string{"reason"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.detectionsTotal,
		m.storageFailures,
		m.authDenials,
	)
	return m
}

// Handler returns the Prometheus exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations per endpoint.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := endpointName(r.URL.Path)
		m.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func endpointName(path string) string {
	switch path {
	case "/health":
		return "health"
	case "/predict":
		return "predict"
	case "/admin/history":
		return "admin_history"
	case "/metrics":
		return "metrics"
	default:
		return "unknown"
	}
}
