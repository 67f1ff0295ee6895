// Package metrics provides Prometheus instrumentation for the equilibrium
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SolvesTotal counts completed solves, partitioned by economy kind
	// and variant.
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqmx_solves_total",
		Help: "Total number of equilibrium solves completed",
	}, []string{"kind", "variant"})

	// SolveFailures counts failed solves by structural reason
	// (non_satiation, no_equilibrium, degenerate_numeraire, invalid).
	SolveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqmx_solve_failures_total",
		Help: "Total number of failed equilibrium solves by reason",
	}, []string{"reason"})

	// SolveLatency tracks solve duration by kind and variant.
	SolveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eqmx_solve_latency_seconds",
		Help:    "Equilibrium solve latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "variant"})

	// ActiveScenarios tracks the number of stored scenarios.
	ActiveScenarios = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eqmx_active_scenarios",
		Help: "Number of stored scenarios",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eqmx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqmx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eqmx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// GuardRejections counts requests rejected by the size limiter.
	GuardRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eqmx_guard_rejections_total",
		Help: "Requests rejected by the problem-size limiter",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
