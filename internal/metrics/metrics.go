// Package metrics provides Prometheus instrumentation for the ledger engine.
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
	// MarketsCreated counts markets opened on the ledger.
	MarketsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_markets_created_total",
		Help: "Total number of markets created",
	})

	// MarketsResolved counts terminal resolutions, partitioned by outcome.
	MarketsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_markets_resolved_total",
		Help: "Total number of markets resolved",
	}, []string{"outcome"})

	// BetsTotal counts accepted bets, partitioned by side.
	BetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bets_total",
		Help: "Total number of bets accepted",
	}, []string{"side"})

	// StakeVolume accumulates staked value, partitioned by side.
	StakeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_stake_volume_total",
		Help: "Cumulative stake moved into custody",
	}, []string{"side"})

	// ClaimsTotal counts successful winner settlements.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_claims_total",
		Help: "Total number of successful claims",
	})

	// ClaimValue accumulates value released from custody to winners.
	ClaimValue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_claim_value_total",
		Help: "Cumulative value paid out to winners",
	})

	// GuardRejections counts mutating calls refused by the guard layer.
	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_guard_rejections_total",
		Help: "Calls rejected by the guard layer",
	}, []string{"reason"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
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
