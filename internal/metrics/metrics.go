// Package metrics provides Prometheus instrumentation for the lottery engine.
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
	// WagersTotal counts wagers accepted, partitioned by lottery.
	WagersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottera_wagers_total",
		Help: "Total number of wagers accepted",
	}, []string{"lottery"})

	// WagerLatency is a histogram of wager batch execution time.
	WagerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lottera_wager_latency_seconds",
		Help:    "Wager batch execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// OpenLotteries tracks the number of lotteries accepting wagers.
	OpenLotteries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lottera_open_lotteries",
		Help: "Number of currently open lotteries",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lottera_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottera_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottera_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// AllowanceRejections counts wagers rejected by the slippage limit.
	AllowanceRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lottera_allowance_rejections_total",
		Help: "Wagers rejected by the max-allow limit",
	})

	// RewardsClaimed tracks cumulative reward-token payouts per lottery.
	RewardsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottera_rewards_claimed_total",
		Help: "Cumulative reward token paid to gamblers",
	}, []string{"lottery"})

	// FarmSharesStaked tracks the LP balance held by the farm.
	FarmSharesStaked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lottera_farm_shares_staked",
		Help: "LP tokens currently staked in the farm",
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

		// Use the route pattern for path label to avoid high cardinality.
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
