// Package metrics provides Prometheus instrumentation for the risk operations service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskops",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AdapterCallsTotal counts data-provider calls by provider and result.
	AdapterCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskops",
			Name:      "adapter_calls_total",
			Help:      "Upstream signal adapter calls by provider and result (ok, error, unavailable).",
		},
		[]string{"provider", "result"},
	)

	// AdapterCallDuration observes provider latency, including retries.
	AdapterCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskops",
			Name:      "adapter_call_duration_seconds",
			Help:      "Upstream signal adapter call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// RiskScore observes composite risk scores by subject kind.
	RiskScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskops",
			Name:      "risk_score",
			Help:      "Composite risk scores in [0,1] by kind (company, industry, portfolio).",
			Buckets:   []float64{0.2, 0.4, 0.6, 0.8, 1},
		},
		[]string{"kind"},
	)

	// ConfirmationsCreated counts pending confirmations issued.
	ConfirmationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskops",
			Name:      "confirmations_created_total",
			Help:      "Pending confirmations created by action.",
		},
		[]string{"action"},
	)

	// ConfirmationOutcomes counts redemption outcomes.
	ConfirmationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskops",
			Name:      "confirmation_outcomes_total",
			Help:      "Confirmation redemptions by outcome (executed, cancelled, denied, not_found, forbidden, expired, failed).",
		},
		[]string{"outcome"},
	)

	// PendingConfirmationsSwept counts entries purged by the sweeper.
	PendingConfirmationsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskops",
		Name:      "confirmations_swept_total",
		Help:      "Expired pending confirmations purged by the sweeper.",
	})

	// ToolInvocationsTotal counts dispatched tool calls.
	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskops",
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by tool and result (ok, denied, invalid, error, pending).",
		},
		[]string{"tool", "result"},
	)

	// AuditWritesFailed counts audit entries that could not be persisted.
	AuditWritesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskops",
		Name:      "audit_write_failures_total",
		Help:      "Audit entries that failed to persist.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskops", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskops", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskops", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AdapterCallsTotal,
		AdapterCallDuration,
		RiskScore,
		ConfirmationsCreated,
		ConfirmationOutcomes,
		PendingConfirmationsSwept,
		ToolInvocationsTotal,
		AuditWritesFailed,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector samples sql.DBStats and the goroutine count into
// gauges until ctx is done. Run it in a goroutine.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath() // route pattern keeps label cardinality bounded
		if path == "" {
			path = "unmatched"
		}
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(c.Request.Method, path))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, statusBucket(c.Writer.Status())).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
