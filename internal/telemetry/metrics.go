// Package telemetry provides logging setup and Prometheus metrics for the back office.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started in main.go:
//
//	GET http://<host>:<BKO_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// The endpoint is not mounted on the Gin router, so it never sits behind the
// admin bearer token and never shows up in access logs.
//
// HTTP metrics use the Gin route template (c.FullPath()) as the path label, so
// user and record IDs in URLs do not inflate label cardinality. The audit
// metrics carry the table name, which is bounded by the set of tracked entities.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Error rate (%): sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// FrontendRequestsTotal splits authenticated traffic by the front end that
	// issued the token ("admin", "main", "web"); unauthenticated requests are
	// counted as "anonymous".
	FrontendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_frontend_requests_total",
			Help: "Total number of HTTP requests, by the session type of the caller.",
		},
		[]string{"front_end"},
	)
)

// Audit trail metrics.
//
// AuditEntriesTotal counts every mutation the audit recorder saw, by outcome:
// "written" (row persisted), "skipped" (nothing to record, e.g. an update that
// changed only bookkeeping fields) and "failed" (the write errored and the
// entry is lost). A rising failed rate means the trail has gaps.
//
// Example PromQL queries:
//   - Lost entries per hour: increase(audit_entries_total{outcome="failed"}[1h])
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_entries_total",
		Help: "Total number of audited mutations, by table, action, and outcome.",
	},
	[]string{"table", "action", "outcome"},
)

// Session and analytics metrics.
var (
	SessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_started_total",
			Help: "Total number of login sessions opened, by session type.",
		},
		[]string{"type"},
	)

	SessionsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_ended_total",
			Help: "Total number of login sessions closed, by session type.",
		},
		[]string{"type"},
	)

	// AnalyticsEventsTotal is labelled by source ("admin", "main" or "other")
	// and outcome ("done", "skipped", "failed").
	AnalyticsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_total",
			Help: "Total number of analytics tracking calls, by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
)

// BestEffortFailuresTotal counts swallowed failures of secondary work such as
// audit writes, session bookkeeping and analytics tracking. The primary
// operation succeeded in every one of these cases.
//
// Example PromQL queries:
//   - Alert expression: increase(besteffort_failures_total[15m]) > 0
var BestEffortFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "besteffort_failures_total",
		Help: "Total number of failed best-effort operations, by operation name.",
	},
	[]string{"operation"},
)

// DBOpenConnections tracks open connections held by the sql.DB pool. It is
// sampled by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples pool statistics every interval until ctx is
// cancelled or the database stops answering pings.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
