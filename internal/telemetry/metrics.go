// Package telemetry provides application-level observability for the skill
// marketplace.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<CLAWHUB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Catalog search and skill view counters
//   - Moderation decision counters
//   - Facet cache hit/miss counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/skills/:slug)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as skill slugs or search strings.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/clawhub/clawhub/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.SkillViewsTotal.Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/skills/:slug),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
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
)

// Catalog metrics — recorded by the skill listing and detail handlers.
//
// CatalogSearchesTotal is a CounterVec with label {sort} incremented once per
// catalog listing request after query normalization, so the label values are
// the fixed whitelist of sort keys and cardinality stays bounded.
//
// Example PromQL queries:
//   - Search rate:            rate(catalog_searches_total[5m])
//   - Sort key popularity:    sum by (sort) (rate(catalog_searches_total[1h]))
//
// SkillViewsTotal is a plain Counter incremented once per skill detail fetch,
// alongside the database view counter.  Comparing its rate with the database
// counter's growth is a cheap consistency check.
var (
	CatalogSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Total number of catalog listing requests, by normalized sort key.",
		},
		[]string{"sort"},
	)

	SkillViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skill_views_total",
			Help: "Total number of skill detail fetches.",
		},
	)
)

// Moderation metrics — recorded when a decision commits.
//
// ModerationDecisionsTotal is a CounterVec with label {action} ("approve" or
// "reject").  A sustained spike in rejections is usually a spam wave.
//
// Example PromQL queries:
//   - Decisions per hour:   sum by (action) (increase(moderation_decisions_total[1h]))
//   - Approval ratio:       rate(moderation_decisions_total{action="approve"}[6h]) / rate(moderation_decisions_total[6h])
var ModerationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moderation_decisions_total",
		Help: "Total number of committed moderation decisions, by action.",
	},
	[]string{"action"},
)

// Facet cache metrics — recorded by the Redis cache layer around category,
// tag, and stats queries.
//
// FacetCacheRequestsTotal is a CounterVec with labels {facet, result} where
// result is "hit" or "miss".  A high miss rate with Redis enabled usually
// means the warmer job is not running or the TTL is too short.
//
// Example PromQL queries:
//   - Hit rate: sum(rate(facet_cache_requests_total{result="hit"}[5m])) / sum(rate(facet_cache_requests_total[5m]))
var FacetCacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "facet_cache_requests_total",
		Help: "Total number of facet cache lookups, by facet and hit/miss result.",
	},
	[]string{"facet", "result"},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <CLAWHUB_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
