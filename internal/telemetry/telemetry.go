// Package telemetry registers the Prometheus collectors exposed at
// GET /metrics, adapted from a connection/message instrumentation set
// to this service's upstream-fetch, guard, and rate-limit concerns.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every gauge/counter/histogram this service
// exports. Construct once at startup and thread it to every subsystem
// that needs to record an observation.
type Collectors struct {
	BucketAdmissions    *prometheus.CounterVec
	BreakerState        prometheus.Gauge
	BreakerTrips        prometheus.Counter
	GuardAborts         *prometheus.CounterVec
	GuardDuration       prometheus.Histogram
	CostRejections      prometheus.Counter
	HTTPRejections      prometheus.Counter
	StreamSessions      prometheus.Gauge
	StreamSessionsTotal prometheus.Counter
	UpstreamRequests    *prometheus.CounterVec
	UpstreamLatency     *prometheus.HistogramVec
}

// New registers every collector against the default registry. Calling
// it more than once will panic (duplicate registration) — callers
// build exactly one Collectors per process.
func New() *Collectors {
	return &Collectors{
		BucketAdmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sleuth_bucket_admissions_total",
			Help: "Upstream token-bucket admission outcomes.",
		}, []string{"outcome"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sleuth_circuit_breaker_state",
			Help: "Upstream circuit breaker state: 0=closed, 1=open, 2=half_open.",
		}),
		BreakerTrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sleuth_circuit_breaker_trips_total",
			Help: "Number of times the upstream circuit breaker has opened.",
		}),
		GuardAborts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sleuth_guard_aborts_total",
			Help: "Recursive-query guard aborts by reason.",
		}, []string{"reason"}),
		GuardDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sleuth_guard_query_duration_seconds",
			Help:    "Duration of guarded graph queries.",
			Buckets: prometheus.DefBuckets,
		}),
		CostRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sleuth_cost_limiter_rejections_total",
			Help: "Requests rejected by the per-caller cost budget.",
		}),
		HTTPRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sleuth_http_rate_limit_rejections_total",
			Help: "Requests rejected by the ambient per-IP HTTP rate limiter.",
		}),
		StreamSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sleuth_stream_sessions_active",
			Help: "Currently open WebSocket streaming sessions.",
		}),
		StreamSessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sleuth_stream_sessions_total",
			Help: "Total WebSocket streaming sessions opened.",
		}),
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sleuth_upstream_requests_total",
			Help: "Upstream indexer requests by outcome.",
		}, []string{"outcome"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sleuth_upstream_request_duration_seconds",
			Help:    "Upstream indexer request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
