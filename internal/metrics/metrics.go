package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Helix API Metrics
var (
	// HelixRequestsTotal counts every HTTP round trip by endpoint and status.
	// Transport failures are recorded with status "error".
	HelixRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_requests_total",
			Help: "Total Helix API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// HelixRequestDuration tracks round trip latency
	HelixRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helix_request_duration_seconds",
			Help:    "Helix API request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// HelixRetriesTotal counts retries by reason (throttled, transport, reauth)
	HelixRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_retries_total",
			Help: "Total Helix API retries by reason",
		},
		[]string{"reason"},
	)
)

// Rate gate and token metrics
var (
	// RateLimitWaitSeconds tracks time spent queued for a request permit
	RateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ratelimit_wait_seconds",
			Help:    "Time spent waiting for a request permit",
			Buckets: []float64{.01, .1, 1, 5, 15, 30, 60},
		},
	)

	// TokenRefreshesTotal counts token exchanges by result (success, failure)
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total app token exchanges by result",
		},
		[]string{"result"},
	)
)

// Collection Metrics
var (
	// CollectionCreatorsTotal counts creators accepted per phase
	CollectionCreatorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_creators_total",
			Help: "Creators accepted into the result set by phase",
		},
		[]string{"phase"},
	)

	// CollectionPhaseErrorsTotal counts failures that ended or degraded a phase
	CollectionPhaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_phase_errors_total",
			Help: "Errors recorded per collection phase",
		},
		[]string{"phase"},
	)
)
