// Package metrics registers the Prometheus collectors shared by the server.
// HTTP request metrics are recorded by the httpapi middleware; the rest are
// incremented by the services that own the event.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "securecloud"

var (
	// HTTPRequestsTotal counts handled requests by chi route pattern.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuditRecordFailures counts audit entries that could not be written.
	// The primary operation still succeeded when this goes up.
	AuditRecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_record_failures_total",
		Help:      "Audit log inserts that failed and were dropped.",
	})

	// AuthFailures counts rejected logins and session checks by reason.
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credential or session checks.",
		},
		[]string{"reason"},
	)

	SessionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_hits_total",
		Help:      "Session lookups served from the in-process cache.",
	})

	SessionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_misses_total",
		Help:      "Session lookups that went to the database.",
	})

	// IntegrityFailures counts stored ciphertexts that failed authentication.
	IntegrityFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_failures_total",
			Help:      "Stored items whose ciphertext failed the integrity check.",
		},
		[]string{"kind"},
	)
)

// Auth failure reasons.
const (
	ReasonBadCredentials = "bad_credentials"
	ReasonBadToken       = "bad_token"
	ReasonNoSession      = "no_session"
	ReasonExpired        = "expired"
)
