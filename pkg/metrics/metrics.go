package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|invalid|unverified).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts policy evaluations per operation and outcome (allow|unauthenticated|forbidden).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"operation", "result"},
	)

	// Signups counts accounts created through the public signup endpoint.
	Signups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_signups_total",
			Help: "Total number of accounts created via signup",
		},
	)

	// Verifications counts verification attempts by result (verified|already_verified|invalid).
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_verifications_total",
			Help: "Total number of email verification attempts",
		},
		[]string{"result"},
	)

	// EmailsSent counts outbound emails by kind and delivery result (sent|failed).
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_emails_sent_total",
			Help: "Total number of outbound emails",
		},
		[]string{"kind", "result"},
	)

	// EmailQueueDepth reports jobs waiting in the async email dispatcher.
	EmailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "accounts_email_queue_depth",
			Help: "Number of queued outbound emails",
		},
	)

	// APIInFlight reports requests currently being served.
	APIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "accounts_api_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounts_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
