package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookPayloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_payloads_total",
			Help: "Total number of webhook payloads received (count)",
		},
		[]string{"status"},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of normalized webhook events by type and outcome (count)",
		},
		[]string{"type", "outcome"},
	)

	WebhookProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_duration_ms",
			Help:    "Payload processing duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"status"},
	)

	PlaceholderMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "placeholder_messages_total",
			Help: "Total number of placeholder records created for orphaned status updates (count)",
		},
	)

	DuplicateDeliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_deliveries_total",
			Help: "Total number of redelivered messages detected by external id (count)",
		},
	)

	MessagesStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_stored_total",
			Help: "Total number of messages persisted by kind (count)",
		},
		[]string{"kind", "direction"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of broadcast notifications by event type and status (count)",
		},
		[]string{"event", "status"},
	)

	SeenCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seen_cache_requests_total",
			Help: "Total number of duplicate fast-path cache checks by result (count)",
		},
		[]string{"result"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests seen by the rate limiter (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failed requests through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterWebhookMetrics() {
	prometheus.MustRegister(
		WebhookPayloadsTotal,
		WebhookEventsTotal,
		WebhookProcessingDuration,
		PlaceholderMessagesTotal,
		DuplicateDeliveriesTotal,
		MessagesStoredTotal,
		SeenCacheRequestsTotal,
	)
}

func RegisterNotifierMetrics() {
	prometheus.MustRegister(NotificationsTotal)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func ObserveWebhookDuration(d time.Duration, status string) {
	WebhookProcessingDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}
