package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbk_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vbk_tokens_issued_total",
			Help: "Booking tokens minted",
		},
	)

	TokenTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbk_token_transitions_total",
			Help: "Booking token lifecycle transitions",
		},
		[]string{"to"},
	)

	PaymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbk_payment_callbacks_total",
			Help: "Payment callbacks by outcome",
		},
		[]string{"outcome"},
	)

	CASConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbk_cas_conflicts_total",
			Help: "Lost compare-and-swap races by entity",
		},
		[]string{"entity"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vbk_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vbk_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox notice",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vbk_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
