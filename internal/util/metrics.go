package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_created_total",
		Help: "Total number of transactions created",
	})

	TransactionsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_submitted_total",
		Help: "Total number of transactions moved to awaiting_verification",
	})

	TransactionsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_verified_total",
		Help: "Total number of transactions verified",
	})

	TransactionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_rejected_total",
		Help: "Total number of transactions rejected",
	})

	TransactionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_expired_total",
		Help: "Total number of transactions expired",
	})

	VerificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_failed_total",
		Help: "Total number of failed verification attempts",
	}, []string{"reason"})

	VerificationConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_conflicts_total",
		Help: "Total number of verification attempts lost to a concurrent actor",
	})

	FanOutOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_orders_created_total",
		Help: "Total number of orders created by verification fan-out",
	})

	VerificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verification_latency_seconds",
		Help:    "Latency of verification fan-out operations",
		Buckets: prometheus.DefBuckets,
	})

	FulfillmentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_transitions_total",
		Help: "Total number of order fulfillment transitions",
	}, []string{"status"})

	FulfillmentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_transitions_failed_total",
		Help: "Total number of rejected fulfillment transition requests",
	}, []string{"reason"})

	NotificationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Total number of notification events published",
	})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Total number of swallowed notification delivery failures",
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
