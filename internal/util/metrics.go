package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of order writes rejected by validation",
	}, []string{"reason"})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of deleted orders",
	})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Total number of order status changes",
	}, []string{"from", "to"})

	OrderVersionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_version_conflicts_total",
		Help: "Total number of order updates rejected by a version check",
	})

	OrdersBySeverity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orders_by_severity",
		Help: "Number of orders per aging tier at the last dashboard evaluation",
	}, []string{"severity"})

	OrdersOverdue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orders_overdue",
		Help: "Number of orders past their red threshold at the last dashboard evaluation",
	})

	IllegalTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_illegal_transitions_total",
		Help: "Status changes observed outside the transition graph",
	}, []string{"from", "to"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_consumed_total",
		Help: "Total number of order events handled by the auditor",
	}, []string{"type"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_published_total",
		Help: "Total number of order events written to Kafka",
	}, []string{"type"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_publish_failed_total",
		Help: "Order events that could not be written to Kafka",
	}, []string{"type"})

	EventsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_failed_total",
		Help: "Consumed order events skipped after exhausting retries",
	}, []string{"type"})

	SlaCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_cache_lookups_total",
		Help: "SLA defaults cache lookups",
	}, []string{"result"})

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
