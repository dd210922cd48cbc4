package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_orders_created_total",
		Help: "Total number of orders successfully created.",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_status_transitions_total",
		Help: "Total number of recorded status changes by target status.",
	},
		[]string{"status"},
	)

	StatusRegressionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_status_regressions_total",
		Help: "Status changes that moved an order backwards in the fulfilment sequence.",
	})

	ReviewsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_reviews_submitted_total",
		Help: "Total number of customer reviews accepted.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_outbox_published_total",
		Help: "Outbox tasks handed to the producer, by result.",
	},
		[]string{"result"},
	)

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_realtime_subscribers",
		Help: "Current number of change event subscribers.",
	})

	RealtimeDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_realtime_dropped_total",
		Help: "Change events dropped because a subscriber was not keeping up.",
	},
		[]string{"table"},
	)

	OrderCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_order_cache_items",
		Help: "Current number of items in the order cache.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"route", "code"},
	)
)
