package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_lifecycle",
			Subsystem: "http",
			Name:      "orders_created_total",
			Help:      "Total number of orders created",
		},
	)

	ordersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_lifecycle",
			Subsystem: "http",
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled",
		},
	)

	fulfillmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_lifecycle",
			Subsystem: "http",
			Name:      "fulfillments_created_total",
			Help:      "Total number of fulfillments created",
		},
	)

	refundsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_lifecycle",
			Subsystem: "http",
			Name:      "refunds_created_total",
			Help:      "Total number of refunds created",
		},
	)

	gatewayErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_lifecycle",
			Subsystem: "http",
			Name:      "gateway_errors_total",
			Help:      "Total number of requests failed on an external dependency",
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(
		ordersCreated,
		ordersCancelled,
		fulfillmentsCreated,
		refundsCreated,
		gatewayErrors,
	)
}
