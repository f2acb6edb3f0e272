package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	// CartOperations counts cart mutations by operation and result.
	CartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neomart_cart_operations_total",
			Help: "Total number of cart operations",
		},
		[]string{"operation", "result"},
	)

	// CartVersionConflicts counts optimistic-lock conflicts, including ones
	// that succeeded on retry.
	CartVersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neomart_cart_version_conflicts_total",
			Help: "Total number of cart version conflicts",
		},
	)

	// OrdersPlaced counts placed orders by delivery mode.
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neomart_orders_placed_total",
			Help: "Total number of orders placed",
		},
		[]string{"mode"},
	)

	// OrderValue observes order totals in the order currency.
	OrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neomart_order_total_value",
			Help:    "Order total value",
			Buckets: []float64{10, 25, 50, 75, 100, 150, 250, 500},
		},
	)

	// EventPublishFailures counts domain events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neomart_event_publish_failures_total",
			Help: "Total number of domain events that failed to publish",
		},
		[]string{"topic"},
	)
)

func recordCartOp(operation string, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	CartOperations.WithLabelValues(operation, result).Inc()
}
