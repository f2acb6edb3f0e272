package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons for the publish error counter.
const (
	reasonMarshal = "marshal"
	reasonWrite   = "write"
)

var (
	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neomart",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Events written to Kafka, by topic.",
		},
		[]string{"topic"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neomart",
			Subsystem: "kafka",
			Name:      "publish_errors_total",
			Help:      "Events that could not be written to Kafka, by topic and failure reason.",
		},
		[]string{"topic", "reason"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neomart",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Time spent in a synchronous Kafka write.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"topic"},
	)

	messageBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neomart",
			Subsystem: "kafka",
			Name:      "message_bytes",
			Help:      "Encoded event size; cart snapshots grow with the number of lines.",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
		},
		[]string{"topic"},
	)
)
