// Package metrics exposes forwarder activity as Prometheus collectors.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event intake
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginsight_forward_events_received_total",
			Help: "Total number of events received, by result",
		},
		[]string{"result"},
	)

	// EventsPending reads the buffer size from the source registered with
	// SetPendingSource on every scrape.
	EventsPending = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "loginsight_forward_events_pending",
			Help: "Number of encoded events waiting to be delivered",
		},
		func() float64 {
			if fn := pendingSource.Load(); fn != nil {
				return float64((*fn)())
			}
			return 0
		},
	)

	// Delivery
	Batches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginsight_forward_batches_total",
			Help: "Total number of batches posted, by result",
		},
		[]string{"result"},
	)

	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginsight_forward_events_delivered_total",
			Help: "Total number of events accepted by the server",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginsight_forward_events_dropped_total",
			Help: "Total number of events dropped with a failed batch",
		},
	)

	DeliveredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginsight_forward_delivered_bytes_total",
			Help: "Total request body bytes accepted by the server",
		},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginsight_forward_delivery_duration_seconds",
			Help:    "Duration of successful batch deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Lifecycle
	ForwarderState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loginsight_forward_state",
			Help: "Current forwarder state (0 stopped, 1 starting, 2 running, 3 stopping, 4 crashed)",
		},
	)
)

// Result label values.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultSuccess  = "success"
	ResultFailure  = "failure"
)

var pendingSource atomic.Pointer[func() int]

// SetPendingSource registers the function EventsPending reports, usually
// (*loginsight.Forwarder).Pending.
func SetPendingSource(fn func() int) {
	pendingSource.Store(&fn)
}
