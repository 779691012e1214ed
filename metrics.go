// FILE: metrics.go
package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are package-level so several shippers share one registration,
// distinguished by the destination label.
var (
	metricEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_records_enqueued_total",
		Help: "Records admitted to the delivery queue.",
	}, []string{"destination"})

	metricDroppedAdmit = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_records_discarded_total",
		Help: "Records rejected or evicted by the discard policy.",
	}, []string{"destination"})

	metricDroppedDelivery = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_records_dropped_total",
		Help: "Records dropped after exhausted retries or terminal failures.",
	}, []string{"destination"})

	metricDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_records_delivered_total",
		Help: "Records confirmed delivered to the destination.",
	}, []string{"destination"})

	metricBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_batches_sent_total",
		Help: "Successful remote send calls.",
	}, []string{"destination"})

	metricRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_send_retries_total",
		Help: "Retry attempts for retryable remote failures.",
	}, []string{"destination"})

	metricSendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_send_failures_total",
		Help: "Batches that reached a terminal delivery failure.",
	}, []string{"destination"})
)

// metricSet holds the per-destination child counters. A nil metricSet is
// valid and counts nothing; every method is nil-safe so call sites stay
// unconditional.
type metricSet struct {
	enqueued        prometheus.Counter
	droppedAdmit    prometheus.Counter
	droppedDelivery prometheus.Counter
	delivered       prometheus.Counter
	batches         prometheus.Counter
	retries         prometheus.Counter
	sendFailures    prometheus.Counter
}

func newMetricSet(destination string) *metricSet {
	return &metricSet{
		enqueued:        metricEnqueued.WithLabelValues(destination),
		droppedAdmit:    metricDroppedAdmit.WithLabelValues(destination),
		droppedDelivery: metricDroppedDelivery.WithLabelValues(destination),
		delivered:       metricDelivered.WithLabelValues(destination),
		batches:         metricBatches.WithLabelValues(destination),
		retries:         metricRetries.WithLabelValues(destination),
		sendFailures:    metricSendFailures.WithLabelValues(destination),
	}
}

func (m *metricSet) addEnqueued() {
	if m == nil {
		return
	}
	m.enqueued.Inc()
}

func (m *metricSet) addDroppedAdmit(n uint64) {
	if m == nil {
		return
	}
	m.droppedAdmit.Add(float64(n))
}

func (m *metricSet) addDroppedDelivery(n uint64) {
	if m == nil {
		return
	}
	m.droppedDelivery.Add(float64(n))
}

func (m *metricSet) addDelivered(n uint64) {
	if m == nil {
		return
	}
	m.delivered.Add(float64(n))
	m.batches.Inc()
}

func (m *metricSet) addRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *metricSet) addSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}
