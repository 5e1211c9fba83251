package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomePublished = "published"
	OutcomeRetry     = "retry"
	OutcomeParked    = "parked"
)

// OutboxMetrics records what the outbox publisher did with each event.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	lag     prometheus.Histogram
	batches prometheus.Counter
}

// NewOutboxMetrics registers the publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by event type and outcome.",
	}, []string{"event_type", "outcome"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_publish_lag_seconds",
		Help:    "Time between an event being written and being published.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 15, 60, 300},
	})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_batch_errors_total",
		Help: "Publisher batches that rolled back.",
	})
	reg.MustRegister(events, lag, batches)
	return &OutboxMetrics{events: events, lag: lag, batches: batches}
}

// IncEvent counts one event with its outcome.
func (m *OutboxMetrics) IncEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObserveLag(lag time.Duration) {
	if m == nil || m.lag == nil || lag < 0 {
		return
	}
	m.lag.Observe(lag.Seconds())
}

func (m *OutboxMetrics) IncBatchError() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
