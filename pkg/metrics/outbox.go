package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox row outcomes used as the "outcome" label.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics records the publisher loop. A nil *OutboxMetrics is a no-op
// recorder.
type OutboxMetrics struct {
	settled *prometheus.CounterVec
	publish *prometheus.HistogramVec
	batch   prometheus.Histogram
	lag     prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox rows settled by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		publish: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_duration_seconds",
			Help:      "Time from Publish to the server ack, per topic.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_rows",
			Help:      "Rows claimed per non-empty batch.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "oldest_row_age_seconds",
			Help:      "Age of the oldest row in the last claimed batch.",
		}),
	}
	reg.MustRegister(m.settled, m.publish, m.batch, m.lag)
	return m
}

func (m *OutboxMetrics) Settled(eventType, outcome string) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) ObservePublish(topic string, took time.Duration) {
	if m == nil {
		return
	}
	m.publish.WithLabelValues(normalizeLabel(topic)).Observe(took.Seconds())
}

// ObserveBatch records a claimed batch and how long its oldest row waited.
func (m *OutboxMetrics) ObserveBatch(rows int, oldest time.Duration) {
	if m == nil || rows == 0 {
		return
	}
	m.batch.Observe(float64(rows))
	m.lag.Set(oldest.Seconds())
}
