package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Checkout outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeFailed    = "failed"
)

// CheckoutMetrics records point-of-sale submissions.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
	revenue  *prometheus.CounterVec
	items    prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout submissions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Time spent persisting a checkout.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "revenue_total",
			Help:      "Sum of completed sale totals by payment type.",
		}, []string{"payment_type"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "items_sold_total",
			Help:      "Units sold across completed checkouts.",
		}),
	}
	reg.MustRegister(m.attempts, m.duration, m.revenue, m.items)
	return m
}

// ObserveAttempt counts one submission and its duration.
func (m *CheckoutMetrics) ObserveAttempt(outcome string, took time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(took.Seconds())
}

// ObserveSale adds a completed sale to the revenue and unit counters.
func (m *CheckoutMetrics) ObserveSale(paymentType string, total decimal.Decimal, units int) {
	if m == nil || m.revenue == nil {
		return
	}
	m.revenue.WithLabelValues(normalizeLabel(paymentType)).Add(total.InexactFloat64())
	if units > 0 {
		m.items.Add(float64(units))
	}
}

// normalizeLabel keeps blank label values out of the series set.
func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
