package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repairshop"

// CronMetrics records scheduled maintenance runs. A nil *CronMetrics is a
// no-op recorder.
type CronMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
}

func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return nil
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Cron job run time.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run; alert when it goes stale.",
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because another worker held the lock.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.skipped)
	return m
}

// ObserveRun records one finished run of job.
func (m *CronMetrics) ObserveRun(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, OutcomeFailed).Inc()
		return
	}
	m.runs.WithLabelValues(job, OutcomeCompleted).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func (m *CronMetrics) SkippedCycle() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
