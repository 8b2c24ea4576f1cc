package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rollup outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// RollupMetrics tracks per-family recompute runs of the daily rollup.
type RollupMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

// NewRollupMetrics registers the rollup metrics on reg. A nil registerer
// yields a no-op recorder.
func NewRollupMetrics(reg prometheus.Registerer) *RollupMetrics {
	if reg == nil {
		return &RollupMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rollup",
		Name:      "family_runs_total",
		Help:      "Rollup family recomputations by outcome.",
	}, []string{"family", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rollup",
		Name:      "family_duration_seconds",
		Help:      "Time spent recomputing one rollup family for one day.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"family"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rollup",
		Name:      "rows_written_total",
		Help:      "Rollup rows upserted.",
	}, []string{"family"})
	reg.MustRegister(runs, duration, rows)
	return &RollupMetrics{runs: runs, duration: duration, rows: rows}
}

// ObserveFamily records one family run.
func (m *RollupMetrics) ObserveFamily(family, outcome string, rows int, took time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	family = normalizeLabel(family)
	m.runs.WithLabelValues(family, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(family).Observe(took.Seconds())
	if rows > 0 {
		m.rows.WithLabelValues(family).Add(float64(rows))
	}
}
