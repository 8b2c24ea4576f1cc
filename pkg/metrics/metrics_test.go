package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsRunsAndLastSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "daily-rollup"
	at := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	metrics.ObserveRun(job, nil, 250*time.Millisecond, at)
	metrics.ObserveRun(job, errors.New("boom"), time.Second, at.Add(time.Hour))
	metrics.IncLockSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "rental_cron_job_runs_total", map[string]string{"job": job, "outcome": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "rental_cron_job_runs_total", map[string]string{"job": job, "outcome": "failed"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	// a failure must not move the last success mark
	last := findMetric(mfs, "rental_cron_job_last_success_timestamp_seconds", map[string]string{"job": job})
	require.NotNil(t, last)
	assert.Equal(t, float64(at.Unix()), last.GetGauge().GetValue())

	got, err = fetchCounterValue(mfs, "rental_cron_lock_skipped_total", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	sum, err := fetchHistogramSum(mfs, "rental_cron_job_duration_seconds", map[string]string{"job": job})
	require.NoError(t, err)
	assert.InDelta(t, 1.25, sum, 0.001)
}

func TestRollupMetricsLabelsFamilyAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRollupMetrics(reg)
	metrics.ObserveFamily("traffic_source", OutcomeOK, 6, 10*time.Millisecond)
	metrics.ObserveFamily("traffic_source", OutcomeFailed, 0, time.Millisecond)
	metrics.ObserveFamily("", OutcomeOK, 1, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "rental_rollup_family_runs_total", map[string]string{"family": "traffic_source", "outcome": "failed"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "rental_rollup_rows_written_total", map[string]string{"family": "traffic_source"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	got, err = fetchCounterValue(mfs, "rental_rollup_family_runs_total", map[string]string{"family": "unknown", "outcome": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestHTTPMetricsLabelsRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/items/{id}", 200, 5*time.Millisecond)
	m.Observe("GET", "/api/v1/items/{id}", 404, time.Millisecond)
	m.Observe("GET", "/api/v1/items/{id}", 200, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "rental_http_requests_total", map[string]string{"method": "GET", "route": "/api/v1/items/{id}", "status": "200"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestNilRegistererIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCronJobMetrics(nil).ObserveRun("job", nil, time.Second, time.Now())
		NewCronJobMetrics(nil).IncLockSkipped()
		NewRollupMetrics(nil).ObserveFamily("site", OutcomeOK, 1, time.Second)
		var m *RollupMetrics
		m.ObserveFamily("site", OutcomeOK, 1, time.Second)
		NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
	})
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric := findMetric(mfs, name, labels)
	if metric == nil {
		return 0, fmt.Errorf("metric %q %v not found", name, labels)
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric := findMetric(mfs, name, labels)
	if metric == nil {
		return 0, fmt.Errorf("metric %q %v not found", name, labels)
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, labels map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
