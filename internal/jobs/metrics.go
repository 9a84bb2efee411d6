package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	findings *prometheus.GaugeVec
	scanned  prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Audit finding kinds reported through SetAuditFindings.
const (
	FindingMissingRecord = "missing_record"
	FindingMismatch      = "index_mismatch"
	FindingOrphanIndex   = "orphan_index"
)

// SetAuditFindings publishes the result of the latest index audit.
func (m *Metrics) SetAuditFindings(scanned, missing, mismatched, orphans int) {
	if m == nil {
		return
	}
	m.scanned.Set(float64(scanned))
	m.findings.WithLabelValues(FindingMissingRecord).Set(float64(missing))
	m.findings.WithLabelValues(FindingMismatch).Set(float64(mismatched))
	m.findings.WithLabelValues(FindingOrphanIndex).Set(float64(orphans))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "identity_audit_findings",
		Help: "Inconsistencies found by the most recent index audit, by kind.",
	}, []string{"kind"})
	scanned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "identity_audit_scanned_users",
		Help: "Users examined by the most recent index audit.",
	})
	registerer.MustRegister(runs, failures, duration, findings, scanned)
	return &Metrics{runs: runs, failures: failures, duration: duration, findings: findings, scanned: scanned}
}
