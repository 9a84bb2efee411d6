package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("identity:index_audit").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("identity:index_audit").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("identity:index_audit", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("identity:index_audit", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("identity:index_audit")))
}

func TestSetAuditFindingsOverwritesGauges(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetAuditFindings(10, 1, 2, 3)
	m.SetAuditFindings(12, 0, 0, 1)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.scanned))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.findings.WithLabelValues(FindingMissingRecord)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.findings.WithLabelValues(FindingMismatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.findings.WithLabelValues(FindingOrphanIndex)))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.SetAuditFindings(1, 1, 1, 1)
}
