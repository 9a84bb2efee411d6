package perf

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	jobmetrics "github.com/odyssey-erp/odyssey-identity/internal/jobs"
	"github.com/odyssey-erp/odyssey-identity/jobs"
)

func TestIndexAuditThroughputAndReliability(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := identity.NewStore(client, identity.Options{})
	for i := 0; i < 500; i++ {
		err := store.Create(ctx, identity.UserRecord{
			ID:           fmt.Sprintf("user_%d_%032x", time.Now().UnixMilli(), i),
			LoginKey:     fmt.Sprintf("user%d@example.com", i),
			PasswordHash: "$2a$04$placeholder",
			CreatedAt:    time.Now().UTC(),
			IsActive:     true,
		})
		if err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
	}

	reg := prometheus.NewRegistry()
	job := jobs.NewIndexAuditJob(store, nil, jobmetrics.NewMetrics(reg))
	for i := 0; i < 5; i++ {
		if err := job.Handle(ctx, asynq.NewTask(jobs.TaskIdentityIndexAudit, nil)); err != nil {
			t.Fatalf("audit run %d: %v", i, err)
		}
	}

	// One broken index entry turns the next run into a failure.
	mr.Set("user:index:ghost@example.com", "user_0_missing")
	if err := job.Handle(ctx, asynq.NewTask(jobs.TaskIdentityIndexAudit, nil)); err == nil {
		t.Fatal("expected inconsistent audit to fail")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "identity_jobs_total", map[string]string{"job": jobs.TaskIdentityIndexAudit, "status": "success"})
	failure := metricValue(t, families, "identity_jobs_total", map[string]string{"job": jobs.TaskIdentityIndexAudit, "status": "failure"})
	if success != 5 || failure != 1 {
		t.Fatalf("unexpected job counts: success=%v failure=%v", success, failure)
	}
	if scanned := metricValue(t, families, "identity_audit_scanned_users", nil); scanned != 500 {
		t.Fatalf("scanned users = %v, want 500", scanned)
	}

	mean := histogramMean(t, families, "identity_job_duration_seconds", map[string]string{"job": jobs.TaskIdentityIndexAudit})
	if mean > 2.0 {
		t.Fatalf("audit duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
