package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	jobmetrics "github.com/odyssey-erp/odyssey-identity/internal/jobs"
)

func newAuditFixture(t *testing.T) (*identity.Store, *miniredis.Miniredis, *prometheus.Registry, *IndexAuditJob) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := identity.NewStore(client, identity.Options{})
	reg := prometheus.NewRegistry()
	job := NewIndexAuditJob(store, nil, jobmetrics.NewMetrics(reg))
	return store, mr, reg, job
}

func seedUser(t *testing.T, store *identity.Store, id, email string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), identity.UserRecord{
		ID:           id,
		LoginKey:     email,
		PasswordHash: "$2a$04$placeholder",
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}))
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestIndexAuditJobConsistentStore(t *testing.T) {
	store, _, reg, job := newAuditFixture(t)
	seedUser(t, store, "user_1_a", "a@example.com")
	seedUser(t, store, "user_2_b", "b@example.com")

	task, err := NewIndexAuditTask(4)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 2.0, gatherValue(t, reg, "identity_audit_scanned_users", nil))
	assert.Equal(t, 1.0, gatherValue(t, reg, "identity_jobs_total", map[string]string{"job": TaskIdentityIndexAudit, "status": "success"}))
}

func TestIndexAuditJobReportsDivergenceWithoutRetry(t *testing.T) {
	store, mr, reg, job := newAuditFixture(t)
	seedUser(t, store, "user_1_a", "a@example.com")
	mr.Del("user:user_1_a")

	task, err := NewIndexAuditTask(0)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, ErrAuditInconsistent)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	assert.Equal(t, 1.0, gatherValue(t, reg, "identity_audit_findings", map[string]string{"kind": jobmetrics.FindingMissingRecord}))
	assert.Equal(t, 1.0, gatherValue(t, reg, "identity_jobs_failures_total", map[string]string{"job": TaskIdentityIndexAudit}))
}

func TestIndexAuditJobStoreUnavailable(t *testing.T) {
	_, mr, _, job := newAuditFixture(t)
	mr.Close()

	err := job.Handle(context.Background(), asynq.NewTask(TaskIdentityIndexAudit, nil))
	require.ErrorIs(t, err, identity.ErrUnavailable)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "transient failures stay retryable")
}

func TestIndexAuditJobRejectsBadPayload(t *testing.T) {
	_, _, _, job := newAuditFixture(t)
	err := job.Handle(context.Background(), asynq.NewTask(TaskIdentityIndexAudit, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type recordingAuditor struct{ concurrency int }

func (r *recordingAuditor) Audit(_ context.Context, concurrency int) (identity.AuditReport, error) {
	r.concurrency = concurrency
	return identity.AuditReport{}, nil
}

func TestIndexAuditJobDefaultsConcurrency(t *testing.T) {
	auditor := &recordingAuditor{}
	job := NewIndexAuditJob(auditor, nil, nil)
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdentityIndexAudit, nil)))
	assert.Equal(t, 8, auditor.concurrency)
}
