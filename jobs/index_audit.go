package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	jobmetrics "github.com/odyssey-erp/odyssey-identity/internal/jobs"
)

// ErrAuditInconsistent is returned by Handle when the audit finds divergence,
// so the run shows up as failed in the queue history.
var ErrAuditInconsistent = errors.New("index audit: store inconsistent")

// Auditor walks the identity store looking for divergence.
type Auditor interface {
	Audit(ctx context.Context, concurrency int) (identity.AuditReport, error)
}

// IndexAuditJob runs identity.Store.Audit on a schedule.
type IndexAuditJob struct {
	Auditor            Auditor
	Logger             *slog.Logger
	Metrics            *jobmetrics.Metrics
	DefaultConcurrency int
}

// NewIndexAuditJob initialises the audit handler.
func NewIndexAuditJob(auditor Auditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *IndexAuditJob {
	return &IndexAuditJob{Auditor: auditor, Logger: logger, Metrics: metrics, DefaultConcurrency: 8}
}

// Handle executes one audit.
func (j *IndexAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Auditor == nil {
		return errors.New("index audit: handler not configured")
	}
	var payload IndexAuditPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Concurrency <= 0 {
		payload.Concurrency = j.DefaultConcurrency
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskIdentityIndexAudit)
	logger := j.logger().With(slog.Int("concurrency", payload.Concurrency))
	logger.Info("starting index audit")

	report, err := j.Auditor.Audit(ctx, payload.Concurrency)
	if err != nil {
		logger.Error("index audit failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.SetAuditFindings(report.Scanned, len(report.MissingRecords), len(report.IndexMismatches), report.OrphanIndexEntries)

	logger.Info("completed index audit",
		slog.Int("scanned", report.Scanned),
		slog.Int("missing_records", len(report.MissingRecords)),
		slog.Int("index_mismatches", len(report.IndexMismatches)),
		slog.Int("orphan_index_entries", report.OrphanIndexEntries),
		slog.Duration("duration", time.Since(start)),
	)
	if !report.Consistent() {
		// Divergence will not fix itself on retry.
		return tracker.End(errors.Join(ErrAuditInconsistent, asynq.SkipRetry))
	}
	return tracker.End(nil)
}

func (j *IndexAuditJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return j.Logger
}
