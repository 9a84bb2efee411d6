package identity

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const auditScanCount = 200

// AuditReport summarises an index consistency scan.
type AuditReport struct {
	// Scanned is the number of ids read from users:all.
	Scanned int `json:"scanned"`
	// MissingRecords lists ids present in users:all without a record.
	MissingRecords []string `json:"missing_records"`
	// IndexMismatches lists record ids whose login key does not index back to them.
	IndexMismatches []string `json:"index_mismatches"`
	// OrphanIndexEntries counts index keys whose target record is missing or
	// belongs to a different login key.
	OrphanIndexEntries int `json:"orphan_index_entries"`
}

// Consistent reports whether the scan found no divergence.
func (r AuditReport) Consistent() bool {
	return len(r.MissingRecords) == 0 && len(r.IndexMismatches) == 0 && r.OrphanIndexEntries == 0
}

// Audit walks users:all and the index keyspace and reports every divergence
// between records and index entries. It never repairs anything. concurrency
// bounds the number of in-flight record checks.
func (s *Store) Audit(ctx context.Context, concurrency int) (AuditReport, error) {
	if concurrency <= 0 {
		concurrency = 8
	}
	var (
		mu     sync.Mutex
		report AuditReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	// SSCAN may return a member more than once.
	seen := make(map[string]struct{})
	var cursor uint64
	for gctx.Err() == nil {
		ids, next, err := s.scanMembers(gctx, cursor)
		if err != nil {
			if werr := g.Wait(); werr != nil {
				return AuditReport{}, werr
			}
			return AuditReport{}, unavailable("audit scan users", err)
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				missing, mismatch, err := s.checkRecord(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				report.Scanned++
				if missing {
					report.MissingRecords = append(report.MissingRecords, id)
				}
				if mismatch {
					report.IndexMismatches = append(report.IndexMismatches, id)
				}
				mu.Unlock()
				return nil
			})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if err := g.Wait(); err != nil {
		return AuditReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return AuditReport{}, err
	}
	slices.Sort(report.MissingRecords)
	slices.Sort(report.IndexMismatches)

	orphans, err := s.countOrphanIndexEntries(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	report.OrphanIndexEntries = orphans

	if !report.Consistent() {
		s.logger.WarnContext(ctx, "identity audit found divergence",
			slog.Int("scanned", report.Scanned),
			slog.Int("missing_records", len(report.MissingRecords)),
			slog.Int("index_mismatches", len(report.IndexMismatches)),
			slog.Int("orphan_index_entries", report.OrphanIndexEntries),
		)
	}
	return report, nil
}

func (s *Store) checkRecord(ctx context.Context, id string) (missing, mismatch bool, err error) {
	rec, err := s.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return true, false, nil
	}
	if errors.Is(err, ErrCorruptRecord) {
		return false, true, nil
	}
	if err != nil {
		return false, false, err
	}
	indexed, err := s.client.Get(ctx, indexKey(rec.LoginKey)).Result()
	if errors.Is(err, redis.Nil) {
		return false, true, nil
	}
	if err != nil {
		return false, false, unavailable("audit read index", err)
	}
	return false, indexed != id, nil
}

func (s *Store) countOrphanIndexEntries(ctx context.Context) (int, error) {
	orphans := 0
	iter := s.client.Scan(ctx, 0, indexKeyPrefix+"*", auditScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		loginKey := strings.TrimPrefix(key, indexKeyPrefix)
		id, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, unavailable("audit read index", err)
		}
		rec, err := s.FindByID(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorruptRecord):
			orphans++
		case err != nil:
			return 0, err
		case rec.LoginKey != loginKey:
			orphans++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, unavailable("audit scan index", err)
	}
	return orphans, nil
}
