package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
)

// ExitInconsistent is returned by AuditCommand when divergence was found.
const ExitInconsistent = 10

// Auditor walks the identity store.
type Auditor interface {
	Audit(ctx context.Context, concurrency int) (identity.AuditReport, error)
	Count(ctx context.Context) (int64, error)
}

// AuditOptions defines available flags for the audit command.
type AuditOptions struct {
	Concurrency int
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// AuditSummary is the JSON shape printed with -json.
type AuditSummary struct {
	OK     bool                 `json:"ok"`
	Users  int64                `json:"users"`
	Report identity.AuditReport `json:"report"`
}

// AuditCommand runs a synchronous index audit and prints the outcome.
func AuditCommand(ctx context.Context, auditor Auditor, opts AuditOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Concurrency < 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "audit: -concurrency must not be negative")
		return 1
	}

	users, err := auditor.Count(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "audit: %v\n", err)
		return 1
	}
	report, err := auditor.Audit(ctx, opts.Concurrency)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "audit: %v\n", err)
		return 1
	}
	sort.Strings(report.MissingRecords)
	sort.Strings(report.IndexMismatches)

	if opts.JSONOutput {
		summary := AuditSummary{OK: report.Consistent(), Users: users, Report: report}
		if summary.Report.MissingRecords == nil {
			summary.Report.MissingRecords = []string{}
		}
		if summary.Report.IndexMismatches == nil {
			summary.Report.IndexMismatches = []string{}
		}
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "audit: encode json: %v\n", err)
			return 1
		}
	} else {
		renderAuditHuman(opts.Stdout, users, report)
	}
	if !report.Consistent() {
		return ExitInconsistent
	}
	return 0
}

func renderAuditHuman(out io.Writer, users int64, report identity.AuditReport) {
	_, _ = fmt.Fprintf(out, "Index audit: %d user(s) registered, %d scanned\n", users, report.Scanned)
	if report.Consistent() {
		_, _ = fmt.Fprintln(out, "Records and login index are consistent.")
		return
	}
	if len(report.MissingRecords) > 0 {
		_, _ = fmt.Fprintf(out, "%d id(s) without a record:\n", len(report.MissingRecords))
		for _, id := range report.MissingRecords {
			_, _ = fmt.Fprintf(out, " - %s\n", id)
		}
	}
	if len(report.IndexMismatches) > 0 {
		_, _ = fmt.Fprintf(out, "%d record(s) not indexed back to their id:\n", len(report.IndexMismatches))
		for _, id := range report.IndexMismatches {
			_, _ = fmt.Fprintf(out, " - %s\n", id)
		}
	}
	if report.OrphanIndexEntries > 0 {
		_, _ = fmt.Fprintf(out, "%d orphan index entr(ies)\n", report.OrphanIndexEntries)
	}
}
