package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-identity/cmd/identityctl/cli"
	"github.com/odyssey-erp/odyssey-identity/internal/app"
	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/kv"
	"github.com/odyssey-erp/odyssey-identity/jobs"
)

const usage = `usage: identityctl <command> [flags]

commands:
  audit [-json] [-concurrency N]       check index consistency synchronously
  jobs trigger index-audit [-concurrency N]
                                       enqueue an index audit on the worker
  jobs stats [-json]                   print default queue statistics
  jobs scheduled [-size N]             list scheduled tasks
`

func main() {
	if app.InTestMode() {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "audit":
		return runAudit(ctx, args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runAudit(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print the report as JSON")
	concurrency := fs.Int("concurrency", 0, "parallel record checks (0 = AUDIT_CONCURRENCY)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if *concurrency == 0 {
		*concurrency = cfg.AuditConcurrency
	}

	client, err := kv.New(ctx, cfg.RedisOptions())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect redis: %v\n", err)
		return 1
	}
	defer client.Close()

	store := identity.NewStore(client, identity.Options{Logger: app.NewLogger(cfg)})
	return cli.AuditCommand(ctx, store, cli.AuditOptions{
		Concurrency: *concurrency,
		JSONOutput:  *jsonOut,
		Stdout:      stdout,
		Stderr:      stderr,
	})
}

func runJobs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("jobs "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		concurrency *int
		jsonOut     *bool
		size        *int
	)
	switch sub {
	case "trigger":
		concurrency = fs.Int("concurrency", 0, "parallel record checks (0 = worker default)")
	case "stats":
		jsonOut = fs.Bool("json", false, "print stats as JSON")
	case "scheduled":
		size = fs.Int("size", 20, "maximum tasks to list")
	default:
		_, _ = fmt.Fprintf(stderr, "unknown jobs command %q\n\n%s", sub, usage)
		return 2
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if sub == "trigger" && fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "jobs trigger: expected exactly one job name")
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	jc := cli.NewJobsCLI(jobs.RedisOpt(cfg.RedisOptions()))
	defer jc.Close()

	switch sub {
	case "trigger":
		info, err := jc.Trigger(ctx, fs.Arg(0), *concurrency)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jc.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		if *jsonOut {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(stats)
			return 0
		}
		_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	case "scheduled":
		tasks, err := jc.ListScheduled(ctx, *size)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		for _, t := range tasks {
			_, _ = fmt.Fprintf(stdout, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return 0
}
