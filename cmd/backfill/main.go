package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fortuna/athena/internal/backfill"
	"github.com/fortuna/athena/internal/config"
	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/ingest/bref"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/stats"
	"github.com/fortuna/athena/internal/store"
	"github.com/fortuna/athena/internal/store/repository"
)

const (
	appName    = "athena-backfill"
	appVersion = "1.0.0"
)

func main() {
	log.Printf("=== %s v%s ===", appName, appVersion)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		dsn      = flag.String("dsn", cfg.Database.DSN, "Postgres DSN")
		baseURL  = flag.String("base-url", cfg.Source.BaseURL, "Basketball-Reference base URL")
		interval = flag.Duration("interval", cfg.RequestInterval(), "Minimum delay between source requests")
		from     = flag.Int("from", 0, "First season end year (e.g. 2024 for 2023-24)")
		to       = flag.Int("to", 0, "Last season end year (defaults to -from)")
		types    = flag.String("types", "regular", "Comma-separated season types (regular, playoffs)")
		modes    = flag.String("modes", "", "Comma-separated modes (per_game, per_75); empty means both")
		browser  = flag.Bool("browser", cfg.Source.Fetcher == config.FetcherBrowser, "Fetch pages with headless Chrome")
		dryRun   = flag.Bool("dry-run", false, "Dry run (do not write to DB)")
	)

	flag.Parse()

	if *from == 0 {
		log.Fatalf("Specify -from (and optionally -to)")
	}

	spec, err := backfill.Request{
		From:   *from,
		To:     *to,
		Types:  splitList(*types),
		Modes:  splitList(*modes),
		DryRun: *dryRun,
	}.Spec()
	if err != nil {
		log.Fatalf("build spec: %v", err)
	}

	var (
		tableSink  ingest.TableSink
		leagueSink ingest.LeagueSink
	)
	if !*dryRun {
		if *dsn == "" {
			log.Fatalf("A database DSN is required unless -dry-run is set")
		}
		db, err := store.NewDatabase(*dsn)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(logging.New(cfg.Log.Level)); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		tableSink = repository.NewTableRepository(db)
		leagueSink = repository.NewLeagueRepository(db)
	}

	var fetcher bref.Fetcher = bref.NewHTTPFetcher(cfg.SourceTimeout())
	if *browser {
		bf := bref.NewBrowserFetcher(cfg.SourceTimeout())
		defer bf.Close()
		fetcher = bf
	}

	client := bref.NewClient(fetcher, bref.Options{
		BaseURL:         *baseURL,
		RequestInterval: *interval,
		MaxAttempts:     cfg.Source.MaxAttempts,
	})
	runner := backfill.NewRunner(client, client, tableSink, leagueSink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := &consoleReporter{dryRun: *dryRun}
	start := time.Now()

	if err := runner.Run(ctx, spec, reporter); err != nil {
		log.Fatalf("backfill failed: %v", err)
	}

	log.Printf("✓ Backfill completed in %s (%d tables saved, %d skipped)",
		time.Since(start).Round(time.Second), reporter.saved, reporter.skipped)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type consoleReporter struct {
	dryRun  bool
	saved   int
	skipped int
}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec) {
	log.Printf("Starting backfill %d-%d types=%v modes=%v (dry_run=%v)",
		spec.From, spec.To, spec.Types, spec.Modes, c.dryRun)
}

func (c *consoleReporter) OnSeasonStart(key stats.SeasonKey, index int, total int) {
	log.Printf("[%d/%d] %s %s", index+1, total, key.Label(), key.Type)
}

func (c *consoleReporter) OnTableSaved(req ingest.TableRequest, rows int) {
	c.saved++
	log.Printf("Saved %s (%d rows)", req, rows)
}

func (c *consoleReporter) OnSkipped(what string, err error) {
	c.skipped++
	log.Printf("Skipped %s: %v", what, err)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	log.Printf("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnJobComplete() {
	log.Println("Job complete")
}

func (c *consoleReporter) OnJobError(err error) {
	log.Printf("Job error: %v", err)
}
