package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
)

// Runner copies raw season inputs from a live source into sinks.
type Runner struct {
	tables     ingest.TableProvider
	league     ingest.LeagueTotalsProvider
	tableSink  ingest.TableSink
	leagueSink ingest.LeagueSink
}

// NewRunner constructs a runner reading from tables/league and writing to
// the sinks.
func NewRunner(tables ingest.TableProvider, league ingest.LeagueTotalsProvider,
	tableSink ingest.TableSink, leagueSink ingest.LeagueSink) *Runner {
	return &Runner{
		tables:     tables,
		league:     league,
		tableSink:  tableSink,
		leagueSink: leagueSink,
	}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
// Seasons the source does not carry are reported and skipped; any other
// error stops the run.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) error {
	if reporter == nil {
		reporter = nopReporter{}
	}

	seasons, err := spec.Seasons()
	if err != nil {
		reporter.OnJobError(err)
		return err
	}

	reporter.OnJobStart(spec)
	if spec.DryRun {
		reporter.OnProgress("Dry-run mode: no data will be written", 0, 0)
	}

	done, total := 0, spec.Units()
	for idx, key := range seasons {
		if err := ctx.Err(); err != nil {
			return err
		}

		reporter.OnSeasonStart(key, idx, len(seasons))

		if err := r.copyLeague(ctx, key, spec.DryRun); err != nil {
			if !isMissing(err) {
				reporter.OnJobError(err)
				return err
			}
			reporter.OnSkipped(fmt.Sprintf("league totals %s", key), err)
		}
		done++
		reporter.OnProgress(fmt.Sprintf("League totals %s", key), done, total)

		for _, mode := range spec.Modes {
			req := ingest.TableRequest{Key: key, Mode: mode}
			rows, err := r.copyTable(ctx, req, spec.DryRun)
			switch {
			case err == nil:
				reporter.OnTableSaved(req, rows)
			case isMissing(err):
				reporter.OnSkipped(req.String(), err)
			default:
				reporter.OnJobError(err)
				return err
			}
			done++
			reporter.OnProgress(fmt.Sprintf("✓ %s", req), done, total)
		}
	}

	reporter.OnJobComplete()
	return nil
}

func (r *Runner) copyLeague(ctx context.Context, key stats.SeasonKey, dryRun bool) error {
	totals, err := r.league.FetchLeagueTotals(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch league totals %s: %w", key, err)
	}
	if dryRun || r.leagueSink == nil {
		return nil
	}
	if err := r.leagueSink.SaveTotals(ctx, key, totals); err != nil {
		return fmt.Errorf("save league totals %s: %w", key, err)
	}
	return nil
}

func (r *Runner) copyTable(ctx context.Context, req ingest.TableRequest, dryRun bool) (int, error) {
	table, err := r.tables.FetchTable(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("fetch table %s: %w", req, err)
	}
	if dryRun || r.tableSink == nil {
		return len(table.Rows), nil
	}
	if err := r.tableSink.SaveTable(ctx, req, table); err != nil {
		return 0, fmt.Errorf("save table %s: %w", req, err)
	}
	return len(table.Rows), nil
}

func isMissing(err error) bool {
	return errors.Is(err, ingest.ErrTableNotFound) || errors.Is(err, stats.ErrLeagueAggregateUnavailable)
}

type nopReporter struct{}

func (nopReporter) OnJobStart(JobSpec) {}
func (nopReporter) OnSeasonStart(stats.SeasonKey, int, int) {}
func (nopReporter) OnTableSaved(ingest.TableRequest, int) {}
func (nopReporter) OnSkipped(string, error) {}
func (nopReporter) OnProgress(string, int, int) {}
func (nopReporter) OnJobComplete() {}
func (nopReporter) OnJobError(error) {}
