package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/stats"
)

// ErrInvalidQuery marks caller mistakes: bad ranges, unknown sort columns.
var ErrInvalidQuery = errors.New("invalid query")

const defaultWorkers = 4

// Query selects a span of seasons and how to present them.
type Query struct {
	From int
	To   int
	Type stats.SeasonType
	Mode stats.Mode
	// IncludePartialStints keeps single-team stints of traded seasons in
	// career averages alongside the combined row.
	IncludePartialStints bool
	Filter               Filter
}

func (q Query) withDefaults() Query {
	if q.To == 0 {
		q.To = q.From
	}
	if q.Type == "" {
		q.Type = stats.SeasonRegular
	}
	if q.Mode == "" {
		q.Mode = stats.ModePerGame
	}
	return q
}

// SeasonResult is one completed season, already filtered.
type SeasonResult struct {
	Key  stats.SeasonKey         `json:"key"`
	Rows []stats.PlayerSeasonRow `json:"rows"`
}

// SeasonFunc observes seasons as they complete. Calls are serialized but
// arrive in completion order, not season order.
type SeasonFunc func(SeasonResult)

// Result is the assembled table for a query.
type Result struct {
	Seasons []string                `json:"seasons"`
	Type    stats.SeasonType        `json:"season_type"`
	Mode    stats.Mode              `json:"mode"`
	Total   int                     `json:"total"`
	Rows    []stats.PlayerSeasonRow `json:"rows"`
}

// Options configures an EfficiencyService.
type Options struct {
	Workers  int
	Logger   *slog.Logger
	Recorder *metrics.Recorder
}

// EfficiencyService builds league-relative efficiency tables for season
// ranges.
type EfficiencyService struct {
	tables     ingest.TableProvider
	league     ingest.LeagueTotalsProvider
	aggregator *stats.SeasonAggregator
	workers    int
	logger     *slog.Logger
	recorder   *metrics.Recorder
}

// NewEfficiencyService creates a new efficiency service
func NewEfficiencyService(tables ingest.TableProvider, league ingest.LeagueTotalsProvider, opts Options) *EfficiencyService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &EfficiencyService{
		tables:     tables,
		league:     league,
		aggregator: stats.NewSeasonAggregator(ingest.LeagueAggregates(league)),
		workers:    opts.Workers,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
}

// Run assembles every season in the query concurrently. Any season failure
// fails the whole query. When the range spans more than one season, career
// rows are appended before filtering.
func (s *EfficiencyService) Run(ctx context.Context, q Query, onSeason SeasonFunc) (*Result, error) {
	q = q.withDefaults()

	keys, err := stats.SeasonRange(q.From, q.To, q.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if err := q.Filter.validate(); err != nil {
		return nil, err
	}

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var (
		notifyMu sync.Mutex
		seasons  = make([][]stats.PlayerSeasonRow, len(keys))
	)

	for i, key := range keys {
		i, key := i, key
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := runCtx.Err(); err != nil {
				return err
			}
			rows, err := s.Season(runCtx, key, q.Mode)
			if err != nil {
				return err
			}
			seasons[i] = rows

			if onSeason != nil {
				notifyMu.Lock()
				defer notifyMu.Unlock()
				if runCtx.Err() == nil {
					onSeason(SeasonResult{Key: key, Rows: q.Filter.match(rows)})
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []stats.PlayerSeasonRow
	for _, rows := range seasons {
		all = append(all, rows...)
	}
	if len(keys) > 1 {
		careers := stats.CareerAverages(all, stats.CareerOptions{IncludePartialStints: q.IncludePartialStints})
		all = stats.AppendCareer(all, careers)
	}

	rows, total := q.Filter.Apply(all)

	labels := make([]string, len(keys))
	for i, key := range keys {
		labels[i] = key.Label()
	}

	return &Result{
		Seasons: labels,
		Type:    q.Type,
		Mode:    q.Mode,
		Total:   total,
		Rows:    rows,
	}, nil
}

// Season fetches and aggregates a single season.
func (s *EfficiencyService) Season(ctx context.Context, key stats.SeasonKey, mode stats.Mode) ([]stats.PlayerSeasonRow, error) {
	start := time.Now()
	logger := logging.FromContext(ctx, s.logger).With(
		logging.FieldSeason, key.Label(),
		logging.FieldSeasonType, string(key.Type),
		logging.FieldMode, string(mode),
	)

	rows, err := s.season(ctx, key, mode)
	s.recorder.RecordSeason(string(key.Type), string(mode), len(rows), time.Since(start), err)
	if err != nil {
		logging.Error(logger, "season aggregation failed", err)
		return nil, err
	}

	logger.Debug("season aggregated", logging.FieldRows, len(rows),
		logging.FieldDurationMS, time.Since(start).Milliseconds())
	return rows, nil
}

func (s *EfficiencyService) season(ctx context.Context, key stats.SeasonKey, mode stats.Mode) ([]stats.PlayerSeasonRow, error) {
	table, err := s.tables.FetchTable(ctx, ingest.TableRequest{Key: key, Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("fetching %s table: %w", key, err)
	}
	return s.aggregator.Aggregate(ctx, key, table, mode)
}

// LeagueSummary is the league context relative metrics are measured
// against.
type LeagueSummary struct {
	Key       stats.SeasonKey       `json:"key"`
	Season    string                `json:"season"`
	Totals    stats.LeagueTotals    `json:"totals"`
	Aggregate stats.LeagueAggregate `json:"aggregate"`
}

// League returns the league totals and derived percentages for key.
func (s *EfficiencyService) League(ctx context.Context, key stats.SeasonKey) (*LeagueSummary, error) {
	if key.Year < stats.EarliestSeason {
		return nil, fmt.Errorf("%w: no seasons before %d", ErrInvalidQuery, stats.EarliestSeason)
	}
	totals, err := s.league.FetchLeagueTotals(ctx, key)
	if err != nil {
		if errors.Is(err, ingest.ErrTableNotFound) {
			err = fmt.Errorf("%w: %w", stats.ErrLeagueAggregateUnavailable, err)
		}
		return nil, fmt.Errorf("league totals %s: %w", key, err)
	}

	agg := totals.Aggregate()
	return &LeagueSummary{
		Key:    key,
		Season: key.Label(),
		Totals: totals,
		Aggregate: stats.LeagueAggregate{
			TSLeague: stats.Round(agg.TSLeague, stats.PresentationPrecision),
			Avg3P:    stats.Round(agg.Avg3P, stats.PresentationPrecision),
			AvgFT:    stats.Round(agg.AvgFT, stats.PresentationPrecision),
		},
	}, nil
}
