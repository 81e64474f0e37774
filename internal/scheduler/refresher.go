package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fortuna/athena/internal/backfill"
	"github.com/fortuna/athena/internal/cache"
	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/publisher"
	"github.com/fortuna/athena/internal/stats"
)

// DefaultSpec refreshes once a day, after the night's games are final.
const DefaultSpec = "0 4 * * *"

const defaultTimeout = 10 * time.Minute

// SeasonComputer recomputes one season table.
type SeasonComputer interface {
	Season(ctx context.Context, key stats.SeasonKey, mode stats.Mode) ([]stats.PlayerSeasonRow, error)
}

// Copier re-copies raw inputs from the live source into the store.
type Copier interface {
	Run(ctx context.Context, spec backfill.JobSpec, reporter backfill.Reporter) error
}

// Publisher receives recomputed seasons.
type Publisher interface {
	PublishSeason(ctx context.Context, update publisher.SeasonUpdate) (string, error)
}

// Refresh describes one recomputed season table.
type Refresh struct {
	Key  stats.SeasonKey
	Mode stats.Mode
	Rows int
	Err  error
	At   time.Time
}

// Options configures a Refresher. Only CurrentSeason is required.
type Options struct {
	Spec          string
	Location      *time.Location
	CurrentSeason func(now time.Time) int
	Types         []stats.SeasonType
	Modes         []stats.Mode
	Timeout       time.Duration

	// Copier refreshes stored raw tables; nil when no store is configured.
	Copier    Copier
	Cache     cache.Cache
	Publisher Publisher
	OnRefresh func(Refresh)

	Logger   *slog.Logger
	Recorder *metrics.Recorder
	Now      func() time.Time
}

// Refresher periodically recomputes the current season so cached and
// published tables follow the source.
type Refresher struct {
	cron    *cron.Cron
	seasons SeasonComputer
	opts    Options
	logger  *slog.Logger
}

// NewRefresher validates opts and registers the cron job. Call Start to run it.
func NewRefresher(seasons SeasonComputer, opts Options) (*Refresher, error) {
	if opts.CurrentSeason == nil {
		return nil, errors.New("refresher needs a current season resolver")
	}
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if len(opts.Types) == 0 {
		opts.Types = []stats.SeasonType{stats.SeasonRegular, stats.SeasonPlayoffs}
	}
	if len(opts.Modes) == 0 {
		opts.Modes = []stats.Mode{stats.ModePerGame, stats.ModePer75}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Refresher{
		cron:    cron.New(cron.WithLocation(opts.Location)),
		seasons: seasons,
		opts:    opts,
		logger:  opts.Logger.With("component", "scheduler"),
	}

	if _, err := r.cron.AddFunc(opts.Spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", opts.Spec, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Info("✓ refresh scheduler started", "spec", r.opts.Spec, "next", r.Next())
}

// Next is the time of the next scheduled refresh.
func (r *Refresher) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the schedule and waits for a running refresh, or for ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	if err := r.RefreshNow(ctx); err != nil {
		logging.Error(r.logger, "scheduled refresh failed", err)
	}
}

// RefreshNow refreshes every configured type and mode of the current
// season. A failing season does not stop the others; failures are joined.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	start := r.opts.Now()
	year := r.opts.CurrentSeason(start)

	var errs []error
	for _, seasonType := range r.opts.Types {
		key := stats.SeasonKey{Year: year, Type: seasonType}
		if err := r.refreshSeason(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	r.opts.Recorder.RecordRefresh(r.opts.Now().Sub(start), err)
	return err
}

func (r *Refresher) refreshSeason(ctx context.Context, key stats.SeasonKey) error {
	logger := r.logger.With(logging.FieldSeason, key.Label(), logging.FieldSeasonType, string(key.Type))

	if r.opts.Copier != nil {
		spec := backfill.JobSpec{From: key.Year, To: key.Year, Types: []stats.SeasonType{key.Type}, Modes: r.opts.Modes}
		if err := r.opts.Copier.Run(ctx, spec, nil); err != nil {
			return fmt.Errorf("re-copying %s: %w", key, err)
		}
	}

	if r.opts.Cache != nil {
		if err := r.opts.Cache.Delete(ctx, ingest.SeasonCacheKeys(key)...); err != nil {
			logging.Error(logger, "cache invalidation failed", err)
		}
	}

	var errs []error
	for _, mode := range r.opts.Modes {
		rows, err := r.seasons.Season(ctx, key, mode)
		refresh := Refresh{Key: key, Mode: mode, Rows: len(rows), Err: err, At: r.opts.Now().UTC()}

		switch {
		case errors.Is(err, ingest.ErrTableNotFound):
			// playoffs that have not started yet
			logger.Info("season not available yet", logging.FieldMode, string(mode))
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("recomputing %s %s: %w", key, mode, err))
		default:
			r.publish(ctx, logger, key, mode, rows, refresh.At)
			logger.Info("✓ season refreshed", logging.FieldMode, string(mode), logging.FieldRows, len(rows))
		}

		if r.opts.OnRefresh != nil {
			r.opts.OnRefresh(refresh)
		}
	}
	return errors.Join(errs...)
}

func (r *Refresher) publish(ctx context.Context, logger *slog.Logger, key stats.SeasonKey, mode stats.Mode,
	rows []stats.PlayerSeasonRow, at time.Time) {
	if r.opts.Publisher == nil {
		return
	}
	_, err := r.opts.Publisher.PublishSeason(ctx, publisher.SeasonUpdate{
		Season:     key.Label(),
		Year:       key.Year,
		SeasonType: key.Type,
		Mode:       mode,
		Rows:       rows,
		ComputedAt: at,
	})
	if err != nil {
		logging.Error(logger, "publishing refreshed season failed", err, logging.FieldMode, string(mode))
	}
}
