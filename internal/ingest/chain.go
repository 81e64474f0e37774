package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/stats"
)

// Chain tries table providers in order, moving on only when one reports
// ErrTableNotFound. Any other error stops the chain.
type Chain []TableProvider

func (c Chain) FetchTable(ctx context.Context, req TableRequest) (stats.RawTable, error) {
	lastErr := fmt.Errorf("%s: %w", req, ErrTableNotFound)
	for _, p := range c {
		if p == nil {
			continue
		}
		table, err := p.FetchTable(ctx, req)
		if err == nil {
			return table, nil
		}
		if !errors.Is(err, ErrTableNotFound) {
			return stats.RawTable{}, err
		}
		lastErr = err
	}
	return stats.RawTable{}, lastErr
}

// LeagueChain is Chain for league totals. It falls through on
// stats.ErrLeagueAggregateUnavailable and ErrTableNotFound.
type LeagueChain []LeagueTotalsProvider

func (c LeagueChain) FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
	lastErr := fmt.Errorf("%s: %w", key, stats.ErrLeagueAggregateUnavailable)
	for _, p := range c {
		if p == nil {
			continue
		}
		totals, err := p.FetchLeagueTotals(ctx, key)
		if err == nil {
			return totals, nil
		}
		if !errors.Is(err, stats.ErrLeagueAggregateUnavailable) && !errors.Is(err, ErrTableNotFound) {
			return stats.LeagueTotals{}, err
		}
		lastErr = err
	}
	return stats.LeagueTotals{}, lastErr
}

// TableSink stores raw tables fetched from a live source.
type TableSink interface {
	SaveTable(ctx context.Context, req TableRequest, table stats.RawTable) error
}

// LeagueSink stores league totals fetched from a live source.
type LeagueSink interface {
	SaveTotals(ctx context.Context, key stats.SeasonKey, totals stats.LeagueTotals) error
}

// WriteThroughTables saves every table inner returns into sink. Save
// failures are logged and do not fail the fetch.
func WriteThroughTables(inner TableProvider, sink TableSink, logger *slog.Logger) TableProvider {
	return TableProviderFunc(func(ctx context.Context, req TableRequest) (stats.RawTable, error) {
		table, err := inner.FetchTable(ctx, req)
		if err != nil {
			return table, err
		}
		if err := sink.SaveTable(ctx, req, table); err != nil {
			logging.Error(logging.FromContext(ctx, logger), "save raw table failed", err,
				logging.FieldSeason, req.Key.Label(), logging.FieldSeasonType, string(req.Key.Type))
		}
		return table, nil
	})
}

// WriteThroughLeague saves every league totals row inner returns into sink.
func WriteThroughLeague(inner LeagueTotalsProvider, sink LeagueSink, logger *slog.Logger) LeagueTotalsProvider {
	return LeagueTotalsFunc(func(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
		totals, err := inner.FetchLeagueTotals(ctx, key)
		if err != nil {
			return totals, err
		}
		if err := sink.SaveTotals(ctx, key, totals); err != nil {
			logging.Error(logging.FromContext(ctx, logger), "save league totals failed", err,
				logging.FieldSeason, key.Label(), logging.FieldSeasonType, string(key.Type))
		}
		return totals, nil
	})
}
