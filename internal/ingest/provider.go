package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fortuna/athena/internal/stats"
)

var (
	// ErrTableNotFound means the source has no player table for the request.
	ErrTableNotFound = errors.New("season table not found")
	// ErrRateLimited means the source refused the request with a 429.
	ErrRateLimited = errors.New("upstream rate limited")
)

// TableRequest selects one season's raw player table.
type TableRequest struct {
	Key  stats.SeasonKey
	Mode stats.Mode
}

func (r TableRequest) String() string {
	return fmt.Sprintf("%s %s", r.Key, r.Mode)
}

// TableProvider supplies raw season tables.
type TableProvider interface {
	FetchTable(ctx context.Context, req TableRequest) (stats.RawTable, error)
}

// TableProviderFunc adapts a function to TableProvider.
type TableProviderFunc func(ctx context.Context, req TableRequest) (stats.RawTable, error)

func (f TableProviderFunc) FetchTable(ctx context.Context, req TableRequest) (stats.RawTable, error) {
	return f(ctx, req)
}

// LeagueTotalsProvider supplies the league-average row for a season. A
// missing row is reported with stats.ErrLeagueAggregateUnavailable.
type LeagueTotalsProvider interface {
	FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error)
}

// LeagueTotalsFunc adapts a function to LeagueTotalsProvider.
type LeagueTotalsFunc func(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error)

func (f LeagueTotalsFunc) FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
	return f(ctx, key)
}

// LeagueAggregates turns a totals provider into the aggregate provider the
// season aggregator consumes.
func LeagueAggregates(totals LeagueTotalsProvider) stats.LeagueAggregateProvider {
	return stats.LeagueAggregateFunc(func(ctx context.Context, key stats.SeasonKey) (stats.LeagueAggregate, error) {
		t, err := totals.FetchLeagueTotals(ctx, key)
		if err != nil {
			if errors.Is(err, ErrTableNotFound) && !errors.Is(err, stats.ErrLeagueAggregateUnavailable) {
				err = fmt.Errorf("%w: %w", stats.ErrLeagueAggregateUnavailable, err)
			}
			return stats.LeagueAggregate{}, err
		}
		return t.Aggregate(), nil
	})
}

// StatusError is a non-200 upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Is maps 404 to ErrTableNotFound and 429 to ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrTableNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// AsStatusError unwraps err into a StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
