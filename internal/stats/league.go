package stats

import (
	"context"
	"errors"
)

// ErrLeagueAggregateUnavailable is returned when no league-average data
// exists for a season. Every relative metric depends on it, so callers must
// not substitute a default.
var ErrLeagueAggregateUnavailable = errors.New("league aggregate unavailable")

// LeagueTotals are league-wide sums (or league-average per-game values) for
// one season. Ratios computed from either form are identical.
type LeagueTotals struct {
	PTS  float64 `json:"pts"`
	FGA  float64 `json:"fga"`
	FTA  float64 `json:"fta"`
	FG3  float64 `json:"fg3"`
	FG3A float64 `json:"fg3a"`
	FT   float64 `json:"ft"`
}

// LeagueAggregate holds the league shooting percentages relative metrics are
// measured against.
type LeagueAggregate struct {
	TSLeague float64 `json:"ts_league"`
	Avg3P    float64 `json:"avg_3p"`
	AvgFT    float64 `json:"avg_ft"`
}

// Aggregate derives the league percentages from the totals.
func (t LeagueTotals) Aggregate() LeagueAggregate {
	return LeagueAggregate{
		TSLeague: TrueShootingPct(t.PTS, TrueShootingAttempts(t.FGA, t.FTA)),
		Avg3P:    pct(t.FG3, t.FG3A),
		AvgFT:    pct(t.FT, t.FTA),
	}
}

// LeagueAggregateProvider supplies the league aggregate for a season.
// Implementations must return an error wrapping ErrLeagueAggregateUnavailable
// when the source has no league-average data for the key.
type LeagueAggregateProvider interface {
	LeagueAggregate(ctx context.Context, key SeasonKey) (LeagueAggregate, error)
}

// LeagueAggregateFunc adapts a function to LeagueAggregateProvider.
type LeagueAggregateFunc func(ctx context.Context, key SeasonKey) (LeagueAggregate, error)

func (f LeagueAggregateFunc) LeagueAggregate(ctx context.Context, key SeasonKey) (LeagueAggregate, error) {
	return f(ctx, key)
}

// StaticLeague serves fixed aggregates, mostly for tests and offline runs.
type StaticLeague map[SeasonKey]LeagueAggregate

func (s StaticLeague) LeagueAggregate(_ context.Context, key SeasonKey) (LeagueAggregate, error) {
	agg, ok := s[key]
	if !ok {
		return LeagueAggregate{}, ErrLeagueAggregateUnavailable
	}
	return agg, nil
}
