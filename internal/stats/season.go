package stats

import (
	"context"
	"fmt"
)

// PresentationPrecision is the number of decimals derived metrics are rounded
// to once a season is finalized.
const PresentationPrecision = 2

// SeasonAggregator assembles one fully enriched season table.
type SeasonAggregator struct {
	league LeagueAggregateProvider
}

// NewSeasonAggregator builds an aggregator over the given league provider.
func NewSeasonAggregator(league LeagueAggregateProvider) *SeasonAggregator {
	return &SeasonAggregator{league: league}
}

// Aggregate normalizes the raw table, derives every row's metrics against the
// season's league aggregate and ranks AST:TOV within positions. The league
// aggregate is required; its absence fails the season.
func (a *SeasonAggregator) Aggregate(ctx context.Context, key SeasonKey, table RawTable, mode Mode) ([]PlayerSeasonRow, error) {
	if a.league == nil {
		return nil, fmt.Errorf("season %s: %w", key, ErrLeagueAggregateUnavailable)
	}

	rows := Normalize(table, mode)

	league, err := a.league.LeagueAggregate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("league aggregate for %s: %w", key, err)
	}

	label := key.Label()
	for i := range rows {
		rows[i].Season = label
		rows[i].Year = key.Year
		rows[i].SeasonType = key.Type
		Derive(&rows[i], league)
	}

	RankAssistTurnover(rows)

	for i := range rows {
		roundMetrics(&rows[i].DerivedMetrics, PresentationPrecision)
	}

	return rows, nil
}

func roundMetrics(m *DerivedMetrics, places int) {
	for _, field := range []*float64{
		&m.TSA, &m.TSPct, &m.RelTSPct, &m.FG3Pct, &m.RelFG3Pct,
		&m.RelFTPct, &m.AstTov, &m.RelAstTov,
	} {
		*field = Round(*field, places)
	}
}
