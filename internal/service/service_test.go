package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/stats"
)

// fixture seasons: a guard who changes teams in 2024 and a center on BOS.
var fixtureTables = map[int]stats.RawTable{
	2023: {Form: stats.FormPerGame, PercentRatio: true, Rows: []stats.RawRow{
		{stats.ColPlayer: "Guard", stats.ColTeam: "BOS", stats.ColPosition: "PG", stats.ColGames: "70",
			stats.ColMinutes: "34", stats.ColPoints: "20", stats.ColFGA: "40", stats.ColAssists: "6", stats.ColTOV: "3"},
		{stats.ColPlayer: "Center", stats.ColTeam: "BOS", stats.ColPosition: "C", stats.ColGames: "60",
			stats.ColMinutes: "15", stats.ColPoints: "8", stats.ColFGA: "6", stats.ColAssists: "1", stats.ColTOV: "1"},
	}},
	2024: {Form: stats.FormPerGame, PercentRatio: true, Rows: []stats.RawRow{
		{stats.ColPlayer: "Guard", stats.ColTeam: "NYK", stats.ColPosition: "PG", stats.ColGames: "82",
			stats.ColMinutes: "35", stats.ColPoints: "24", stats.ColFGA: "44", stats.ColAssists: "7", stats.ColTOV: "2"},
		{stats.ColPlayer: "Center", stats.ColTeam: "BOS", stats.ColPosition: "C", stats.ColGames: "50",
			stats.ColMinutes: "18", stats.ColPoints: "10", stats.ColFGA: "8", stats.ColAssists: "2", stats.ColTOV: "1"},
	}},
}

func fixtureService(t *testing.T, recorder *metrics.Recorder) *EfficiencyService {
	t.Helper()

	tables := ingest.TableProviderFunc(func(_ context.Context, req ingest.TableRequest) (stats.RawTable, error) {
		table, ok := fixtureTables[req.Key.Year]
		if !ok || req.Key.Type != stats.SeasonRegular {
			return stats.RawTable{}, fmt.Errorf("%s: %w", req, ingest.ErrTableNotFound)
		}
		return table, nil
	})
	league := ingest.LeagueTotalsFunc(func(_ context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
		if _, ok := fixtureTables[key.Year]; !ok {
			return stats.LeagueTotals{}, fmt.Errorf("%s: %w", key, stats.ErrLeagueAggregateUnavailable)
		}
		return stats.LeagueTotals{PTS: 100, FGA: 100, FT: 15, FTA: 20, FG3: 12, FG3A: 34}, nil
	})
	return NewEfficiencyService(tables, league, Options{Workers: 2, Recorder: recorder})
}

func TestRunSingleSeasonHasNoCareerRows(t *testing.T) {
	svc := fixtureService(t, nil)

	result, err := svc.Run(context.Background(), Query{From: 2024}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-24"}, result.Seasons)
	assert.Equal(t, stats.SeasonRegular, result.Type)
	assert.Equal(t, stats.ModePerGame, result.Mode)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.Total)
	for _, r := range result.Rows {
		assert.False(t, r.IsAggregate())
	}
}

func TestRunRangeAppendsCareerRows(t *testing.T) {
	rec := metrics.NewRecorder()
	svc := fixtureService(t, rec)

	var (
		mu   sync.Mutex
		seen []int
	)
	result, err := svc.Run(context.Background(), Query{From: 2023, To: 2024}, func(s SeasonResult) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Key.Year)
		assert.Len(t, s.Rows, 2)
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{2023, 2024}, seen)
	require.Len(t, result.Rows, 6)

	// season rows keep season order, careers follow
	assert.Equal(t, 2023, result.Rows[0].Year)
	assert.Equal(t, 2024, result.Rows[2].Year)
	assert.True(t, result.Rows[4].IsAggregate())
	assert.True(t, result.Rows[5].IsAggregate())

	assert.Equal(t, 2, rec.Snapshot("", "").Seasons)
}

func TestRunFailsWholeRangeOnOneSeason(t *testing.T) {
	svc := fixtureService(t, nil)

	result, err := svc.Run(context.Background(), Query{From: 2023, To: 2025}, nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ingest.ErrTableNotFound))
}

func TestRunBoundsConcurrentSeasons(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	tables := ingest.TableProviderFunc(func(context.Context, ingest.TableRequest) (stats.RawTable, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return fixtureTables[2024], nil
	})
	league := ingest.LeagueTotalsFunc(func(context.Context, stats.SeasonKey) (stats.LeagueTotals, error) {
		return stats.LeagueTotals{PTS: 100, FGA: 100, FT: 15, FTA: 20, FG3: 12, FG3A: 34}, nil
	})
	svc := NewEfficiencyService(tables, league, Options{Workers: 2})

	result, err := svc.Run(context.Background(), Query{From: 2000, To: 2011}, nil)
	require.NoError(t, err)
	assert.Len(t, result.Seasons, 12)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.GreaterOrEqual(t, peak, 1)
}

func TestRunMissingLeagueAggregate(t *testing.T) {
	tables := ingest.TableProviderFunc(func(context.Context, ingest.TableRequest) (stats.RawTable, error) {
		return fixtureTables[2024], nil
	})
	league := ingest.LeagueTotalsFunc(func(_ context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
		return stats.LeagueTotals{}, fmt.Errorf("%s: %w", key, stats.ErrLeagueAggregateUnavailable)
	})
	svc := NewEfficiencyService(tables, league, Options{})

	_, err := svc.Run(context.Background(), Query{From: 2024}, nil)
	assert.ErrorIs(t, err, stats.ErrLeagueAggregateUnavailable)
}

func TestRunRejectsInvalidQueries(t *testing.T) {
	svc := fixtureService(t, nil)

	_, err := svc.Run(context.Background(), Query{From: 2024, To: 2023}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Run(context.Background(), Query{From: 1947, To: 2_000_000_000}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorIs(t, err, stats.ErrInvalidRange)

	_, err = svc.Run(context.Background(), Query{From: 1947, To: math.MaxInt}, nil)
	assert.ErrorIs(t, err, stats.ErrInvalidRange)

	_, err = svc.Run(context.Background(), Query{From: 2024, Filter: Filter{Sort: "height"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Run(context.Background(), Query{From: 2024, Filter: Filter{Limit: -1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRunHonoursCancellation(t *testing.T) {
	svc := fixtureService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, Query{From: 2023, To: 2024}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTeamFilterKeepsCareerRows(t *testing.T) {
	svc := fixtureService(t, nil)

	result, err := svc.Run(context.Background(), Query{From: 2023, To: 2024, Filter: Filter{Teams: []string{"nyk"}}}, nil)
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "NYK", result.Rows[0].Team)
	assert.True(t, result.Rows[1].IsAggregate())
	assert.Equal(t, "Guard", result.Rows[1].Player)
}

func TestFilterPlayersAndMinutes(t *testing.T) {
	rows := []stats.PlayerSeasonRow{
		{Player: "Guard", Team: "BOS", MP: 34},
		{Player: "Center", Team: "BOS", MP: 15},
		{Player: "Wing", Team: "MIA", MP: 30},
	}

	compared, total := Filter{Players: []string{"guard", "Wing"}}.Apply(rows)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Guard", compared[0].Player)
	assert.Equal(t, "Wing", compared[1].Player)

	starters, _ := Filter{MinMP: 30}.Apply(rows)
	assert.Len(t, starters, 2)

	none, total := Filter{Teams: []string{"LAL"}}.Apply(rows)
	assert.Empty(t, none)
	assert.Zero(t, total)
}

func TestFilterSortAndPage(t *testing.T) {
	rows := []stats.PlayerSeasonRow{
		{Player: "A", DerivedMetrics: stats.DerivedMetrics{RelTSPct: 1.5}},
		{Player: "B", DerivedMetrics: stats.DerivedMetrics{RelTSPct: -2}},
		{Player: "C", DerivedMetrics: stats.DerivedMetrics{RelTSPct: 4}},
		{Player: "D", DerivedMetrics: stats.DerivedMetrics{RelTSPct: 0}},
	}

	page, total := Filter{Sort: "rts_pct", Desc: true, Limit: 2, Offset: 1}.Apply(rows)

	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "A", page[0].Player)
	assert.Equal(t, "D", page[1].Player)

	past, total := Filter{Offset: 10}.Apply(rows)
	assert.Empty(t, past)
	assert.Equal(t, 4, total)

	asc, _ := Filter{Sort: "PLAYER"}.Apply([]stats.PlayerSeasonRow{{Player: "b"}, {Player: "a"}})
	assert.Equal(t, "a", asc[0].Player)
}

func TestSortColumnsSorted(t *testing.T) {
	cols := SortColumns()
	assert.Contains(t, cols, "rts_pct")
	assert.IsIncreasing(t, cols)
}

func TestLeagueSummary(t *testing.T) {
	svc := fixtureService(t, nil)

	summary, err := svc.League(context.Background(), stats.SeasonKey{Year: 2024, Type: stats.SeasonRegular})
	require.NoError(t, err)
	assert.Equal(t, "2023-24", summary.Season)
	assert.Equal(t, 45.96, summary.Aggregate.TSLeague)
	assert.Equal(t, 35.29, summary.Aggregate.Avg3P)
	assert.Equal(t, 75.0, summary.Aggregate.AvgFT)

	_, err = svc.League(context.Background(), stats.SeasonKey{Year: 1990, Type: stats.SeasonRegular})
	assert.ErrorIs(t, err, stats.ErrLeagueAggregateUnavailable)

	_, err = svc.League(context.Background(), stats.SeasonKey{Year: 1900})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGlossaryCoversMetrics(t *testing.T) {
	entries := Glossary()
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = e.Term
	}
	for _, term := range []string{"TS%", "rTS%", "r3P%", "rFT%", "AST/TOV", "rAST/TOV"} {
		assert.Contains(t, terms, term)
	}

	entries[0].Term = "mutated"
	assert.Equal(t, "PTS", Glossary()[0].Term)
}
