package stats

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonTable(rows ...RawRow) RawTable {
	return RawTable{Form: FormPerGame, PercentRatio: true, Rows: rows}
}

func TestSeasonAggregatorEnrichesRows(t *testing.T) {
	key := SeasonKey{Year: 2024, Type: SeasonRegular}
	league := StaticLeague{key: {TSLeague: 55, Avg3P: 36, AvgFT: 78}}
	agg := NewSeasonAggregator(league)

	table := seasonTable(
		RawRow{ColPlayer: "Guard", ColTeam: "BOS", ColPosition: "PG", ColGames: "70", ColMinutes: "33",
			ColPoints: "20", ColFGA: "40", ColFG3: "3", ColFG3A: "8", ColFTPct: ".900", ColAssists: "8", ColTOV: "2"},
		RawRow{ColPlayer: "Backup", ColTeam: "BOS", ColPosition: "PG", ColGames: "50", ColMinutes: "12",
			ColPoints: "5", ColFGA: "5", ColAssists: "2", ColTOV: "0"},
		RawRow{ColPlayer: "Dropped", ColTeam: "BOS", ColPosition: "C"},
	)

	rows, err := agg.Aggregate(context.Background(), key, table, ModePerGame)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	guard := rows[0]
	assert.Equal(t, "2023-24", guard.Season)
	assert.Equal(t, 2024, guard.Year)
	assert.Equal(t, SeasonRegular, guard.SeasonType)
	assert.Equal(t, 25.0, guard.TSPct)
	assert.Equal(t, -30.0, guard.RelTSPct)
	assert.Equal(t, 37.5, guard.FG3Pct)
	assert.Equal(t, 1.5, guard.RelFG3Pct)
	assert.Equal(t, 12.0, guard.RelFTPct)
	assert.Equal(t, 4.0, guard.AstTov)
	assert.Equal(t, 100.0, guard.RelAstTov)

	backup := rows[1]
	assert.Equal(t, 2.0, backup.AstTov)
	assert.Equal(t, 50.0, backup.RelAstTov)
	assert.Equal(t, 50.0, backup.TSPct)
}

func TestSeasonAggregatorRoundsOnce(t *testing.T) {
	key := SeasonKey{Year: 2023, Type: SeasonPlayoffs}
	agg := NewSeasonAggregator(StaticLeague{key: {TSLeague: 56}})

	table := seasonTable(RawRow{ColPlayer: "P", ColTeam: "MIA", ColPosition: "SG", ColGames: "82",
		ColMinutes: "30", ColPoints: "24", ColFGA: "44"})

	rows, err := agg.Aggregate(context.Background(), key, table, ModePerGame)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 27.27, rows[0].TSPct)
	// relative value derives from the unrounded TS%
	assert.Equal(t, -28.73, rows[0].RelTSPct)
}

func TestSeasonAggregatorLeagueUnavailable(t *testing.T) {
	agg := NewSeasonAggregator(StaticLeague{})

	_, err := agg.Aggregate(context.Background(), SeasonKey{Year: 1950, Type: SeasonRegular},
		seasonTable(RawRow{ColPlayer: "P", ColTeam: "BOS", ColMinutes: "30"}), ModePerGame)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLeagueAggregateUnavailable))
}

func TestSeasonAggregatorPropagatesProviderErrors(t *testing.T) {
	boom := errors.New("upstream exploded")
	agg := NewSeasonAggregator(LeagueAggregateFunc(func(context.Context, SeasonKey) (LeagueAggregate, error) {
		return LeagueAggregate{}, boom
	}))

	_, err := agg.Aggregate(context.Background(), SeasonKey{Year: 2020, Type: SeasonRegular}, RawTable{}, ModePerGame)
	assert.ErrorIs(t, err, boom)
}

func TestSeasonAggregatorEmptyTable(t *testing.T) {
	key := SeasonKey{Year: 2020, Type: SeasonRegular}
	agg := NewSeasonAggregator(StaticLeague{key: {TSLeague: 56}})

	rows, err := agg.Aggregate(context.Background(), key, RawTable{}, ModePerGame)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSeasonKeyLabel(t *testing.T) {
	assert.Equal(t, "2023-24", SeasonKey{Year: 2024}.Label())
	assert.Equal(t, "1999-00", SeasonLabel(2000))
	assert.Equal(t, "1979-80", SeasonLabel(1980))
}

func TestParseSeasonTypeAndMode(t *testing.T) {
	st, err := ParseSeasonType("Playoffs")
	require.NoError(t, err)
	assert.Equal(t, SeasonPlayoffs, st)

	st, err = ParseSeasonType("")
	require.NoError(t, err)
	assert.Equal(t, SeasonRegular, st)

	_, err = ParseSeasonType("preseason")
	assert.Error(t, err)

	mode, err := ParseMode("per-75")
	require.NoError(t, err)
	assert.Equal(t, ModePer75, mode)

	_, err = ParseMode("per-36")
	assert.Error(t, err)
}

func TestSeasonRange(t *testing.T) {
	keys, err := SeasonRange(2022, 2024, SeasonPlayoffs)
	require.NoError(t, err)
	assert.Equal(t, []SeasonKey{
		{Year: 2022, Type: SeasonPlayoffs},
		{Year: 2023, Type: SeasonPlayoffs},
		{Year: 2024, Type: SeasonPlayoffs},
	}, keys)

	_, err = SeasonRange(2024, 2023, SeasonRegular)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = SeasonRange(1900, 1950, SeasonRegular)
	assert.ErrorIs(t, err, ErrInvalidRange)

	latest := LatestSeason(time.Now())
	_, err = SeasonRange(EarliestSeason, latest, SeasonRegular)
	assert.NoError(t, err)

	_, err = SeasonRange(latest, latest+3_000_000, SeasonRegular)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = SeasonRange(EarliestSeason, math.MaxInt, SeasonRegular)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestLatestSeason(t *testing.T) {
	assert.Equal(t, 2027, LatestSeason(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2026, LatestSeason(time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)))
}

func TestValidateRange(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateRange(2020, 2025, now))
	assert.ErrorIs(t, ValidateRange(2020, 2026, now), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(2025, 2020, now), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(1946, 1950, now), ErrInvalidRange)
}
