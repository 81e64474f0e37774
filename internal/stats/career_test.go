package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSeasonFixture builds the 2023 and 2024 seasons for a single guard with
// league TS% of 55 and 56.
func twoSeasonFixture(t *testing.T) []PlayerSeasonRow {
	t.Helper()

	s1 := SeasonKey{Year: 2023, Type: SeasonRegular}
	s2 := SeasonKey{Year: 2024, Type: SeasonRegular}
	agg := NewSeasonAggregator(StaticLeague{
		s1: {TSLeague: 55, Avg3P: 35, AvgFT: 77},
		s2: {TSLeague: 56, Avg3P: 36, AvgFT: 78},
	})

	first, err := agg.Aggregate(context.Background(), s1, seasonTable(
		RawRow{ColPlayer: "Guard", ColTeam: "BOS", ColPosition: "PG", ColGames: "70", ColMinutes: "34",
			ColPoints: "20", ColFGA: "40", ColAssists: "6", ColTOV: "3", ColRebounds: "4"},
		RawRow{ColPlayer: "Other", ColTeam: "NYK", ColPosition: "PG", ColGames: "60", ColMinutes: "20",
			ColPoints: "8", ColFGA: "7", ColAssists: "2", ColTOV: "1"},
	), ModePerGame)
	require.NoError(t, err)

	second, err := agg.Aggregate(context.Background(), s2, seasonTable(
		RawRow{ColPlayer: "Guard", ColTeam: "BOS", ColPosition: "PG", ColGames: "82", ColMinutes: "35",
			ColPoints: "24", ColFGA: "44", ColAssists: "7", ColTOV: "2", ColRebounds: "5"},
	), ModePerGame)
	require.NoError(t, err)

	return append(first, second...)
}

func findCareer(t *testing.T, careers []CareerAverageRow, player string) CareerAverageRow {
	t.Helper()
	for _, c := range careers {
		if c.Player == player {
			return c
		}
	}
	t.Fatalf("no career row for %s", player)
	return CareerAverageRow{}
}

func TestCareerAveragesWeightsByGames(t *testing.T) {
	rows := twoSeasonFixture(t)

	careers := CareerAverages(rows, CareerOptions{})
	require.Len(t, careers, 2)

	guard := findCareer(t, careers, "Guard")
	assert.Equal(t, 152, guard.G)
	assert.Equal(t, 2, guard.Seasons)
	assert.Equal(t, AggregateMarker, guard.Team)
	assert.Equal(t, AggregateMarker, guard.Season)
	assert.True(t, PlayerSeasonRow(guard).IsAggregate())

	assert.InDelta(t, (20.0*70+24.0*82)/152, guard.PTS, 1e-3)
	assert.InDelta(t, (25.0*70+27.27*82)/152, guard.TSPct, 0.01)
	assert.InDelta(t, (-30.0*70+-28.73*82)/152, guard.RelTSPct, 0.01)
	assert.InDelta(t, (2.0*70+3.5*82)/152, guard.AstTov, 0.01)
	assert.InDelta(t, (4.0*70+5.0*82)/152, guard.TRB, 1e-3)
}

func TestCareerAveragesSingleSeasonIsIdentity(t *testing.T) {
	rows := twoSeasonFixture(t)[:2] // the 2023 season only

	careers := CareerAverages(rows, CareerOptions{})
	require.Len(t, careers, 2)

	for _, season := range rows {
		career := findCareer(t, careers, season.Player)
		assert.Equal(t, season.G, career.G)
		assert.Equal(t, season.PTS, career.PTS)
		assert.Equal(t, season.FGA, career.FGA)
		assert.Equal(t, season.AST, career.AST)
		assert.Equal(t, season.TSPct, career.TSPct)
		assert.Equal(t, season.RelTSPct, career.RelTSPct)
		assert.Equal(t, season.FG3Pct, career.FG3Pct)
		assert.Equal(t, season.RelFG3Pct, career.RelFG3Pct)
		assert.Equal(t, season.RelFTPct, career.RelFTPct)
		assert.Equal(t, season.AstTov, career.AstTov)
		assert.Equal(t, season.RelAstTov, career.RelAstTov)
	}
}

func TestCareerAveragesSkipsZeroGamePlayers(t *testing.T) {
	rows := []PlayerSeasonRow{
		{Player: "Ghost", Team: "BOS", Year: 2023, G: 0, PTS: 10},
		{Player: "Ghost", Team: "BOS", Year: 2024, G: 0, PTS: 12},
		{Player: "Real", Team: "BOS", Year: 2024, G: 3, PTS: 9},
	}

	careers := CareerAverages(rows, CareerOptions{})

	require.Len(t, careers, 1)
	assert.Equal(t, "Real", careers[0].Player)
}

func TestCareerAveragesCollapsesTradedSeasons(t *testing.T) {
	rows := []PlayerSeasonRow{
		{Player: "Traded", Team: "2TM", Year: 2024, G: 60, PTS: 15},
		{Player: "Traded", Team: "DET", Year: 2024, G: 30, PTS: 10},
		{Player: "Traded", Team: "NYK", Year: 2024, G: 30, PTS: 20},
		{Player: "Traded", Team: "NYK", Year: 2025, G: 40, PTS: 25},
	}

	careers := CareerAverages(rows, CareerOptions{})
	require.Len(t, careers, 1)
	assert.Equal(t, 100, careers[0].G)
	assert.InDelta(t, (15.0*60+25.0*40)/100, careers[0].PTS, 1e-9)

	literal := CareerAverages(rows, CareerOptions{IncludePartialStints: true})
	require.Len(t, literal, 1)
	assert.Equal(t, 160, literal[0].G)
}

func TestCareerAveragesIgnoresExistingAggregates(t *testing.T) {
	rows := twoSeasonFixture(t)
	once := AppendCareer(rows, CareerAverages(rows, CareerOptions{}))

	again := CareerAverages(once, CareerOptions{})
	assert.Equal(t, CareerAverages(rows, CareerOptions{}), again)
}

func TestAppendCareerKeepsSeasonRows(t *testing.T) {
	rows := twoSeasonFixture(t)
	careers := CareerAverages(rows, CareerOptions{})

	table := AppendCareer(rows, careers)

	require.Len(t, table, len(rows)+len(careers))
	assert.Equal(t, rows, table[:len(rows)])
	for _, row := range table[len(rows):] {
		assert.True(t, row.IsAggregate())
	}
}

func TestIsCombinedStint(t *testing.T) {
	for _, team := range []string{"TOT", "2TM", "3TM", "10TM"} {
		assert.True(t, IsCombinedStint(team), team)
	}
	for _, team := range []string{"BOS", "TM", "aggregate", ""} {
		assert.False(t, IsCombinedStint(team), team)
	}
}
