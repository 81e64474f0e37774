package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTrueShooting(t *testing.T) {
	row := PlayerSeasonRow{PTS: 20, FGA: 40}
	Derive(&row, LeagueAggregate{TSLeague: 55})

	assert.Equal(t, 40.0, row.TSA)
	assert.Equal(t, 25.0, row.TSPct)
	assert.Equal(t, -30.0, row.RelTSPct)
}

func TestDeriveCountsFreeThrowAttempts(t *testing.T) {
	row := PlayerSeasonRow{PTS: 27, FGA: 18, FTA: 10}
	Derive(&row, LeagueAggregate{})

	assert.InDelta(t, 22.4, row.TSA, 1e-9)
	assert.InDelta(t, 27/(2*22.4)*100, row.TSPct, 1e-9)
}

func TestDeriveZeroDenominators(t *testing.T) {
	row := PlayerSeasonRow{AST: 3}
	league := LeagueAggregate{TSLeague: 56, Avg3P: 36, AvgFT: 78}
	Derive(&row, league)

	assert.Zero(t, row.TSPct, "no attempts means zero TS%")
	assert.Equal(t, -56.0, row.RelTSPct)
	assert.Zero(t, row.FG3Pct)
	assert.Equal(t, -36.0, row.RelFG3Pct)
	assert.Equal(t, -78.0, row.RelFTPct)
	assert.Equal(t, 3.0, row.AstTov, "zero turnovers floors to one")

	for _, v := range []float64{row.TSA, row.TSPct, row.RelTSPct, row.FG3Pct, row.RelFG3Pct, row.RelFTPct, row.AstTov} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestDeriveShootingRelatives(t *testing.T) {
	row := PlayerSeasonRow{FG3: 3, FG3A: 8, FTPct: 90, AST: 6, TOV: 2.5}
	Derive(&row, LeagueAggregate{Avg3P: 36, AvgFT: 78})

	assert.Equal(t, 37.5, row.FG3Pct)
	assert.Equal(t, 1.5, row.RelFG3Pct)
	assert.Equal(t, 12.0, row.RelFTPct)
	assert.Equal(t, 2.4, row.AstTov)
}

func TestAssistTurnoverFloor(t *testing.T) {
	assert.Equal(t, 7.2, AssistTurnover(7.2, 0))
	assert.Zero(t, AssistTurnover(0, 0))
	assert.Equal(t, 0.5, AssistTurnover(1, 2))
}

func TestLeagueTotalsAggregate(t *testing.T) {
	totals := LeagueTotals{PTS: 114.2, FGA: 88.9, FTA: 21.7, FG3: 12.8, FG3A: 35.1, FT: 17.0}
	agg := totals.Aggregate()

	assert.InDelta(t, 114.2/(2*(88.9+0.44*21.7))*100, agg.TSLeague, 1e-9)
	assert.InDelta(t, 12.8/35.1*100, agg.Avg3P, 1e-9)
	assert.InDelta(t, 17.0/21.7*100, agg.AvgFT, 1e-9)

	assert.Equal(t, LeagueAggregate{}, LeagueTotals{}.Aggregate())
}
