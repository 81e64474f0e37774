package stats

import (
	"math"
	"strconv"
	"strings"
)

// Per75Factor turns a per-100-possessions rate into a per-75 one.
const Per75Factor = 0.75

// countingPrecision is the rounding applied to scaled counting stats.
const countingPrecision = 3

// Normalize coerces one season's raw table into PlayerSeasonRows.
//
// Rows missing a player, a team or a parseable MP are dropped. Every other
// missing or unparseable numeric cell becomes 0, and only after that filter,
// so zero-filling never resurrects an invalid row. The returned rows carry no
// season tags and no derived metrics yet.
func Normalize(table RawTable, mode Mode) []PlayerSeasonRow {
	rows := make([]PlayerSeasonRow, 0, len(table.Rows))

	for _, raw := range table.Rows {
		player, ok := raw.Lookup(ColPlayer)
		if !ok || player == "" {
			continue
		}
		team, ok := raw.Lookup(ColTeam)
		if !ok || team == "" {
			continue
		}
		mp, ok := parseCell(raw, ColMinutes)
		if !ok {
			continue
		}

		pos, _ := raw.Lookup(ColPosition)
		row := PlayerSeasonRow{
			Player:       CleanPlayerName(player),
			Team:         team,
			Position:     pos,
			G:            gamesCell(raw),
			MP:           mp,
			PTS:          numberOrZero(raw, ColPoints),
			FGA:          numberOrZero(raw, ColFGA),
			FTA:          numberOrZero(raw, ColFTA),
			FG3:          numberOrZero(raw, ColFG3),
			FG3A:         numberOrZero(raw, ColFG3A),
			SourceFG3Pct: numberOrZero(raw, ColFG3Pct),
			FT:           numberOrZero(raw, ColFT),
			FTPct:        numberOrZero(raw, ColFTPct),
			AST:          numberOrZero(raw, ColAssists),
			TOV:          numberOrZero(raw, ColTOV),
			TRB:          numberOrZero(raw, ColRebounds),
		}

		if table.PercentRatio {
			row.SourceFG3Pct *= 100
			row.FTPct *= 100
		}
		row.SourceFG3Pct = Round(row.SourceFG3Pct, countingPrecision)
		row.FTPct = Round(row.FTPct, countingPrecision)

		scaleCounting(&row, table.Form, mode)
		rows = append(rows, row)
	}

	return rows
}

// scaleCounting applies the per-game or per-75 conversion to the counting
// stats and rounds them. Totals and per-100 tables report MP as season
// minutes, so MP always leaves here as minutes per game.
func scaleCounting(row *PlayerSeasonRow, form TableForm, mode Mode) {
	perGame := func(v float64) float64 {
		if row.G == 0 {
			return 0
		}
		return v / float64(row.G)
	}

	if form == FormTotals || form == FormPer100 {
		row.MP = perGame(row.MP)
	}

	var scale func(float64) float64
	switch {
	case mode == ModePer75:
		scale = func(v float64) float64 { return v * Per75Factor }
	case form == FormTotals:
		scale = perGame
	default:
		scale = func(v float64) float64 { return v }
	}

	row.MP = Round(row.MP, countingPrecision)
	for _, field := range []*float64{
		&row.PTS, &row.FGA, &row.FTA, &row.FG3, &row.FG3A,
		&row.FT, &row.AST, &row.TOV, &row.TRB,
	} {
		*field = Round(scale(*field), countingPrecision)
	}
}

// CleanPlayerName trims whitespace and the Hall-of-Fame asterisk some tables
// append to a name.
func CleanPlayerName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, "*")
	return strings.Join(strings.Fields(name), " ")
}

// parseCell reports the numeric value of col; false when the column is
// absent, blank or unparseable.
func parseCell(raw RawRow, col Column) (float64, bool) {
	text, ok := raw.Lookup(col)
	if !ok || text == "" {
		return 0, false
	}
	text = strings.ReplaceAll(text, ",", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func numberOrZero(raw RawRow, col Column) float64 {
	v, _ := parseCell(raw, col)
	return v
}

func gamesCell(raw RawRow) int {
	v, ok := parseCell(raw, ColGames)
	if !ok || v < 0 {
		return 0
	}
	return int(v)
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
