package stats

// FreeThrowWeight converts free-throw attempts into shooting possessions in
// the true-shooting attempt formula.
const FreeThrowWeight = 0.44

// TurnoverFloor replaces a zero turnover count in AST:TOV. AST:TOV for a
// player without turnovers is therefore AST itself; it is a floor, not a true
// ratio.
const TurnoverFloor = 1.0

// TrueShootingAttempts returns FGA + 0.44*FTA.
func TrueShootingAttempts(fga, fta float64) float64 {
	return fga + FreeThrowWeight*fta
}

// TrueShootingPct returns PTS/(2*TSA)*100, or 0 when TSA is 0.
func TrueShootingPct(pts, tsa float64) float64 {
	if tsa == 0 {
		return 0
	}
	return pts / (2 * tsa) * 100
}

// AssistTurnover returns AST/TOV with TOV floored at TurnoverFloor when zero.
func AssistTurnover(ast, tov float64) float64 {
	if tov == 0 {
		tov = TurnoverFloor
	}
	return ast / tov
}

// Derive computes the per-row metrics against the season's league aggregate.
// Values are left unrounded; rAST:TOV needs the whole season and is filled by
// RankAssistTurnover.
func Derive(row *PlayerSeasonRow, league LeagueAggregate) {
	m := &row.DerivedMetrics

	m.TSA = TrueShootingAttempts(row.FGA, row.FTA)
	m.TSPct = TrueShootingPct(row.PTS, m.TSA)
	m.RelTSPct = m.TSPct - league.TSLeague

	m.FG3Pct = pct(row.FG3, row.FG3A)
	m.RelFG3Pct = m.FG3Pct - league.Avg3P

	m.RelFTPct = row.FTPct - league.AvgFT

	m.AstTov = AssistTurnover(row.AST, row.TOV)
}

// pct returns made/attempted*100, or 0 without attempts.
func pct(made, attempted float64) float64 {
	if attempted == 0 {
		return 0
	}
	return made / attempted * 100
}
