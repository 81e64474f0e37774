package bref

import (
	"fmt"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
)

// DefaultBaseURL is the public Basketball-Reference site.
const DefaultBaseURL = "https://www.basketball-reference.com"

// Player table ids.
const (
	TablePerGame = "per_game_stats"
	TablePerPoss = "per_poss_stats"
)

// Team tables that carry the "League Average" row, in preference order.
var leagueTableIDs = []string{"per_game-team", "totals-team", "per_game_team", "team-stats-per_game", "team-stats-base"}

func sectionFor(t stats.SeasonType) string {
	if t == stats.SeasonPlayoffs {
		return "playoffs"
	}
	return "leagues"
}

// PlayerTableURL returns the page and table id holding the player table for
// req. Per-75 tables are derived from the per-100-possessions page.
func PlayerTableURL(baseURL string, req ingest.TableRequest) (string, string, stats.TableForm) {
	page, tableID, form := "per_game", TablePerGame, stats.FormPerGame
	if req.Mode == stats.ModePer75 {
		page, tableID, form = "per_poss", TablePerPoss, stats.FormPer100
	}
	url := fmt.Sprintf("%s/%s/NBA_%d_%s.html", baseURL, sectionFor(req.Key.Type), req.Key.Year, page)
	return url, tableID, form
}

// LeagueURL returns the season summary page holding team tables.
func LeagueURL(baseURL string, key stats.SeasonKey) string {
	return fmt.Sprintf("%s/%s/NBA_%d.html", baseURL, sectionFor(key.Type), key.Year)
}
