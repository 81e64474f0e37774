package stats

import (
	"regexp"
	"sort"
)

// combinedStint matches the team code tables use for a traded player's
// season-long line ("TOT" on older pages, "2TM", "3TM" on newer ones).
var combinedStint = regexp.MustCompile(`^(TOT|\d+TM)$`)

// IsCombinedStint reports whether team is a multi-team season total.
func IsCombinedStint(team string) bool {
	return combinedStint.MatchString(team)
}

// CareerOptions tunes CareerAverages.
type CareerOptions struct {
	// IncludePartialStints also weights the single-team rows of a season in
	// which the player has a combined multi-team row. Off by default since
	// the combined row already covers those games.
	IncludePartialStints bool
}

type careerKey struct {
	player     string
	seasonType SeasonType
}

// CareerAverages reduces season rows into one games-weighted row per player
// and season type. Each weighted field is sum(metric*G)/sum(G) over the
// player's rows. Players whose rows sum to zero games have no defined
// average and are left out. Rows that are already aggregates are ignored.
// Results are ordered by player name, then season type.
func CareerAverages(rows []PlayerSeasonRow, opts CareerOptions) []CareerAverageRow {
	if !opts.IncludePartialStints {
		rows = dropPartialStints(rows)
	}

	groups := make(map[careerKey][]PlayerSeasonRow)
	var keys []careerKey
	for _, row := range rows {
		if row.IsAggregate() {
			continue
		}
		key := careerKey{player: row.Player, seasonType: row.SeasonType}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].player != keys[j].player {
			return keys[i].player < keys[j].player
		}
		return keys[i].seasonType < keys[j].seasonType
	})

	out := make([]CareerAverageRow, 0, len(keys))
	for _, key := range keys {
		row, ok := weightedAverage(groups[key])
		if !ok {
			continue
		}
		out = append(out, row)
	}
	return out
}

// AppendCareer returns the season rows followed by the career rows.
func AppendCareer(rows []PlayerSeasonRow, careers []CareerAverageRow) []PlayerSeasonRow {
	out := make([]PlayerSeasonRow, 0, len(rows)+len(careers))
	out = append(out, rows...)
	for _, c := range careers {
		out = append(out, PlayerSeasonRow(c))
	}
	return out
}

func weightedAverage(rows []PlayerSeasonRow) (CareerAverageRow, bool) {
	var games int
	for _, r := range rows {
		games += r.G
	}
	if games == 0 {
		return CareerAverageRow{}, false
	}

	latest := rows[0]
	seasons := make(map[int]struct{})
	for _, r := range rows {
		if r.Year >= latest.Year {
			latest = r
		}
		seasons[r.Year] = struct{}{}
	}

	w := float64(games)
	weighted := func(places int, field func(PlayerSeasonRow) float64) float64 {
		var sum float64
		for _, r := range rows {
			sum += field(r) * float64(r.G)
		}
		return Round(sum/w, places)
	}
	counting := func(field func(PlayerSeasonRow) float64) float64 {
		return weighted(countingPrecision, field)
	}
	metric := func(field func(PlayerSeasonRow) float64) float64 {
		return weighted(PresentationPrecision, field)
	}

	return CareerAverageRow{
		Player:     latest.Player,
		Team:       AggregateMarker,
		Position:   latest.Position,
		Season:     AggregateMarker,
		SeasonType: latest.SeasonType,
		G:          games,
		Seasons:    len(seasons),

		MP:    counting(func(r PlayerSeasonRow) float64 { return r.MP }),
		PTS:   counting(func(r PlayerSeasonRow) float64 { return r.PTS }),
		FGA:   counting(func(r PlayerSeasonRow) float64 { return r.FGA }),
		FG3:   counting(func(r PlayerSeasonRow) float64 { return r.FG3 }),
		FG3A:  counting(func(r PlayerSeasonRow) float64 { return r.FG3A }),
		FTA:   counting(func(r PlayerSeasonRow) float64 { return r.FTA }),
		FT:    counting(func(r PlayerSeasonRow) float64 { return r.FT }),
		FTPct: counting(func(r PlayerSeasonRow) float64 { return r.FTPct }),
		AST:   counting(func(r PlayerSeasonRow) float64 { return r.AST }),
		TOV:   counting(func(r PlayerSeasonRow) float64 { return r.TOV }),
		TRB:   counting(func(r PlayerSeasonRow) float64 { return r.TRB }),

		DerivedMetrics: DerivedMetrics{
			TSA:       metric(func(r PlayerSeasonRow) float64 { return r.TSA }),
			TSPct:     metric(func(r PlayerSeasonRow) float64 { return r.TSPct }),
			RelTSPct:  metric(func(r PlayerSeasonRow) float64 { return r.RelTSPct }),
			FG3Pct:    metric(func(r PlayerSeasonRow) float64 { return r.FG3Pct }),
			RelFG3Pct: metric(func(r PlayerSeasonRow) float64 { return r.RelFG3Pct }),
			RelFTPct:  metric(func(r PlayerSeasonRow) float64 { return r.RelFTPct }),
			AstTov:    metric(func(r PlayerSeasonRow) float64 { return r.AstTov }),
			RelAstTov: metric(func(r PlayerSeasonRow) float64 { return r.RelAstTov }),
		},
	}, true
}

type stintKey struct {
	player     string
	year       int
	seasonType SeasonType
}

// dropPartialStints removes single-team rows for any player season that also
// has a combined multi-team row.
func dropPartialStints(rows []PlayerSeasonRow) []PlayerSeasonRow {
	combined := make(map[stintKey]bool)
	for _, r := range rows {
		if IsCombinedStint(r.Team) {
			combined[stintKey{r.Player, r.Year, r.SeasonType}] = true
		}
	}
	if len(combined) == 0 {
		return rows
	}

	out := make([]PlayerSeasonRow, 0, len(rows))
	for _, r := range rows {
		if combined[stintKey{r.Player, r.Year, r.SeasonType}] && !IsCombinedStint(r.Team) {
			continue
		}
		out = append(out, r)
	}
	return out
}
