package service

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fortuna/athena/internal/stats"
)

// Filter narrows and orders a result table. Empty fields do not filter.
type Filter struct {
	Teams   []string
	Players []string
	MinMP   float64
	Sort    string
	Desc    bool
	Limit   int
	Offset  int
}

type sortKey func(a, b stats.PlayerSeasonRow) int

func byFloat(field func(stats.PlayerSeasonRow) float64) sortKey {
	return func(a, b stats.PlayerSeasonRow) int { return cmp.Compare(field(a), field(b)) }
}

func byString(field func(stats.PlayerSeasonRow) string) sortKey {
	return func(a, b stats.PlayerSeasonRow) int { return strings.Compare(field(a), field(b)) }
}

// sortKeys are addressed by the row's JSON field names.
var sortKeys = map[string]sortKey{
	"player":   byString(func(r stats.PlayerSeasonRow) string { return r.Player }),
	"team":     byString(func(r stats.PlayerSeasonRow) string { return r.Team }),
	"position": byString(func(r stats.PlayerSeasonRow) string { return r.Position }),
	"year":     byFloat(func(r stats.PlayerSeasonRow) float64 { return float64(r.Year) }),
	"g":        byFloat(func(r stats.PlayerSeasonRow) float64 { return float64(r.G) }),
	"mp":       byFloat(func(r stats.PlayerSeasonRow) float64 { return r.MP }),
	"pts":      byFloat(func(r stats.PlayerSeasonRow) float64 { return r.PTS }),
	"ast":      byFloat(func(r stats.PlayerSeasonRow) float64 { return r.AST }),
	"tov":      byFloat(func(r stats.PlayerSeasonRow) float64 { return r.TOV }),
	"trb":      byFloat(func(r stats.PlayerSeasonRow) float64 { return r.TRB }),
	"tsa":      byFloat(func(r stats.PlayerSeasonRow) float64 { return r.TSA }),
	"ts_pct":   byFloat(func(r stats.PlayerSeasonRow) float64 { return r.TSPct }),
	"rts_pct":  byFloat(func(r stats.PlayerSeasonRow) float64 { return r.RelTSPct }),
	"fg3_pct":  byFloat(func(r stats.PlayerSeasonRow) float64 { return r.FG3Pct }),
	"rfg3_pct": byFloat(func(r stats.PlayerSeasonRow) float64 { return r.RelFG3Pct }),
	"ft_pct":   byFloat(func(r stats.PlayerSeasonRow) float64 { return r.FTPct }),
	"rft_pct":  byFloat(func(r stats.PlayerSeasonRow) float64 { return r.RelFTPct }),
	"ast_tov":  byFloat(func(r stats.PlayerSeasonRow) float64 { return r.AstTov }),
	"rast_tov": byFloat(func(r stats.PlayerSeasonRow) float64 { return r.RelAstTov }),
}

// SortColumns lists the accepted Sort values.
func SortColumns() []string {
	cols := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		cols = append(cols, k)
	}
	slices.Sort(cols)
	return cols
}

func (f Filter) validate() error {
	if f.Sort != "" {
		if _, ok := sortKeys[strings.ToLower(f.Sort)]; !ok {
			return fmt.Errorf("%w: unknown sort column %q", ErrInvalidQuery, f.Sort)
		}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidQuery)
	}
	if f.MinMP < 0 {
		return fmt.Errorf("%w: min_mp must not be negative", ErrInvalidQuery)
	}
	return nil
}

// Apply filters, sorts and pages rows. It returns the page and the number of
// rows that matched before paging. Career rows are not subject to the team
// filter: one is kept when any season row of the same player matched it.
func (f Filter) Apply(rows []stats.PlayerSeasonRow) ([]stats.PlayerSeasonRow, int) {
	matched := f.match(rows)

	if key, ok := sortKeys[strings.ToLower(f.Sort)]; ok {
		slices.SortStableFunc(matched, func(a, b stats.PlayerSeasonRow) int {
			if f.Desc {
				return key(b, a)
			}
			return key(a, b)
		})
	}

	total := len(matched)
	if f.Offset >= total {
		return []stats.PlayerSeasonRow{}, total
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total
}

func (f Filter) match(rows []stats.PlayerSeasonRow) []stats.PlayerSeasonRow {
	teams := lowerSet(f.Teams)
	players := lowerSet(f.Players)

	// players with at least one season row on a requested team
	onTeam := make(map[string]bool)
	if len(teams) > 0 {
		for _, r := range rows {
			if !r.IsAggregate() && teams[strings.ToLower(r.Team)] {
				onTeam[r.Player] = true
			}
		}
	}

	out := make([]stats.PlayerSeasonRow, 0, len(rows))
	for _, r := range rows {
		if len(players) > 0 && !players[strings.ToLower(r.Player)] {
			continue
		}
		if len(teams) > 0 {
			if r.IsAggregate() {
				if !onTeam[r.Player] {
					continue
				}
			} else if !teams[strings.ToLower(r.Team)] {
				continue
			}
		}
		if f.MinMP > 0 && r.MP < f.MinMP {
			continue
		}
		out = append(out, r)
	}
	return out
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}
