package bref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
)

// leagueAverageLabel names the league row in team tables.
const leagueAverageLabel = "League Average"

// headerAliases maps header labels that differ between page vintages onto
// canonical columns.
var headerAliases = map[string]stats.Column{
	"Team": stats.ColTeam,
	"Tm":   stats.ColTeam,
}

// ParseHTML converts raw HTML to a goquery Document. Basketball-Reference
// ships secondary tables inside HTML comments, so comment markers are
// removed first.
func ParseHTML(html string) (*goquery.Document, error) {
	html = strings.ReplaceAll(html, "<!--", "")
	html = strings.ReplaceAll(html, "-->", "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseTable extracts the player table with the given id. Rows are keyed by
// header label; repeated header rows inside the body are skipped. Cells the
// row does not have are left out of the RawRow.
func ParseTable(html, tableID string, form stats.TableForm) (stats.RawTable, error) {
	doc, err := ParseHTML(html)
	if err != nil {
		return stats.RawTable{}, err
	}

	table := doc.Find("table#" + tableID).First()
	if table.Length() == 0 {
		return stats.RawTable{}, fmt.Errorf("table %q: %w", tableID, ingest.ErrTableNotFound)
	}

	return stats.RawTable{
		Form:         form,
		PercentRatio: true,
		Rows:         tableRows(table),
	}, nil
}

// ParseLeagueTotals finds the "League Average" row of the team tables on a
// season summary page.
func ParseLeagueTotals(html string) (stats.LeagueTotals, error) {
	doc, err := ParseHTML(html)
	if err != nil {
		return stats.LeagueTotals{}, err
	}

	for _, id := range leagueTableIDs {
		table := doc.Find("table#" + id).First()
		if table.Length() == 0 {
			continue
		}
		for _, row := range tableRows(table) {
			team, _ := row.Lookup(stats.ColTeam)
			if strings.TrimRight(team, "*") != leagueAverageLabel {
				continue
			}
			return leagueTotalsFromRow(row), nil
		}
	}

	return stats.LeagueTotals{}, fmt.Errorf("no %q row: %w", leagueAverageLabel, stats.ErrLeagueAggregateUnavailable)
}

func leagueTotalsFromRow(row stats.RawRow) stats.LeagueTotals {
	num := func(col stats.Column) float64 {
		v, _ := parseNumber(row, col)
		return v
	}
	return stats.LeagueTotals{
		PTS:  num(stats.ColPoints),
		FGA:  num(stats.ColFGA),
		FTA:  num(stats.ColFTA),
		FG3:  num(stats.ColFG3),
		FG3A: num(stats.ColFG3A),
		FT:   num(stats.ColFT),
	}
}

func tableRows(table *goquery.Selection) []stats.RawRow {
	headers := headerColumns(table)

	rows := make([]stats.RawRow, 0)
	// team tables keep the league row in the footer
	table.Find("tbody tr, tfoot tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.HasClass("thead") || tr.HasClass("over_header") {
			return
		}

		row := make(stats.RawRow, len(headers))
		tr.ChildrenFiltered("th, td").Each(func(i int, cell *goquery.Selection) {
			if i >= len(headers) || headers[i] == "" {
				return
			}
			row[headers[i]] = strings.TrimSpace(cell.Text())
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	return rows
}

// headerColumns reads the last header row, which holds the per-column
// labels (earlier rows are group headers).
func headerColumns(table *goquery.Selection) []stats.Column {
	var cols []stats.Column
	table.Find("thead tr").Last().ChildrenFiltered("th, td").Each(func(_ int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		if alias, ok := headerAliases[label]; ok {
			cols = append(cols, alias)
			return
		}
		if label == "Rk" {
			label = ""
		}
		cols = append(cols, stats.Column(label))
	})
	return cols
}

func parseNumber(row stats.RawRow, col stats.Column) (float64, bool) {
	text, ok := row.Lookup(col)
	if !ok || text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
