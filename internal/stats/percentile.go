package stats

import "sort"

// PercentileRanks returns the percentile rank (0-100] of every value within
// the slice. A value's rank is its 1-based position in ascending order; tied
// values share the mean of the positions they occupy. The percentile is
// rank/n*100, so the maximum is always 100 and a single value ranks 100.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[order[end]] == values[order[start]] {
			end++
		}
		// positions start+1 .. end, averaged
		avg := float64(start+1+end) / 2
		for _, idx := range order[start:end] {
			ranks[idx] = avg / float64(n) * 100
		}
		start = end
	}

	return ranks
}

// RankAssistTurnover sets RelAstTov on every row to the percentile of its
// AST:TOV among rows sharing its position. Groups never compare across
// positions.
func RankAssistTurnover(rows []PlayerSeasonRow) {
	groups := make(map[string][]int)
	for i := range rows {
		groups[rows[i].Position] = append(groups[rows[i].Position], i)
	}

	for _, members := range groups {
		values := make([]float64, len(members))
		for j, idx := range members {
			values[j] = rows[idx].AstTov
		}
		for j, rank := range PercentileRanks(values) {
			rows[members[j]].RelAstTov = rank
		}
	}
}
