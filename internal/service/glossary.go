package service

// GlossaryEntry explains one column of the efficiency table.
type GlossaryEntry struct {
	Term        string `json:"term"`
	Field       string `json:"field"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var glossary = []GlossaryEntry{
	{Term: "PTS", Field: "pts", Name: "Points"},
	{Term: "MP", Field: "mp", Name: "Minutes Played"},
	{
		Term: "TS%", Field: "ts_pct", Name: "True Shooting Percentage",
		Description: "A measure of efficiency taking into account free throws as well as 3s being worth more points than 2s.",
	},
	{
		Term: "rTS%", Field: "rts_pct", Name: "Relative True Shooting Percentage",
		Description: "How many percentage points above or below the league average TS% a player falls.",
	},
	{Term: "3P%", Field: "fg3_pct", Name: "Three-Point Percentage"},
	{
		Term: "r3P%", Field: "rfg3_pct", Name: "Relative Three-Point Percentage",
		Description: "How many percentage points above or below the league average 3P% a player falls.",
	},
	{
		Term: "rFT%", Field: "rft_pct", Name: "Relative Free Throw Percentage",
		Description: "How many percentage points above or below the league average FT% a player falls.",
	},
	{
		Term: "AST/TOV", Field: "ast_tov", Name: "Assist-to-Turnover Ratio",
		Description: "The ratio of assists per game to turnovers per game a player has. " +
			"A number over 1 indicates more assists than turnovers.",
	},
	{
		Term: "rAST/TOV", Field: "rast_tov", Name: "Relative Assist-to-Turnover Ratio",
		Description: "The percentile ranking a player is at their position for their AST/TOV ratio. " +
			"Adjusted for position to account for some positions naturally being less passing inclined than others. " +
			"99 = 99th percentile, aka one of the best. 50 is average.",
	},
}

// Glossary returns the column definitions in display order.
func Glossary() []GlossaryEntry {
	out := make([]GlossaryEntry, len(glossary))
	copy(out, glossary)
	return out
}
