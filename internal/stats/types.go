package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SeasonType distinguishes regular season tables from playoff tables.
type SeasonType string

const (
	SeasonRegular  SeasonType = "regular"
	SeasonPlayoffs SeasonType = "playoffs"
)

// ParseSeasonType accepts the API spellings of a season type.
func ParseSeasonType(s string) (SeasonType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular", "regular-season", "leagues":
		return SeasonRegular, nil
	case "playoffs", "playoff", "post":
		return SeasonPlayoffs, nil
	}
	return "", fmt.Errorf("unknown season type %q", s)
}

// Mode selects how counting stats are expressed.
type Mode string

const (
	ModePerGame Mode = "per-game"
	ModePer75   Mode = "per-75-possessions"
)

// ParseMode accepts the API spellings of a stats mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-game", "per_game", "pergame":
		return ModePerGame, nil
	case "per-75", "per75", "per-75-possessions", "per_75":
		return ModePer75, nil
	}
	return "", fmt.Errorf("unknown stats mode %q", s)
}

// TableForm describes what the counting stats in a raw table represent.
type TableForm string

const (
	FormPerGame TableForm = "per-game"
	FormTotals  TableForm = "totals"
	FormPer100  TableForm = "per-100-possessions"
)

// SeasonKey identifies one season of one type. Year is the calendar year the
// season ends in, so 2024 is the 2023-24 season.
type SeasonKey struct {
	Year int        `json:"year"`
	Type SeasonType `json:"season_type"`
}

// Label renders the season the way box-score sites do ("2023-24").
func (k SeasonKey) Label() string {
	return SeasonLabel(k.Year)
}

func (k SeasonKey) String() string {
	return fmt.Sprintf("%s %s", k.Label(), k.Type)
}

// SeasonLabel renders an end year as "YYYY-YY".
func SeasonLabel(year int) string {
	return fmt.Sprintf("%d-%02d", year-1, year%100)
}

// EarliestSeason is the first season box-score sources tabulate (1946-47).
const EarliestSeason = 1947

// ErrInvalidRange is returned for an empty or out-of-range season span.
var ErrInvalidRange = errors.New("invalid season range")

// LatestSeason is the end year of the newest season that can have tables at
// now. Seasons tip off in October and are named after the year they end in.
func LatestSeason(now time.Time) int {
	if now.Month() >= time.October {
		return now.Year() + 1
	}
	return now.Year()
}

// ValidateRange checks that from..to is a non-empty span of seasons that can
// exist at now.
func ValidateRange(from, to int, now time.Time) error {
	if from > to {
		return fmt.Errorf("%w: %d is after %d", ErrInvalidRange, from, to)
	}
	if from < EarliestSeason {
		return fmt.Errorf("%w: no seasons before %d", ErrInvalidRange, EarliestSeason)
	}
	if latest := LatestSeason(now); to > latest {
		return fmt.Errorf("%w: no seasons after %d", ErrInvalidRange, latest)
	}
	return nil
}

// SeasonRange expands the inclusive span from..to into keys of type t. The
// span must lie between EarliestSeason and the current season.
func SeasonRange(from, to int, t SeasonType) ([]SeasonKey, error) {
	if err := ValidateRange(from, to, time.Now()); err != nil {
		return nil, err
	}
	keys := make([]SeasonKey, 0, to-from+1)
	for y := from; y <= to; y++ {
		keys = append(keys, SeasonKey{Year: y, Type: t})
	}
	return keys, nil
}

// Column is a canonical raw table column name.
type Column string

const (
	ColPlayer   Column = "Player"
	ColTeam     Column = "Tm"
	ColPosition Column = "Pos"
	ColGames    Column = "G"
	ColMinutes  Column = "MP"
	ColPoints   Column = "PTS"
	ColFGA      Column = "FGA"
	ColFTA      Column = "FTA"
	ColFG3      Column = "3P"
	ColFG3A     Column = "3PA"
	ColFG3Pct   Column = "3P%"
	ColFT       Column = "FT"
	ColFTPct    Column = "FT%"
	ColAssists  Column = "AST"
	ColTOV      Column = "TOV"
	ColRebounds Column = "TRB"
)

// RawRow is one parsed table row keyed by canonical column. Columns the source
// table does not carry are absent from the map.
type RawRow map[Column]string

// Lookup returns the trimmed cell for col and whether the column was present.
func (r RawRow) Lookup(col Column) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// RawTable is one season's player table as delivered by the parsing
// collaborator.
type RawTable struct {
	Form TableForm `json:"form"`
	// PercentRatio is set when 3P% and FT% are 0-1 ratios rather than
	// percentages.
	PercentRatio bool     `json:"percent_ratio"`
	Rows         []RawRow `json:"rows"`
}

// AggregateMarker fills the Team and Season fields of career rows.
const AggregateMarker = "aggregate"

// DerivedMetrics are attached to a row by Derive and RankAssistTurnover.
type DerivedMetrics struct {
	TSA       float64 `json:"tsa"`
	TSPct     float64 `json:"ts_pct"`
	RelTSPct  float64 `json:"rts_pct"`
	FG3Pct    float64 `json:"fg3_pct"`
	RelFG3Pct float64 `json:"rfg3_pct"`
	RelFTPct  float64 `json:"rft_pct"`
	AstTov    float64 `json:"ast_tov"`
	RelAstTov float64 `json:"rast_tov"`
}

// PlayerSeasonRow is one player, one team stint, one season of one type.
type PlayerSeasonRow struct {
	Player     string     `json:"player"`
	Team       string     `json:"team"`
	Position   string     `json:"position"`
	Season     string     `json:"season"`
	Year       int        `json:"year"`
	SeasonType SeasonType `json:"season_type"`

	G   int     `json:"g"`
	MP  float64 `json:"mp"`
	PTS float64 `json:"pts"`
	FGA float64 `json:"fga"`
	FTA float64 `json:"fta"`
	FG3 float64 `json:"fg3"`
	// FG3A and SourceFG3Pct come straight from the table; the derived 3P%
	// lives in DerivedMetrics.
	FG3A         float64 `json:"fg3a"`
	SourceFG3Pct float64 `json:"source_fg3_pct"`
	FT           float64 `json:"ft"`
	FTPct        float64 `json:"ft_pct"`
	AST          float64 `json:"ast"`
	TOV          float64 `json:"tov"`
	TRB          float64 `json:"trb"`

	DerivedMetrics

	// Seasons is only set on career rows: the number of seasons averaged.
	Seasons int `json:"seasons,omitempty"`
}

// IsAggregate reports whether the row is a career average row.
func (r PlayerSeasonRow) IsAggregate() bool {
	return r.Team == AggregateMarker && r.Season == AggregateMarker
}

// CareerAverageRow is a synthetic games-weighted row spanning several seasons.
// Team and Season always hold AggregateMarker.
type CareerAverageRow PlayerSeasonRow
