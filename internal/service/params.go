package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/athena/internal/stats"
)

// ParseQuery reads a Query from URL parameters:
//
//	from (or year), to, type, mode, team, player, min_mp, sort, order,
//	limit, offset, partial_stints
//
// team may repeat or hold a comma-separated list; player may repeat.
func ParseQuery(values url.Values) (Query, error) {
	var (
		q   Query
		err error
	)

	from := values.Get("from")
	if from == "" {
		from = values.Get("year")
	}
	if from == "" {
		return Query{}, fmt.Errorf("%w: from is required", ErrInvalidQuery)
	}
	if q.From, err = parseInt("from", from); err != nil {
		return Query{}, err
	}
	if raw := values.Get("to"); raw != "" {
		if q.To, err = parseInt("to", raw); err != nil {
			return Query{}, err
		}
	}
	to := q.To
	if to == 0 {
		to = q.From
	}
	if err := stats.ValidateRange(q.From, to, time.Now()); err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	if q.Type, err = stats.ParseSeasonType(values.Get("type")); err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if q.Mode, err = stats.ParseMode(values.Get("mode")); err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if raw := values.Get("partial_stints"); raw != "" {
		if q.IncludePartialStints, err = strconv.ParseBool(raw); err != nil {
			return Query{}, fmt.Errorf("%w: partial_stints must be a boolean", ErrInvalidQuery)
		}
	}

	for _, raw := range values["team"] {
		for _, team := range strings.Split(raw, ",") {
			if team = strings.TrimSpace(team); team != "" {
				q.Filter.Teams = append(q.Filter.Teams, team)
			}
		}
	}
	for _, player := range values["player"] {
		if player = strings.TrimSpace(player); player != "" {
			q.Filter.Players = append(q.Filter.Players, player)
		}
	}

	if raw := values.Get("min_mp"); raw != "" {
		if q.Filter.MinMP, err = strconv.ParseFloat(raw, 64); err != nil {
			return Query{}, fmt.Errorf("%w: min_mp must be a number", ErrInvalidQuery)
		}
	}

	q.Filter.Sort = strings.TrimSpace(values.Get("sort"))
	switch strings.ToLower(values.Get("order")) {
	case "", "asc":
	case "desc":
		q.Filter.Desc = true
	default:
		return Query{}, fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}

	if raw := values.Get("limit"); raw != "" {
		if q.Filter.Limit, err = parseInt("limit", raw); err != nil {
			return Query{}, err
		}
	}
	if raw := values.Get("offset"); raw != "" {
		if q.Filter.Offset, err = parseInt("offset", raw); err != nil {
			return Query{}, err
		}
	}

	return q, nil
}

func parseInt(name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, name)
	}
	return v, nil
}
