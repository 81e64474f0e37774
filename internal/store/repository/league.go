package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/athena/internal/stats"
	"github.com/fortuna/athena/internal/store"
)

// LeagueRepository stores league totals per season.
type LeagueRepository struct {
	db *store.Database
}

// NewLeagueRepository creates a new league totals repository
func NewLeagueRepository(db *store.Database) *LeagueRepository {
	return &LeagueRepository{db: db}
}

// FetchLeagueTotals returns the stored totals for key, or an error wrapping
// stats.ErrLeagueAggregateUnavailable when none are stored.
func (r *LeagueRepository) FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
	query := `
		SELECT pts, fga, fta, fg3, fg3a, ft
		FROM league_totals
		WHERE year = $1 AND season_type = $2
	`

	var t stats.LeagueTotals
	err := r.db.DB().QueryRowContext(ctx, query, key.Year, string(key.Type)).
		Scan(&t.PTS, &t.FGA, &t.FTA, &t.FG3, &t.FG3A, &t.FT)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.LeagueTotals{}, fmt.Errorf("%s not stored: %w", key, stats.ErrLeagueAggregateUnavailable)
	}
	if err != nil {
		return stats.LeagueTotals{}, fmt.Errorf("querying league totals %s: %w", key, err)
	}
	return t, nil
}

// SaveTotals upserts the totals for key.
func (r *LeagueRepository) SaveTotals(ctx context.Context, key stats.SeasonKey, totals stats.LeagueTotals) error {
	query := `
		INSERT INTO league_totals (year, season_type, pts, fga, fta, fg3, fg3a, ft, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (year, season_type) DO UPDATE SET
			pts = EXCLUDED.pts,
			fga = EXCLUDED.fga,
			fta = EXCLUDED.fta,
			fg3 = EXCLUDED.fg3,
			fg3a = EXCLUDED.fg3a,
			ft = EXCLUDED.ft,
			fetched_at = NOW()
	`

	_, err := r.db.DB().ExecContext(ctx, query,
		key.Year, string(key.Type), totals.PTS, totals.FGA, totals.FTA, totals.FG3, totals.FG3A, totals.FT,
	)
	if err != nil {
		return fmt.Errorf("saving league totals %s: %w", key, err)
	}
	return nil
}

// DeleteSeason removes the stored totals for key.
func (r *LeagueRepository) DeleteSeason(ctx context.Context, key stats.SeasonKey) error {
	query := `DELETE FROM league_totals WHERE year = $1 AND season_type = $2`

	if _, err := r.db.DB().ExecContext(ctx, query, key.Year, string(key.Type)); err != nil {
		return fmt.Errorf("deleting league totals %s: %w", key, err)
	}
	return nil
}
