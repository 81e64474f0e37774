package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
	"github.com/fortuna/athena/internal/store"
)

// TableRepository stores raw player tables keyed by season and mode.
type TableRepository struct {
	db *store.Database
}

// NewTableRepository creates a new raw table repository
func NewTableRepository(db *store.Database) *TableRepository {
	return &TableRepository{db: db}
}

// FetchTable returns the stored table for req. A missing row is reported as
// ingest.ErrTableNotFound so chains can fall through to a live source.
func (r *TableRepository) FetchTable(ctx context.Context, req ingest.TableRequest) (stats.RawTable, error) {
	query := `
		SELECT form, percent_ratio, rows
		FROM raw_season_tables
		WHERE year = $1 AND season_type = $2 AND mode = $3
	`

	var (
		form    string
		table   stats.RawTable
		payload []byte
	)
	err := r.db.DB().QueryRowContext(ctx, query, req.Key.Year, string(req.Key.Type), string(req.Mode)).
		Scan(&form, &table.PercentRatio, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.RawTable{}, fmt.Errorf("%s not stored: %w", req, ingest.ErrTableNotFound)
	}
	if err != nil {
		return stats.RawTable{}, fmt.Errorf("querying raw table %s: %w", req, err)
	}

	table.Form = stats.TableForm(form)
	if err := json.Unmarshal(payload, &table.Rows); err != nil {
		return stats.RawTable{}, fmt.Errorf("decoding raw table %s: %w", req, err)
	}
	return table, nil
}

// SaveTable upserts the table for req.
func (r *TableRepository) SaveTable(ctx context.Context, req ingest.TableRequest, table stats.RawTable) error {
	payload, err := json.Marshal(table.Rows)
	if err != nil {
		return fmt.Errorf("encoding raw table %s: %w", req, err)
	}

	query := `
		INSERT INTO raw_season_tables (year, season_type, mode, form, percent_ratio, rows, row_count, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, NOW())
		ON CONFLICT (year, season_type, mode) DO UPDATE SET
			form = EXCLUDED.form,
			percent_ratio = EXCLUDED.percent_ratio,
			rows = EXCLUDED.rows,
			row_count = EXCLUDED.row_count,
			fetched_at = NOW()
	`

	// pq sends []byte as bytea, so the JSON goes over the wire as text
	_, err = r.db.DB().ExecContext(ctx, query,
		req.Key.Year, string(req.Key.Type), string(req.Mode), string(table.Form),
		table.PercentRatio, string(payload), len(table.Rows),
	)
	if err != nil {
		return fmt.Errorf("saving raw table %s: %w", req, err)
	}
	return nil
}

// ListSeasons returns what is stored, newest season first.
func (r *TableRepository) ListSeasons(ctx context.Context) ([]store.StoredSeason, error) {
	query := `
		SELECT year, season_type, mode, row_count, fetched_at
		FROM raw_season_tables
		ORDER BY year DESC, season_type, mode
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying stored seasons: %w", err)
	}
	defer rows.Close()

	var seasons []store.StoredSeason
	for rows.Next() {
		var (
			s          store.StoredSeason
			seasonType string
			mode       string
		)
		if err := rows.Scan(&s.Key.Year, &seasonType, &mode, &s.RowCount, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning stored season: %w", err)
		}
		s.Key.Type = stats.SeasonType(seasonType)
		s.Mode = stats.Mode(mode)
		seasons = append(seasons, s)
	}

	return seasons, rows.Err()
}

// DeleteSeason removes every stored table for key.
func (r *TableRepository) DeleteSeason(ctx context.Context, key stats.SeasonKey) error {
	query := `DELETE FROM raw_season_tables WHERE year = $1 AND season_type = $2`

	if _, err := r.db.DB().ExecContext(ctx, query, key.Year, string(key.Type)); err != nil {
		return fmt.Errorf("deleting raw tables %s: %w", key, err)
	}
	return nil
}
