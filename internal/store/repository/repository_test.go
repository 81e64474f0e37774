package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/stats"
	"github.com/fortuna/athena/internal/store"
)

// openTestDatabase connects to ATHENA_TEST_DSN and applies migrations. Tests
// are skipped when it is unset.
func openTestDatabase(t *testing.T) *store.Database {
	t.Helper()

	dsn := os.Getenv("ATHENA_TEST_DSN")
	if dsn == "" {
		t.Skip("ATHENA_TEST_DSN not set")
	}

	db, err := store.NewDatabase(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(nil))
	return db
}

func TestTableRepositoryRoundTrip(t *testing.T) {
	db := openTestDatabase(t)
	repo := NewTableRepository(db)
	ctx := context.Background()

	req := ingest.TableRequest{Key: stats.SeasonKey{Year: 1901, Type: stats.SeasonRegular}, Mode: stats.ModePerGame}
	t.Cleanup(func() { _ = repo.DeleteSeason(ctx, req.Key) })

	_, err := repo.FetchTable(ctx, req)
	assert.ErrorIs(t, err, ingest.ErrTableNotFound)

	table := stats.RawTable{
		Form:         stats.FormPerGame,
		PercentRatio: true,
		Rows:         []stats.RawRow{{stats.ColPlayer: "A", stats.ColTeam: "BOS", stats.ColMinutes: "30"}},
	}
	require.NoError(t, repo.SaveTable(ctx, req, table))
	require.NoError(t, repo.SaveTable(ctx, req, table), "saving twice upserts")

	got, err := repo.FetchTable(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	seasons, err := repo.ListSeasons(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range seasons {
		if s.Key == req.Key && s.Mode == req.Mode {
			found = true
			assert.Equal(t, 1, s.RowCount)
		}
	}
	assert.True(t, found)
}

func TestLeagueRepositoryRoundTrip(t *testing.T) {
	db := openTestDatabase(t)
	repo := NewLeagueRepository(db)
	ctx := context.Background()

	key := stats.SeasonKey{Year: 1901, Type: stats.SeasonPlayoffs}
	t.Cleanup(func() { _ = repo.DeleteSeason(ctx, key) })

	_, err := repo.FetchLeagueTotals(ctx, key)
	assert.ErrorIs(t, err, stats.ErrLeagueAggregateUnavailable)

	totals := stats.LeagueTotals{PTS: 110, FGA: 88, FTA: 22, FG3: 12, FG3A: 34, FT: 17}
	require.NoError(t, repo.SaveTotals(ctx, key, totals))

	got, err := repo.FetchLeagueTotals(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, totals, got)
}
