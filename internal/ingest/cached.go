package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fortuna/athena/internal/cache"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/stats"
)

const keyPrefix = "athena"

// Cache kinds, also used as metric attributes.
const (
	KindTable  = "table"
	KindLeague = "league"
)

// TableCacheKey is the cache key of a raw season table.
func TableCacheKey(req TableRequest) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", keyPrefix, KindTable, req.Key.Year, req.Key.Type, req.Mode)
}

// LeagueCacheKey is the cache key of a season's league totals.
func LeagueCacheKey(key stats.SeasonKey) string {
	return fmt.Sprintf("%s:%s:%d:%s", keyPrefix, KindLeague, key.Year, key.Type)
}

// SeasonCacheKeys lists every key cached for a season, for invalidation.
func SeasonCacheKeys(key stats.SeasonKey) []string {
	return []string{
		LeagueCacheKey(key),
		TableCacheKey(TableRequest{Key: key, Mode: stats.ModePerGame}),
		TableCacheKey(TableRequest{Key: key, Mode: stats.ModePer75}),
	}
}

// CachedTables serves raw tables from a cache in front of inner. Cache
// failures are logged and bypassed; errors from inner are never cached.
type CachedTables struct {
	inner    TableProvider
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewCachedTables wraps inner.
func NewCachedTables(inner TableProvider, c cache.Cache, ttl time.Duration, logger *slog.Logger, recorder *metrics.Recorder) *CachedTables {
	return &CachedTables{inner: inner, cache: c, ttl: ttl, logger: logger, recorder: recorder}
}

func (c *CachedTables) FetchTable(ctx context.Context, req TableRequest) (stats.RawTable, error) {
	key := TableCacheKey(req)

	var table stats.RawTable
	if readCache(ctx, c.cache, key, &table, KindTable, c.logger, c.recorder) {
		return table, nil
	}

	table, err := c.inner.FetchTable(ctx, req)
	if err != nil {
		return stats.RawTable{}, err
	}
	writeCache(ctx, c.cache, key, table, c.ttl, c.logger)
	return table, nil
}

// CachedLeague is CachedTables for league totals.
type CachedLeague struct {
	inner    LeagueTotalsProvider
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewCachedLeague wraps inner.
func NewCachedLeague(inner LeagueTotalsProvider, c cache.Cache, ttl time.Duration, logger *slog.Logger, recorder *metrics.Recorder) *CachedLeague {
	return &CachedLeague{inner: inner, cache: c, ttl: ttl, logger: logger, recorder: recorder}
}

func (c *CachedLeague) FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
	cacheKey := LeagueCacheKey(key)

	var totals stats.LeagueTotals
	if readCache(ctx, c.cache, cacheKey, &totals, KindLeague, c.logger, c.recorder) {
		return totals, nil
	}

	totals, err := c.inner.FetchLeagueTotals(ctx, key)
	if err != nil {
		return stats.LeagueTotals{}, err
	}
	writeCache(ctx, c.cache, cacheKey, totals, c.ttl, c.logger)
	return totals, nil
}

func readCache(ctx context.Context, c cache.Cache, key string, dst any, kind string, logger *slog.Logger, rec *metrics.Recorder) bool {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx, logger).Warn("cache read failed", "key", key, logging.FieldError, err)
		return false
	}
	if ok {
		if err := json.Unmarshal(data, dst); err == nil {
			rec.RecordCache(kind, true)
			return true
		}
		logging.FromContext(ctx, logger).Warn("discarding corrupt cache entry", "key", key)
	}
	rec.RecordCache(kind, false)
	return false
}

func writeCache(ctx context.Context, c cache.Cache, key string, value any, ttl time.Duration, logger *slog.Logger) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.FromContext(ctx, logger).Warn("cache encode failed", "key", key, logging.FieldError, err)
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		logging.FromContext(ctx, logger).Warn("cache write failed", "key", key, logging.FieldError, err)
	}
}
