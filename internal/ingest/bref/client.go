package bref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/stats"
)

// SourceName labels Basketball-Reference in logs and metrics.
const SourceName = "bref"

const (
	defaultInterval    = 3 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
)

// Options configure a Client. Zero values select the defaults.
type Options struct {
	BaseURL string
	// RequestInterval is the minimum gap between requests. Negative
	// disables limiting.
	RequestInterval time.Duration
	MaxAttempts     int
	Backoff         time.Duration
	Logger          *slog.Logger
	Recorder        *metrics.Recorder
}

// Client fetches and parses Basketball-Reference season pages. It
// implements ingest.TableProvider and ingest.LeagueTotalsProvider.
type Client struct {
	baseURL     string
	fetcher     Fetcher
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	recorder    *metrics.Recorder
}

// NewClient builds a Client over fetcher.
func NewClient(fetcher Fetcher, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestInterval == 0 {
		opts.RequestInterval = defaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		fetcher:     fetcher,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
	}
}

// FetchTable downloads and parses one season's player table.
func (c *Client) FetchTable(ctx context.Context, req ingest.TableRequest) (stats.RawTable, error) {
	url, tableID, form := PlayerTableURL(c.baseURL, req)

	html, err := c.get(ctx, url)
	if err != nil {
		return stats.RawTable{}, fmt.Errorf("fetch %s table: %w", req, err)
	}

	table, err := ParseTable(html, tableID, form)
	if err != nil {
		return stats.RawTable{}, fmt.Errorf("parse %s table: %w", req, err)
	}

	logging.FromContext(ctx, c.logger).Debug("fetched season table",
		logging.FieldSeason, req.Key.Label(),
		logging.FieldSeasonType, string(req.Key.Type),
		logging.FieldMode, string(req.Mode),
		logging.FieldRows, len(table.Rows),
	)
	return table, nil
}

// FetchLeagueTotals downloads the season summary page and extracts the
// league-average row. A missing page or row is reported as
// stats.ErrLeagueAggregateUnavailable.
func (c *Client) FetchLeagueTotals(ctx context.Context, key stats.SeasonKey) (stats.LeagueTotals, error) {
	url := LeagueURL(c.baseURL, key)

	html, err := c.get(ctx, url)
	if err != nil {
		if errors.Is(err, ingest.ErrTableNotFound) {
			return stats.LeagueTotals{}, fmt.Errorf("league totals for %s: %w: %w", key, stats.ErrLeagueAggregateUnavailable, err)
		}
		return stats.LeagueTotals{}, fmt.Errorf("league totals for %s: %w", key, err)
	}

	totals, err := ParseLeagueTotals(html)
	if err != nil {
		return stats.LeagueTotals{}, fmt.Errorf("league totals for %s: %w", key, err)
	}
	return totals, nil
}

// get fetches url under the rate limit, retrying 429 and 5xx responses with
// linear backoff.
func (c *Client) get(ctx context.Context, url string) (string, error) {
	logger := logging.FromContext(ctx, c.logger)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		start := time.Now()
		html, err := c.fetcher.Fetch(ctx, url)
		c.recorder.RecordFetch(SourceName, time.Since(start), err)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if errors.Is(err, ingest.ErrRateLimited) {
			c.recorder.RecordRateLimit(SourceName)
		}
		se, ok := ingest.AsStatusError(err)
		if !ok || !se.Retryable() || attempt == c.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * c.backoff
		if se.RetryAfter > delay {
			delay = se.RetryAfter
		}
		logger.Warn("source fetch retry",
			logging.FieldURL, url, "attempt", attempt, "max_attempts", c.maxAttempts,
			"delay", delay, logging.FieldError, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", lastErr
}
