package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/fortuna/athena/internal/stats"
)

// Fetcher names accepted by Source.Fetcher.
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config is the athena service configuration. Values are read from an
// optional TOML file and then overridden by environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Source    SourceConfig    `toml:"source"`
	Cache     CacheConfig     `toml:"cache"`
	Service   ServiceConfig   `toml:"service"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds listener ports.
type ServerConfig struct {
	RESTPort string `toml:"rest_port"`
	WSPort   string `toml:"ws_port"`
}

// DatabaseConfig points at the Postgres store. An empty DSN runs without one.
type DatabaseConfig struct {
	DSN            string `toml:"dsn"`
	MigrateOnStart bool   `toml:"migrate_on_start"`
}

// RedisConfig points at Redis. An empty URL falls back to the in-memory cache.
type RedisConfig struct {
	URL string `toml:"url"`
}

// SourceConfig controls the Basketball-Reference client.
type SourceConfig struct {
	BaseURL         string `toml:"base_url"`
	Fetcher         string `toml:"fetcher"`          // "http" or "browser"
	RequestInterval string `toml:"request_interval"` // minimum gap between requests
	Timeout         string `toml:"timeout"`
	MaxAttempts     int    `toml:"max_attempts"`
}

// CacheConfig controls table and league caching.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	TTL     string `toml:"ttl"`
}

// ServiceConfig tunes the efficiency service.
type ServiceConfig struct {
	SeasonWorkers int `toml:"season_workers"`
	// CurrentSeason is the end year of the current season; 0 derives it
	// from the clock.
	CurrentSeason int `toml:"current_season"`
}

// SchedulerConfig controls the periodic refresh job.
type SchedulerConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			RESTPort: "8080",
			WSPort:   "8081",
		},
		Database: DatabaseConfig{
			MigrateOnStart: true,
		},
		Source: SourceConfig{
			BaseURL:         "https://www.basketball-reference.com",
			Fetcher:         FetcherHTTP,
			RequestInterval: "3s",
			Timeout:         "30s",
			MaxAttempts:     3,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     "24h",
		},
		Service: ServiceConfig{
			SeasonWorkers: 4,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Cron:    "0 4 * * *",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env (when present), the TOML file named by ATHENA_CONFIG (when
// set) and the environment, in that order, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if _, err := parsePositiveDuration(c.Source.RequestInterval); err != nil {
		return fmt.Errorf("invalid request interval %q: %w", c.Source.RequestInterval, err)
	}
	if _, err := parsePositiveDuration(c.Source.Timeout); err != nil {
		return fmt.Errorf("invalid source timeout %q: %w", c.Source.Timeout, err)
	}
	if _, err := parsePositiveDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Cache.TTL, err)
	}

	switch c.Source.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("unknown fetcher %q (want %q or %q)", c.Source.Fetcher, FetcherHTTP, FetcherBrowser)
	}

	if c.Source.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive: %d", c.Source.MaxAttempts)
	}
	if c.Service.SeasonWorkers <= 0 {
		return fmt.Errorf("season workers must be positive: %d", c.Service.SeasonWorkers)
	}
	if c.Service.CurrentSeason < 0 {
		return fmt.Errorf("current season cannot be negative: %d", c.Service.CurrentSeason)
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("invalid refresh cron %q: %w", c.Scheduler.Cron, err)
		}
	}

	return nil
}

// RequestInterval returns the minimum delay between upstream requests.
func (c *Config) RequestInterval() time.Duration {
	d, _ := parsePositiveDuration(c.Source.RequestInterval)
	return d
}

// SourceTimeout returns the per-request timeout for upstream fetches.
func (c *Config) SourceTimeout() time.Duration {
	d, _ := parsePositiveDuration(c.Source.Timeout)
	return d
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	d, _ := parsePositiveDuration(c.Cache.TTL)
	return d
}

// CurrentSeason returns the configured current season end year, or the one
// derived from now when unset. A season is named after the year it ends in
// and tips off in October.
func (c *Config) CurrentSeason(now time.Time) int {
	if c.Service.CurrentSeason > 0 {
		return c.Service.CurrentSeason
	}
	return stats.LatestSeason(now)
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
