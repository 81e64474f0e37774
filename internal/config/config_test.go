package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.RESTPort)
	assert.Equal(t, FetcherHTTP, cfg.Source.Fetcher)
	assert.Equal(t, 3*time.Second, cfg.RequestInterval())
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.SourceTimeout())
	assert.Equal(t, 4, cfg.Service.SeasonWorkers)
	assert.Equal(t, "0 4 * * *", cfg.Scheduler.Cron)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envRESTPort, "9000")
	t.Setenv(envDSN, "postgres://localhost/athena")
	t.Setenv(envBaseURL, "http://mirror.local/")
	t.Setenv(envFetcher, "Browser")
	t.Setenv(envCacheTTL, "90m")
	t.Setenv(envSeasonWorkers, "8")
	t.Setenv(envCurrentSeason, "2025")
	t.Setenv(envSchedulerOn, "false")
	t.Setenv(envLogLevel, "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.RESTPort)
	assert.Equal(t, "postgres://localhost/athena", cfg.Database.DSN)
	assert.Equal(t, "http://mirror.local", cfg.Source.BaseURL)
	assert.Equal(t, FetcherBrowser, cfg.Source.Fetcher)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 8, cfg.Service.SeasonWorkers)
	assert.Equal(t, 2025, cfg.Service.CurrentSeason)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadTOMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "athena.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
rest_port = "7000"

[source]
request_interval = "5s"

[service]
season_workers = 2
`), 0o644))

	t.Setenv(envConfigPath, path)
	t.Setenv(envSeasonWorkers, "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.RESTPort)
	assert.Equal(t, 5*time.Second, cfg.RequestInterval())
	assert.Equal(t, 6, cfg.Service.SeasonWorkers, "env wins over file")
	assert.Equal(t, "8081", cfg.Server.WSPort, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad interval":  func(c *Config) { c.Source.RequestInterval = "soon" },
		"zero ttl":      func(c *Config) { c.Cache.TTL = "0s" },
		"bad fetcher":   func(c *Config) { c.Source.Fetcher = "curl" },
		"no workers":    func(c *Config) { c.Service.SeasonWorkers = 0 },
		"no attempts":   func(c *Config) { c.Source.MaxAttempts = 0 },
		"bad cron":      func(c *Config) { c.Scheduler.Cron = "every day" },
		"negative year": func(c *Config) { c.Service.CurrentSeason = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.Cron = "ignored when disabled"
	assert.NoError(t, cfg.Validate())
}

func TestCurrentSeason(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2027, cfg.CurrentSeason(time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2026, cfg.CurrentSeason(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))

	cfg.Service.CurrentSeason = 2024
	assert.Equal(t, 2024, cfg.CurrentSeason(time.Now()))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("ATHENA_TEST_BOOL", "yes")
	assert.True(t, getEnvBool("ATHENA_TEST_BOOL", false))
	t.Setenv("ATHENA_TEST_BOOL", "0")
	assert.False(t, getEnvBool("ATHENA_TEST_BOOL", true))
	t.Setenv("ATHENA_TEST_BOOL", "maybe")
	assert.True(t, getEnvBool("ATHENA_TEST_BOOL", true))
}
