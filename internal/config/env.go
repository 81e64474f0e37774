package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	envConfigPath      = "ATHENA_CONFIG"
	envRESTPort        = "REST_PORT"
	envWSPort          = "WS_PORT"
	envDSN             = "ATHENA_DSN"
	envMigrate         = "MIGRATE_ON_START"
	envRedisURL        = "REDIS_URL"
	envBaseURL         = "BREF_BASE_URL"
	envFetcher         = "FETCHER"
	envRequestInterval = "REQUEST_INTERVAL"
	envSourceTimeout   = "SOURCE_TIMEOUT"
	envMaxAttempts     = "SOURCE_MAX_ATTEMPTS"
	envCacheEnabled    = "CACHE_ENABLED"
	envCacheTTL        = "CACHE_TTL"
	envSeasonWorkers   = "SEASON_WORKERS"
	envCurrentSeason   = "CURRENT_SEASON"
	envSchedulerOn     = "ENABLE_SCHEDULER"
	envRefreshCron     = "REFRESH_CRON"
	envMetricsEnabled  = "METRICS_ENABLED"
	envOTLPEndpoint    = "OTLP_ENDPOINT"
	envOTLPInsecure    = "OTLP_INSECURE"
	envLogLevel        = "LOG_LEVEL"
)

func (c *Config) applyEnv() {
	c.Server.RESTPort = getEnv(envRESTPort, c.Server.RESTPort)
	c.Server.WSPort = getEnv(envWSPort, c.Server.WSPort)
	c.Database.DSN = getEnv(envDSN, c.Database.DSN)
	c.Database.MigrateOnStart = getEnvBool(envMigrate, c.Database.MigrateOnStart)
	c.Redis.URL = getEnv(envRedisURL, c.Redis.URL)

	c.Source.BaseURL = strings.TrimRight(getEnv(envBaseURL, c.Source.BaseURL), "/")
	c.Source.Fetcher = strings.ToLower(getEnv(envFetcher, c.Source.Fetcher))
	c.Source.RequestInterval = getEnv(envRequestInterval, c.Source.RequestInterval)
	c.Source.Timeout = getEnv(envSourceTimeout, c.Source.Timeout)
	c.Source.MaxAttempts = getEnvInt(envMaxAttempts, c.Source.MaxAttempts)

	c.Cache.Enabled = getEnvBool(envCacheEnabled, c.Cache.Enabled)
	c.Cache.TTL = getEnv(envCacheTTL, c.Cache.TTL)

	c.Service.SeasonWorkers = getEnvInt(envSeasonWorkers, c.Service.SeasonWorkers)
	c.Service.CurrentSeason = getEnvInt(envCurrentSeason, c.Service.CurrentSeason)

	c.Scheduler.Enabled = getEnvBool(envSchedulerOn, c.Scheduler.Enabled)
	c.Scheduler.Cron = getEnv(envRefreshCron, c.Scheduler.Cron)

	c.Telemetry.Enabled = getEnvBool(envMetricsEnabled, c.Telemetry.Enabled)
	c.Telemetry.OTLPEndpoint = getEnv(envOTLPEndpoint, c.Telemetry.OTLPEndpoint)
	c.Telemetry.OTLPInsecure = getEnvBool(envOTLPInsecure, c.Telemetry.OTLPInsecure)

	c.Log.Level = getEnv(envLogLevel, c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt keeps the default when the variable is unset or not an integer.
func getEnvInt(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if raw == "1" || strings.EqualFold(raw, "true") || strings.EqualFold(raw, "yes") {
		return true
	}
	if raw == "0" || strings.EqualFold(raw, "false") || strings.EqualFold(raw, "no") {
		return false
	}
	return defaultValue
}
