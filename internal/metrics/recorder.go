package metrics

import (
	"sync"
	"time"
)

type sourceStats struct {
	calls           int
	errors          int
	rateLimitHits   int
	lastCallLatency time.Duration
}

type cacheStats struct {
	hits   int
	misses int
}

// Recorder captures in-memory counters and forwards them to OpenTelemetry
// instruments when Setup configured any. A nil Recorder is a no-op.
type Recorder struct {
	mu      sync.Mutex
	sources map[string]*sourceStats
	caches  map[string]*cacheStats
	seasons int
	failed  int
	otel    *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		sources: make(map[string]*sourceStats),
		caches:  make(map[string]*cacheStats),
		otel:    otel,
	}
}

// RecordFetch counts one upstream page fetch.
func (r *Recorder) RecordFetch(source string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.sourceLocked(source)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	r.otel.recordFetch(source, duration, err)
}

// RecordRateLimit counts an upstream 429.
func (r *Recorder) RecordRateLimit(source string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.sourceLocked(source).rateLimitHits++
	r.mu.Unlock()

	r.otel.recordRateLimit(source)
}

// RecordCache counts a cache lookup of the given kind ("table", "league").
func (r *Recorder) RecordCache(kind string, hit bool) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats, ok := r.caches[kind]
	if !ok {
		stats = &cacheStats{}
		r.caches[kind] = stats
	}
	if hit {
		stats.hits++
	} else {
		stats.misses++
	}
	r.mu.Unlock()

	r.otel.recordCache(kind, hit)
}

// RecordSeason counts one season aggregation.
func (r *Recorder) RecordSeason(seasonType, mode string, rows int, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.seasons++
	if err != nil {
		r.failed++
	}
	r.mu.Unlock()

	r.otel.recordSeason(seasonType, mode, rows, duration, err)
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordRefresh tracks scheduled refresh cycles.
func (r *Recorder) RecordRefresh(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.otel.recordRefresh(duration, err)
}

// Snapshot is a copy of the in-memory counters.
type Snapshot struct {
	Fetches         int
	FetchErrors     int
	RateLimitHits   int
	LastCallLatency time.Duration
	CacheHits       int
	CacheMisses     int
	Seasons         int
	SeasonErrors    int
}

// Snapshot returns the counters for one source and one cache kind.
func (r *Recorder) Snapshot(source, cacheKind string) Snapshot {
	if r == nil {
		return Snapshot{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{Seasons: r.seasons, SeasonErrors: r.failed}
	if s, ok := r.sources[source]; ok {
		snap.Fetches = s.calls
		snap.FetchErrors = s.errors
		snap.RateLimitHits = s.rateLimitHits
		snap.LastCallLatency = s.lastCallLatency
	}
	if c, ok := r.caches[cacheKind]; ok {
		snap.CacheHits = c.hits
		snap.CacheMisses = c.misses
	}
	return snap
}

func (r *Recorder) sourceLocked(source string) *sourceStats {
	stats, ok := r.sources[source]
	if !ok {
		stats = &sourceStats{}
		r.sources[source] = stats
	}
	return stats
}
