package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/athena/internal/backfill"
	"github.com/fortuna/athena/internal/metrics"
	"github.com/fortuna/athena/internal/service"
	"github.com/fortuna/athena/internal/stats"
)

// Efficiency is the query surface the handlers need.
type Efficiency interface {
	Run(ctx context.Context, q service.Query, onSeason service.SeasonFunc) (*service.Result, error)
	League(ctx context.Context, key stats.SeasonKey) (*service.LeagueSummary, error)
}

// Backfill queues and reports backfill jobs.
type Backfill interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
	GetStatus(ctx context.Context) (*backfill.StatusSummary, error)
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies wires the REST server. Backfill may be nil when no database
// is configured; the backfill routes then answer 503.
type Dependencies struct {
	Efficiency     Efficiency
	Backfill       Backfill
	Checks         map[string]HealthChecker
	MetricsHandler http.Handler
	Logger         *slog.Logger
	Recorder       *metrics.Recorder
	Version        string
}

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler http.Handler
}

// NewServer creates a new REST API server
func NewServer(port string, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	handler := NewHandler(deps)
	backfillHandler := NewBackfillHandler(deps.Backfill)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(deps.Logger))
	router.Use(LoggingMiddleware(deps.Logger, deps.Recorder))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	if deps.MetricsHandler != nil {
		router.Handle("/metrics", deps.MetricsHandler).Methods(http.MethodGet)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/efficiency", handler.GetEfficiency).Methods(http.MethodGet)
	api.HandleFunc("/league/{year:[0-9]+}", handler.GetLeague).Methods(http.MethodGet)
	api.HandleFunc("/glossary", handler.GetGlossary).Methods(http.MethodGet)

	// Backfill operations
	api.HandleFunc("/backfill", backfillHandler.HandleBackfillRequest).Methods(http.MethodPost)
	api.HandleFunc("/backfill/status", backfillHandler.HandleBackfillStatus).Methods(http.MethodGet)

	root := CORSMiddleware(router)

	return &Server{
		port:    port,
		handler: root,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           root,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
