package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/athena/internal/backfill"
	"github.com/fortuna/athena/internal/ingest"
	"github.com/fortuna/athena/internal/logging"
	"github.com/fortuna/athena/internal/service"
	"github.com/fortuna/athena/internal/stats"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	efficiency Efficiency
	checks     map[string]HealthChecker
	version    string
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		efficiency: deps.Efficiency,
		checks:     deps.Checks,
		version:    deps.Version,
	}
}

// HealthCheck handles health check requests. Any failing dependency turns
// the response into a 503.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, checker := range h.checks {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "athena",
		"version": h.version,
		"checks":  checks,
	})
}

// GetEfficiency handles GET /api/v1/efficiency
func (h *Handler) GetEfficiency(w http.ResponseWriter, r *http.Request) {
	q, err := service.ParseQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	result, err := h.efficiency.Run(r.Context(), q, nil)
	if err != nil {
		respondServiceError(w, r, "Failed to compute efficiency table", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLeague handles GET /api/v1/league/{year}
func (h *Handler) GetLeague(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	seasonType, err := stats.ParseSeasonType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season type", err)
		return
	}

	summary, err := h.efficiency.League(r.Context(), stats.SeasonKey{Year: year, Type: seasonType})
	if err != nil {
		respondServiceError(w, r, "Failed to fetch league averages", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetGlossary handles GET /api/v1/glossary
func (h *Handler) GetGlossary(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"terms":        service.Glossary(),
		"sort_columns": service.SortColumns(),
	})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidQuery), errors.Is(err, stats.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, stats.ErrLeagueAggregateUnavailable), errors.Is(err, ingest.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrRateLimited), errors.Is(err, backfill.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(logging.FromContext(r.Context(), nil), message, err)
	}
	respondError(w, status, message, err)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}
