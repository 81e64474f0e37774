package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fortuna/athena/internal/backfill"
)

// BackfillHandler proxies API calls to the backfill service.
type BackfillHandler struct {
	service Backfill
}

// NewBackfillHandler wires the REST layer to the backfill service.
func NewBackfillHandler(service Backfill) *BackfillHandler {
	return &BackfillHandler{service: service}
}

// HandleBackfillRequest handles POST /api/v1/backfill
func (h *BackfillHandler) HandleBackfillRequest(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Backfill requires a database", nil)
		return
	}

	var req backfill.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.service.Enqueue(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, backfill.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, "Failed to enqueue backfill job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

// HandleBackfillStatus handles GET /api/v1/backfill/status
func (h *BackfillHandler) HandleBackfillStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Backfill requires a database", nil)
		return
	}

	summary, err := h.service.GetStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	respondJSON(w, http.StatusOK, buildStatusPayload(summary))
}

func buildStatusPayload(summary *backfill.StatusSummary) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "idle",
		"message": "No active jobs",
		"queued":  emptyIfNil(summary.Queued),
		"history": emptyIfNil(summary.History),
	}

	if summary.ActiveJob != nil {
		response["status"] = summary.ActiveJob.Status
		response["message"] = summary.ActiveJob.StatusMessage
		response["active_job"] = summary.ActiveJob
	}

	return response
}

func emptyIfNil(jobs []*backfill.Job) []*backfill.Job {
	if jobs == nil {
		return []*backfill.Job{}
	}
	return jobs
}
