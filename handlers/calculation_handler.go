package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/queue"
)

type CalculationHandler struct {
	queue *queue.Manager
}

func NewCalculationHandler(queueManager *queue.Manager) *CalculationHandler {
	return &CalculationHandler{queue: queueManager}
}

type submitCalculationRequest struct {
	LeagueID int    `json:"league_id"`
	SeasonID int    `json:"season_id"`
	Priority string `json:"priority,omitempty"`
}

// Submit enqueues a recalculation for the given (league, season) scope.
// Re-submitting an open scope upgrades the existing job's priority.
func (h *CalculationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitCalculationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.LeagueID <= 0 || req.SeasonID <= 0 {
		badRequestResponse(w, r, errors.New("league_id and season_id must be positive"))
		return
	}

	priority := models.ParseJobPriority(req.Priority)
	jobID := h.queue.Enqueue(req.LeagueID, req.SeasonID, priority)

	writeJSON(w, http.StatusAccepted, jsonResponse{
		"job_id":   jobID,
		"priority": priority.String(),
	}, nil)
}

func (h *CalculationHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{
		"status": h.queue.Status(),
		"paused": h.queue.Paused(),
	}, nil)
}

func (h *CalculationHandler) JobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		badRequestResponse(w, r, errors.New("missing jobID parameter"))
		return
	}

	job, err := h.queue.JobResult(jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			notFoundResponse(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"job_id":   job.ID,
		"status":   job.Status,
		"attempts": job.Attempts,
	}
	if job.LastError != "" {
		response["error"] = job.LastError
	}
	writeJSON(w, http.StatusOK, response, nil)
}

func (h *CalculationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.queue.Pause()
	writeJSON(w, http.StatusOK, jsonResponse{"paused": true}, nil)
}

func (h *CalculationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.queue.Resume()
	writeJSON(w, http.StatusOK, jsonResponse{"paused": false}, nil)
}
