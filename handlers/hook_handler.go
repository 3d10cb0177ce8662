package handlers

import (
	"errors"
	"net/http"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/services"
)

// HookHandler receives the host system's match lifecycle notifications.
// Responses are always 202: trigger processing never fails the write that
// raised the event.
type HookHandler struct {
	lifecycle services.LifecycleService
}

func NewHookHandler(lifecycle services.LifecycleService) *HookHandler {
	return &HookHandler{lifecycle: lifecycle}
}

type matchUpdatedRequest struct {
	Before *models.Match `json:"before"`
	After  *models.Match `json:"after"`
}

func (h *HookHandler) MatchCreated(w http.ResponseWriter, r *http.Request) {
	var match models.Match
	if err := readJSON(w, r, &match); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.lifecycle.OnMatchCreated(r.Context(), &match)
	writeJSON(w, http.StatusAccepted, jsonResponse{"accepted": true}, nil)
}

func (h *HookHandler) MatchUpdated(w http.ResponseWriter, r *http.Request) {
	var req matchUpdatedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Before == nil || req.After == nil {
		badRequestResponse(w, r, errors.New("both before and after match states are required"))
		return
	}

	h.lifecycle.OnMatchUpdated(r.Context(), req.Before, req.After)
	writeJSON(w, http.StatusAccepted, jsonResponse{"accepted": true}, nil)
}

func (h *HookHandler) MatchDeleted(w http.ResponseWriter, r *http.Request) {
	var match models.Match
	if err := readJSON(w, r, &match); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.lifecycle.OnMatchDeleted(r.Context(), &match)
	writeJSON(w, http.StatusAccepted, jsonResponse{"accepted": true}, nil)
}
