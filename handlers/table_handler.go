package handlers

import (
	"net/http"

	"github.com/liga-hub/tabellen-service/services"
)

type TableHandler struct {
	calcService services.CalculationService
}

func NewTableHandler(calcService services.CalculationService) *TableHandler {
	return &TableHandler{calcService: calcService}
}

// GetTable returns the persisted table for one (league, season) scope,
// ordered by rank. A scope without rows yields an empty list, not 404.
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlParamInt(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.calcService.GetTable(r.Context(), leagueID, seasonID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"league_id": leagueID,
		"season_id": seasonID,
		"table":     entries,
	}, nil)
}
