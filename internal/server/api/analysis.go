package api

import (
	"encoding/json"
	"net/http"
)

// Toggle switches analysis on and off.
type Toggle interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

// AnalysisHandler exposes the pause toggle at /api/analysis.
type AnalysisHandler struct {
	toggle Toggle
}

// NewAnalysisHandler creates an AnalysisHandler for t.
func NewAnalysisHandler(t Toggle) *AnalysisHandler {
	return &AnalysisHandler{toggle: t}
}

type analysisState struct {
	Enabled *bool `json:"enabled"`
}

func (h *AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req analysisState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.toggle.SetEnabled(*req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update analysis state")
			return
		}
	default:
		methodNotAllowed(w)
		return
	}

	enabled := h.toggle.Enabled()
	writeJSON(w, http.StatusOK, analysisState{Enabled: &enabled})
}
