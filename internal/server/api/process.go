package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/app"
	"github.com/ayusman/vaultjudge/internal/storage"
	"github.com/ayusman/vaultjudge/internal/store"
)

// Processor analyses all videos of an athlete.
type Processor interface {
	ProcessAthlete(ctx context.Context, athleteID string) ([]app.VideoReport, error)
}

// ProcessHandler handles POST /process_video.
type ProcessHandler struct {
	processor Processor
	logger    zerolog.Logger
}

// NewProcessHandler creates a ProcessHandler backed by p.
func NewProcessHandler(p Processor, logger zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{processor: p, logger: logger}
}

type processResponse struct {
	Message string            `json:"message"`
	Results []app.VideoReport `json:"results"`
}

// ServeHTTP reads athlete_id from the form body and runs the analysis synchronously.
func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	athleteID := r.FormValue("athlete_id")
	if athleteID == "" {
		writeError(w, http.StatusBadRequest, "Athlete ID not provided.")
		return
	}

	logger := h.logger.With().Str("athlete", athleteID).Logger()
	results, err := h.processor.ProcessAthlete(r.Context(), athleteID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Athlete not found.")
		return
	case errors.Is(err, app.ErrPaused):
		writeError(w, http.StatusServiceUnavailable, "Analysis is paused.")
		return
	case errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, "Error downloading the video: The requested object was not found.")
		return
	default:
		logger.Error().Err(err).Msg("process athlete")
		writeError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}

	if results == nil {
		results = []app.VideoReport{}
	}
	logger.Info().Int("videos", len(results)).Msg("videos processed")
	writeJSON(w, http.StatusOK, processResponse{Message: "Videos processed successfully.", Results: results})
}
