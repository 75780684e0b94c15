package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/store"
)

// AthleteHandler handles HTTP requests for athlete resources.
type AthleteHandler struct {
	store  *store.Store
	videos *VideoHandler
	logger zerolog.Logger
}

// NewAthleteHandler creates a new AthleteHandler with the given store.
func NewAthleteHandler(s *store.Store, logger zerolog.Logger) *AthleteHandler {
	return &AthleteHandler{
		store:  s,
		videos: NewVideoHandler(s, logger),
		logger: logger,
	}
}

// ServeHTTP routes /api/athletes, /api/athletes/{id} and /api/athletes/{id}/videos.
func (h *AthleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/athletes"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "videos":
		h.videos.serveAthleteVideos(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type createAthleteRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type athleteResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type listAthletesResponse struct {
	Athletes []athleteResponse `json:"athletes"`
}

func toAthleteResponse(a *store.Athlete) athleteResponse {
	return athleteResponse{
		ID:        a.ID,
		Name:      a.Name,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func (h *AthleteHandler) list(w http.ResponseWriter, r *http.Request) {
	athletes, err := h.store.Athletes().List()
	if err != nil {
		h.logger.Error().Err(err).Msg("list athletes")
		writeError(w, http.StatusInternalServerError, "Failed to list athletes")
		return
	}

	response := listAthletesResponse{Athletes: make([]athleteResponse, 0, len(athletes))}
	for _, a := range athletes {
		response.Athletes = append(response.Athletes, toAthleteResponse(a))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *AthleteHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	athlete, err := h.store.Athletes().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Athlete not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get athlete")
		return
	}
	writeJSON(w, http.StatusOK, toAthleteResponse(athlete))
}

// create handles POST /api/athletes. The ID is generated unless the client supplies
// one, which lets existing athlete records keep their identifiers.
func (h *AthleteHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createAthleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if _, err := h.store.Athletes().GetByID(req.ID); err == nil {
		writeError(w, http.StatusConflict, "Athlete already exists")
		return
	}

	athlete := &store.Athlete{ID: req.ID, Name: req.Name}
	if err := h.store.Athletes().Create(athlete); err != nil {
		h.logger.Error().Err(err).Str("athlete", req.ID).Msg("create athlete")
		writeError(w, http.StatusInternalServerError, "Failed to create athlete")
		return
	}
	writeJSON(w, http.StatusCreated, toAthleteResponse(athlete))
}

func (h *AthleteHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Athletes().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Athlete not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete athlete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
