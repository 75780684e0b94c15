package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/store"
)

// VideoHandler handles HTTP requests for video resources.
type VideoHandler struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewVideoHandler creates a new VideoHandler with the given store.
func NewVideoHandler(s *store.Store, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{store: s, logger: logger}
}

// ServeHTTP routes /api/videos/{id} and /api/videos/{id}/jobs.
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		writeError(w, http.StatusNotFound, "Not found")
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "jobs":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.listJobs(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// serveAthleteVideos handles /api/athletes/{id}/videos.
func (h *VideoHandler) serveAthleteVideos(w http.ResponseWriter, r *http.Request, athleteID string) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, athleteID)
	case http.MethodPost:
		h.create(w, r, athleteID)
	default:
		methodNotAllowed(w)
	}
}

type createVideoRequest struct {
	VideoURL string `json:"video_url"`
}

type videoResponse struct {
	ID             string `json:"id"`
	AthleteID      string `json:"athlete_id"`
	VideoURL       string `json:"video_url"`
	OutputVideoURL string `json:"output_video_url"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type listVideosResponse struct {
	Videos []videoResponse `json:"videos"`
}

func toVideoResponse(v *store.Video) videoResponse {
	return videoResponse{
		ID:             v.ID,
		AthleteID:      v.AthleteID,
		VideoURL:       v.URL,
		OutputVideoURL: v.OutputVideoURL,
		CreatedAt:      formatTime(v.CreatedAt),
		UpdatedAt:      formatTime(v.UpdatedAt),
	}
}

// requireAthlete writes a 404 and returns false when the athlete does not exist.
func (h *VideoHandler) requireAthlete(w http.ResponseWriter, athleteID string) bool {
	if _, err := h.store.Athletes().GetByID(athleteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Athlete not found.")
			return false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get athlete")
		return false
	}
	return true
}

func (h *VideoHandler) list(w http.ResponseWriter, r *http.Request, athleteID string) {
	if !h.requireAthlete(w, athleteID) {
		return
	}

	videos, err := h.store.Videos().ListByAthlete(athleteID)
	if err != nil {
		h.logger.Error().Err(err).Str("athlete", athleteID).Msg("list videos")
		writeError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	response := listVideosResponse{Videos: make([]videoResponse, 0, len(videos))}
	for _, v := range videos {
		response.Videos = append(response.Videos, toVideoResponse(v))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *VideoHandler) create(w http.ResponseWriter, r *http.Request, athleteID string) {
	if !h.requireAthlete(w, athleteID) {
		return
	}

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VideoURL == "" {
		writeError(w, http.StatusBadRequest, "video_url is required")
		return
	}
	if _, err := url.Parse(req.VideoURL); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video_url")
		return
	}

	video := &store.Video{ID: uuid.New().String(), AthleteID: athleteID, URL: req.VideoURL}
	if err := h.store.Videos().Create(video); err != nil {
		h.logger.Error().Err(err).Str("athlete", athleteID).Msg("create video")
		writeError(w, http.StatusInternalServerError, "Failed to create video")
		return
	}
	writeJSON(w, http.StatusCreated, toVideoResponse(video))
}

func (h *VideoHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	video, err := h.store.Videos().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get video")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(video))
}

func (h *VideoHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Videos().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete video")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VideoHandler) listJobs(w http.ResponseWriter, r *http.Request, videoID string) {
	if _, err := h.store.Videos().GetByID(videoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get video")
		return
	}

	jobs, err := h.store.Jobs().ListByVideo(videoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	response := listJobsResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for _, j := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, response)
}
