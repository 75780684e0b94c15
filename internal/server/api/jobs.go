package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/report"
	"github.com/ayusman/vaultjudge/internal/store"
	"github.com/ayusman/vaultjudge/internal/vault"
)

// JobHandler serves analysis jobs, their frames and charts.
type JobHandler struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewJobHandler creates a new JobHandler with the given store.
func NewJobHandler(s *store.Store, logger zerolog.Logger) *JobHandler {
	return &JobHandler{store: s, logger: logger}
}

// ServeHTTP routes the read-only job endpoints:
//
//	/api/jobs/{id}
//	/api/jobs/{id}/frames
//	/api/jobs/{id}/stats
//	/api/jobs/{id}/timeline.png
//	/api/jobs/{id}/timeline.html
func (h *JobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	job, err := h.store.Jobs().GetByID(parts[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, toJobResponse(job))
		return
	}

	switch parts[1] {
	case "frames", "stats", "timeline.png", "timeline.html":
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	frames, err := h.store.Frames().ListByJob(job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job", job.ID).Msg("list frames")
		writeError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}

	switch parts[1] {
	case "frames":
		if frames == nil {
			frames = []store.FrameResult{}
		}
		writeJSON(w, http.StatusOK, listFramesResponse{Frames: frames})
	case "stats":
		writeJSON(w, http.StatusOK, report.Summarize(samples(frames)))
	case "timeline.png":
		h.timelinePNG(w, job, frames)
	case "timeline.html":
		h.timelineHTML(w, job, frames)
	}
}

type jobResponse struct {
	ID             string `json:"id"`
	AthleteID      string `json:"athlete_id"`
	VideoID        string `json:"video_id"`
	Status         string `json:"status"`
	Frames         int    `json:"frames"`
	DetectedFrames int    `json:"detected_frames"`
	FinalPhase     string `json:"final_phase"`
	Error          string `json:"error,omitempty"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
}

type listJobsResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

type listFramesResponse struct {
	Frames []store.FrameResult `json:"frames"`
}

func toJobResponse(j *store.Job) jobResponse {
	resp := jobResponse{
		ID:             j.ID,
		AthleteID:      j.AthleteID,
		VideoID:        j.VideoID,
		Status:         string(j.Status),
		Frames:         j.Frames,
		DetectedFrames: j.DetectedFrames,
		FinalPhase:     vault.Phase(j.FinalPhase).String(),
		Error:          j.Error,
		StartedAt:      formatTime(j.StartedAt),
	}
	if j.FinishedAt != nil {
		resp.FinishedAt = formatTime(*j.FinishedAt)
	}
	return resp
}

// samples converts stored frames into report samples.
func samples(frames []store.FrameResult) []report.Sample {
	out := make([]report.Sample, len(frames))
	for i, f := range frames {
		var total float64
		for _, v := range f.Deductions {
			total += v
		}
		out[i] = report.Sample{Frame: f.FrameIndex, Phase: f.Phase, Deduction: total, Detected: f.Detected}
	}
	return out
}

func (h *JobHandler) timelinePNG(w http.ResponseWriter, job *store.Job, frames []store.FrameResult) {
	data, err := report.Timeline(samples(frames))
	if err != nil {
		h.chartError(w, job, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (h *JobHandler) timelineHTML(w http.ResponseWriter, job *store.Job, frames []store.FrameResult) {
	data, err := report.TimelineHTML("Job "+job.ID, samples(frames))
	if err != nil {
		h.chartError(w, job, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (h *JobHandler) chartError(w http.ResponseWriter, job *store.Job, err error) {
	if errors.Is(err, report.ErrNoSamples) {
		writeError(w, http.StatusNotFound, "Job has no frames")
		return
	}
	h.logger.Error().Err(err).Str("job", job.ID).Msg("render timeline")
	writeError(w, http.StatusInternalServerError, "Failed to render timeline")
}
