// Package app runs vault analysis jobs: it fetches an athlete's videos from the bucket,
// judges them frame by frame and publishes the annotated copies.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/capture"
	"github.com/ayusman/vaultjudge/internal/detector"
	"github.com/ayusman/vaultjudge/internal/metrics"
	"github.com/ayusman/vaultjudge/internal/storage"
	"github.com/ayusman/vaultjudge/internal/store"
	"github.com/ayusman/vaultjudge/internal/vault"
)

// SettingEnabled is the settings key that persists the pause toggle.
const SettingEnabled = "analysis.enabled"

var (
	// ErrPaused is returned when analysis has been switched off.
	ErrPaused = errors.New("analysis is paused")
	// ErrNoFrames is returned for videos that decode to zero frames.
	ErrNoFrames = errors.New("video has no frames")
)

// SourceOpener opens a decoded video for reading.
type SourceOpener func(path string) (capture.Source, error)

// SinkOpener creates the writer for an annotated video.
type SinkOpener func(path string, fps float64) capture.Sink

// Listener is notified about job progress. Calls are made from the goroutine
// running the job and must not block.
type Listener interface {
	FrameProcessed(jobID string, fr FrameResult)
	JobFinished(report VideoReport)
}

// Config holds the collaborators and settings of the analysis service.
type Config struct {
	Store    *store.Store
	Bucket   storage.Bucket
	Detector detector.Detector
	// Metrics defaults to metrics.Nop.
	Metrics      metrics.Recorder
	WorkDir      string
	Flip         bool
	ResizeHeight int
	FourCC       string
	Logger       zerolog.Logger

	// OpenSource and OpenSink default to gocv file decoding and encoding.
	OpenSource SourceOpener
	OpenSink   SinkOpener
}

// VideoReport is the outcome of analysing one video.
type VideoReport struct {
	JobID          string             `json:"job_id"`
	AthleteID      string             `json:"athlete_id"`
	VideoID        string             `json:"video_id"`
	Number         int                `json:"video_number"`
	Status         store.JobStatus    `json:"status"`
	OutputURL      string             `json:"output_video_url,omitempty"`
	Frames         int                `json:"frames"`
	DetectedFrames int                `json:"detected_frames"`
	FinalPhase     string             `json:"final_phase"`
	Deductions     map[string]float64 `json:"deductions,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// App is the analysis service.
type App struct {
	config   Config
	store    *store.Store
	bucket   storage.Bucket
	metrics  metrics.Recorder
	pipeline *Pipeline
	logger   zerolog.Logger

	mu        sync.RWMutex
	enabled   bool
	listeners []Listener

	// jobMu serializes jobs so the detector sees one video at a time.
	jobMu sync.Mutex
}

// New creates the analysis service. The enabled flag is restored from the settings table.
func New(config Config) *App {
	if config.Metrics == nil {
		config.Metrics = metrics.Nop{}
	}
	if config.FourCC == "" {
		config.FourCC = capture.DefaultFourCC
	}
	if config.OpenSource == nil {
		config.OpenSource = capture.OpenFile
	}
	if config.OpenSink == nil {
		fourcc := config.FourCC
		config.OpenSink = func(path string, fps float64) capture.Sink {
			return capture.NewFileSink(path, fourcc, fps)
		}
	}

	logger := config.Logger.With().Str("component", "app").Logger()
	a := &App{
		config:  config,
		store:   config.Store,
		bucket:  config.Bucket,
		metrics: config.Metrics,
		pipeline: NewPipeline(PipelineConfig{
			Flip:         config.Flip,
			ResizeHeight: config.ResizeHeight,
			Logger:       config.Logger,
		}, config.Detector),
		logger:  logger,
		enabled: true,
	}
	if a.store != nil {
		a.enabled = a.store.Settings().GetBool(SettingEnabled, true)
	}
	return a
}

// AddListener registers l for job progress notifications.
func (a *App) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *App) snapshotListeners() []Listener {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Listener(nil), a.listeners...)
}

// SetEnabled switches analysis on or off and persists the choice.
func (a *App) SetEnabled(enabled bool) error {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.store == nil {
		return nil
	}
	value := "false"
	if enabled {
		value = "true"
	}
	if err := a.store.Settings().Set(SettingEnabled, value); err != nil {
		return fmt.Errorf("persist enabled flag: %w", err)
	}
	a.logger.Info().Bool("enabled", enabled).Msg("analysis toggled")
	return nil
}

// Enabled reports whether analysis requests are accepted.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// ProcessAthlete analyses every video of an athlete in upload order, numbering
// them from 1. A failing video does not stop the others: every video gets a
// report and the per-video errors are joined into the returned error.
func (a *App) ProcessAthlete(ctx context.Context, athleteID string) ([]VideoReport, error) {
	if !a.Enabled() {
		return nil, ErrPaused
	}

	if _, err := a.store.Athletes().GetByID(athleteID); err != nil {
		return nil, fmt.Errorf("athlete %s: %w", athleteID, err)
	}
	videos, err := a.store.Videos().ListByAthlete(athleteID)
	if err != nil {
		return nil, fmt.Errorf("list videos of %s: %w", athleteID, err)
	}

	reports := make([]VideoReport, 0, len(videos))
	var errs []error
	for i, v := range videos {
		report, err := a.ProcessVideo(ctx, athleteID, v, i+1)
		reports = append(reports, report)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return reports, ctxErr
			}
			a.logger.Error().Err(err).Str("athlete", athleteID).Str("video", v.ID).Msg("video analysis failed")
			errs = append(errs, fmt.Errorf("video %d: %w", i+1, err))
		}
	}
	return reports, errors.Join(errs...)
}

// ProcessVideo analyses the n-th video of an athlete:
// 1. download the object named by the video URL into the work directory
// 2. run the pipeline into a local output file
// 3. upload the output and record its public URL on the video
// 4. persist the job and its frames and record metrics
//
// The report is filled in also when an error is returned.
func (a *App) ProcessVideo(ctx context.Context, athleteID string, v *store.Video, n int) (VideoReport, error) {
	a.jobMu.Lock()
	defer a.jobMu.Unlock()

	jobID := uuid.New().String()
	logger := a.logger.With().Str("job", jobID).Str("athlete", athleteID).Str("video", v.ID).Logger()
	report := VideoReport{JobID: jobID, AthleteID: athleteID, VideoID: v.ID, Number: n, Status: store.JobRunning}

	job := &store.Job{ID: jobID, AthleteID: athleteID, VideoID: v.ID}
	if err := a.store.Jobs().Create(job); err != nil {
		report.Status = store.JobFailed
		report.Error = err.Error()
		return report, fmt.Errorf("create job: %w", err)
	}
	logger.Info().Int("number", n).Msg("job started")

	var frames []store.FrameResult
	observe := func(fr FrameResult) {
		frames = append(frames, frameRecord(fr))
		for _, l := range a.snapshotListeners() {
			l.FrameProcessed(jobID, fr)
		}
	}

	summary, outputURL, runErr := a.runJob(ctx, jobID, athleteID, v, n, observe)

	report.OutputURL = outputURL
	report.Frames = summary.Frames
	report.DetectedFrames = summary.DetectedFrames
	report.FinalPhase = summary.FinalPhase.String()
	report.Deductions = deductionMap(summary.MaxDeductions)
	report.Status = store.JobSucceeded
	if runErr != nil {
		report.Status = store.JobFailed
		report.Error = runErr.Error()
	}

	if err := a.store.Frames().CreateBatch(jobID, frames); err != nil {
		logger.Error().Err(err).Msg("failed to store frame results")
	}
	outcome := store.JobOutcome{
		Status:         report.Status,
		Frames:         summary.Frames,
		DetectedFrames: summary.DetectedFrames,
		FinalPhase:     int(summary.FinalPhase),
		Error:          report.Error,
	}
	if err := a.store.Jobs().Finish(jobID, outcome); err != nil {
		logger.Error().Err(err).Msg("failed to finish job")
	}

	a.metrics.RecordJob(ctx, metrics.JobMetrics{
		JobID:          jobID,
		AthleteID:      athleteID,
		VideoID:        v.ID,
		Status:         string(report.Status),
		FinalPhase:     report.FinalPhase,
		Frames:         summary.Frames,
		DetectedFrames: summary.DetectedFrames,
		Duration:       time.Since(job.StartedAt),
		MaxDeductions:  report.Deductions,
		Finished:       time.Now(),
	})

	for _, l := range a.snapshotListeners() {
		l.JobFinished(report)
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("job failed")
		return report, runErr
	}
	logger.Info().
		Int("frames", summary.Frames).
		Int("detected", summary.DetectedFrames).
		Str("phase", report.FinalPhase).
		Str("output", outputURL).
		Msg("job finished")
	return report, nil
}

func (a *App) runJob(ctx context.Context, jobID, athleteID string, v *store.Video, n int, observe Observer) (Summary, string, error) {
	summary := newSummary()

	name, err := storage.BlobName(v.URL)
	if err != nil {
		return summary, "", err
	}
	if err := os.MkdirAll(a.config.WorkDir, 0755); err != nil {
		return summary, "", fmt.Errorf("create work dir: %w", err)
	}

	input := filepath.Join(a.config.WorkDir, "input_"+jobID+".mp4")
	output := filepath.Join(a.config.WorkDir, "output_"+jobID+".mp4")
	defer os.Remove(input)
	defer os.Remove(output)

	if err := a.bucket.Download(ctx, storage.InputKey(name), input); err != nil {
		return summary, "", fmt.Errorf("download %s: %w", name, err)
	}

	summary, err = a.analyze(ctx, input, output, observe)
	if err != nil {
		return summary, "", err
	}

	url, err := a.bucket.Upload(ctx, output, storage.OutputKey(athleteID, n))
	if err != nil {
		return summary, "", fmt.Errorf("upload output: %w", err)
	}
	if err := a.store.Videos().SetOutputURL(v.ID, url); err != nil {
		return summary, url, fmt.Errorf("store output url: %w", err)
	}
	return summary, url, nil
}

// AnalyzeFile judges a local video file and writes the annotated copy to out.
func (a *App) AnalyzeFile(ctx context.Context, in, out string) (Summary, error) {
	a.jobMu.Lock()
	defer a.jobMu.Unlock()
	return a.analyze(ctx, in, out, nil)
}

func (a *App) analyze(ctx context.Context, in, out string, observe Observer) (Summary, error) {
	src, err := a.config.OpenSource(in)
	if err != nil {
		return newSummary(), fmt.Errorf("open %s: %w", in, err)
	}
	defer src.Close()

	sink := a.config.OpenSink(out, src.FPS())
	summary, err := a.pipeline.Run(ctx, src, sink, observe)
	if cerr := sink.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	if err != nil {
		return summary, err
	}
	if summary.Frames == 0 {
		return summary, ErrNoFrames
	}
	return summary, nil
}

// frameRecord converts a pipeline frame into its stored form.
func frameRecord(fr FrameResult) store.FrameResult {
	return store.FrameResult{
		FrameIndex: fr.Index,
		Detected:   fr.Detected && fr.Err == nil,
		Phase:      int(fr.Phase),
		State:      fr.Result.State,
		Label:      fr.Result.Label,
		Deductions: resultDeductions(fr.Result),
	}
}

func resultDeductions(r vault.Result) map[string]float64 {
	if len(r.Deductions) == 0 {
		return nil
	}
	out := make(map[string]float64, len(r.Deductions))
	for _, d := range r.Deductions {
		out[string(d.Kind)] = d.Value
	}
	return out
}

func deductionMap(m map[vault.DeductionKind]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// Close releases the detector and flushes metrics.
func (a *App) Close() error {
	a.metrics.Close()
	if a.config.Detector == nil {
		return nil
	}
	return a.config.Detector.Close()
}
