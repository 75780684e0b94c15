package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/vaultjudge/internal/capture"
	"github.com/ayusman/vaultjudge/internal/detector"
	"github.com/ayusman/vaultjudge/internal/pose"
	"github.com/ayusman/vaultjudge/internal/render"
	"github.com/ayusman/vaultjudge/internal/vault"
)

// DefaultResizeHeight is the output frame height when none is configured.
const DefaultResizeHeight = 640

// FrameResult is reported to the observer after each frame is written.
type FrameResult struct {
	Index    int
	Detected bool
	// Phase is the phase carried after this frame, also for frames without a classification.
	Phase vault.Phase
	// Result is the zero value when no pose was found or its landmarks were rejected.
	Result vault.Result
	// Err holds the landmark validation error of a rejected frame.
	Err error
}

// Observer is called once per written frame, in frame order.
type Observer func(FrameResult)

// Summary describes a finished pipeline run.
type Summary struct {
	Frames         int
	DetectedFrames int
	FinalPhase     vault.Phase
	// FirstFrame maps every reached phase to the index of the frame that reached it.
	FirstFrame    map[vault.Phase]int
	MaxDeductions map[vault.DeductionKind]float64
}

func newSummary() Summary {
	return Summary{
		FirstFrame:    make(map[vault.Phase]int),
		MaxDeductions: make(map[vault.DeductionKind]float64),
	}
}

func (s *Summary) add(fr FrameResult) {
	s.Frames++
	if !fr.Detected || fr.Err != nil {
		return
	}
	s.DetectedFrames++

	r := fr.Result
	s.FinalPhase = fr.Phase
	if r.Phase != vault.Unclassified {
		if _, ok := s.FirstFrame[r.Phase]; !ok {
			s.FirstFrame[r.Phase] = fr.Index
		}
	}
	for _, d := range r.Deductions {
		if v, ok := s.MaxDeductions[d.Kind]; !ok || d.Value > v {
			s.MaxDeductions[d.Kind] = d.Value
		}
	}
}

// PipelineConfig holds the frame preparation settings.
type PipelineConfig struct {
	Flip         bool
	ResizeHeight int
	Logger       zerolog.Logger
}

// Pipeline reads a video frame by frame, judges each frame and writes the annotated result.
type Pipeline struct {
	config   PipelineConfig
	detector detector.Detector
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline using d for landmark detection.
func NewPipeline(config PipelineConfig, d detector.Detector) *Pipeline {
	if config.ResizeHeight <= 0 {
		config.ResizeHeight = DefaultResizeHeight
	}
	return &Pipeline{
		config:   config,
		detector: d,
		logger:   config.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes src until it is exhausted, writing every frame to sink.
//
// Per frame:
// 1. flip and resize
// 2. detect landmarks; no person leaves the frame un-annotated
// 3. classify with a tracker scoped to this run
// 4. annotate, write and notify observe (which may be nil)
//
// Frames whose landmarks fail validation are written un-annotated and the phase is held.
// Detector and sink failures abort the run. The returned Summary covers the frames
// written so far, also on error.
func (p *Pipeline) Run(ctx context.Context, src capture.Source, sink capture.Sink, observe Observer) (Summary, error) {
	summary := newSummary()
	tracker := vault.NewTracker()

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		raw, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read frame %d: %w", index, err)
		}

		frame := capture.Prepare(raw, p.config.Flip, p.config.ResizeHeight)
		raw.Close()

		fr, err := p.judge(&frame, tracker, index)
		fr.Phase = tracker.Phase()
		if err == nil {
			if werr := sink.WriteFrame(&frame); werr != nil {
				err = fmt.Errorf("write frame %d: %w", index, werr)
			}
		}
		frame.Close()
		if err != nil {
			return summary, err
		}

		summary.add(fr)
		if observe != nil {
			observe(fr)
		}
	}

	p.logger.Debug().
		Int("frames", summary.Frames).
		Int("detected", summary.DetectedFrames).
		Str("phase", summary.FinalPhase.String()).
		Msg("pipeline finished")
	return summary, nil
}

// judge detects, classifies and annotates one prepared frame in place.
func (p *Pipeline) judge(frame *gocv.Mat, tracker *vault.Tracker, index int) (FrameResult, error) {
	fr := FrameResult{Index: index}

	lm, err := p.detector.Detect(frame)
	if err != nil {
		return fr, fmt.Errorf("detect frame %d: %w", index, err)
	}
	if lm == nil {
		return fr, nil
	}
	fr.Detected = true

	result, err := tracker.Observe(*lm)
	if err != nil {
		var dataErr *pose.DataError
		if !errors.As(err, &dataErr) {
			return fr, fmt.Errorf("classify frame %d: %w", index, err)
		}
		p.logger.Warn().Err(err).Int("frame", index).Msg("landmarks rejected")
		fr.Err = err
		return fr, nil
	}

	fr.Result = result
	render.Annotate(frame, *lm, result)
	return fr, nil
}
