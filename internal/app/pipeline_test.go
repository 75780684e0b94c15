package app

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/vaultjudge/internal/capture"
	"github.com/ayusman/vaultjudge/internal/detector"
	"github.com/ayusman/vaultjudge/internal/pose"
	"github.com/ayusman/vaultjudge/internal/vault"
)

// newFrames returns n blank 640x480 frames, closed when the test ends.
func newFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
		t.Cleanup(func() { m.Close() })
	}
	return frames
}

func newTestPipeline(d detector.Detector) *Pipeline {
	return NewPipeline(PipelineConfig{Flip: true, ResizeHeight: 640, Logger: zerolog.Nop()}, d)
}

func TestPipelineRun_FullVault(t *testing.T) {
	d := detector.NewMockDetector()
	d.SetSequence(detector.VaultSequence()...)

	src := capture.NewMockSource(newFrames(t, 5), 30)
	sink := capture.NewMockSink()
	defer sink.Close()

	var results []FrameResult
	summary, err := newTestPipeline(d).Run(context.Background(), src, sink, func(fr FrameResult) {
		results = append(results, fr)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var labels []string
	var states []int
	for _, fr := range results {
		labels = append(labels, fr.Result.Label)
		states = append(states, fr.Result.State)
	}
	wantLabels := []string{"Jump", "1st Flight", "Repulsion", "2nd Flight", "Complete"}
	if diff := cmp.Diff(wantLabels, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 4, 3, 4, 5}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	if summary.Frames != 5 || summary.DetectedFrames != 5 {
		t.Errorf("summary frames = %d/%d, want 5/5", summary.DetectedFrames, summary.Frames)
	}
	if summary.FinalPhase != vault.Complete {
		t.Errorf("FinalPhase = %v, want complete", summary.FinalPhase)
	}
	wantFirst := map[vault.Phase]int{vault.Jump: 0, vault.FirstFlight: 1, vault.Repulsion: 2, vault.SecondFlight: 3, vault.Complete: 4}
	if diff := cmp.Diff(wantFirst, summary.FirstFrame); diff != "" {
		t.Errorf("FirstFrame mismatch (-want +got):\n%s", diff)
	}
	if _, ok := summary.MaxDeductions[vault.BentKnees]; !ok {
		t.Error("MaxDeductions should include bent knees")
	}
}

func TestPipelineRun_ResizesFrames(t *testing.T) {
	d := detector.NewMockDetector()
	src := capture.NewMockSource(newFrames(t, 3), 30)
	sink := capture.NewMockSink()
	defer sink.Close()

	if _, err := newTestPipeline(d).Run(context.Background(), src, sink, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []image.Point{{853, 640}, {853, 640}, {853, 640}}
	if diff := cmp.Diff(want, sink.Sizes()); diff != "" {
		t.Errorf("written sizes mismatch (-want +got):\n%s", diff)
	}
	if d.Calls() != 3 {
		t.Errorf("detector called %d times, want 3", d.Calls())
	}
}

func TestPipelineRun_NoPersonHoldsPhase(t *testing.T) {
	d := detector.NewMockDetector()
	d.SetSequence(detector.JumpPose(), nil, detector.FirstFlightPose())

	src := capture.NewMockSource(newFrames(t, 3), 30)
	sink := capture.NewMockSink()
	defer sink.Close()

	var results []FrameResult
	summary, err := newTestPipeline(d).Run(context.Background(), src, sink, func(fr FrameResult) {
		results = append(results, fr)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("observed %d frames, want 3", len(results))
	}
	if results[1].Detected || results[1].Phase != vault.Jump {
		t.Errorf("frame 1 = %+v, want undetected with phase held at jump", results[1])
	}
	if results[2].Result.Label != vault.LabelFirstFlight {
		t.Errorf("frame 2 label = %q, want %q", results[2].Result.Label, vault.LabelFirstFlight)
	}
	if summary.DetectedFrames != 2 {
		t.Errorf("DetectedFrames = %d, want 2", summary.DetectedFrames)
	}
	if len(sink.Sizes()) != 3 {
		t.Errorf("wrote %d frames, want 3", len(sink.Sizes()))
	}
}

func TestPipelineRun_RejectedLandmarks(t *testing.T) {
	incomplete := pose.LandmarkSet{pose.LeftShoulder: {X: 1, Y: 1}}
	d := detector.NewMockDetector()
	d.SetSequence(detector.JumpPose(), &incomplete)

	src := capture.NewMockSource(newFrames(t, 2), 30)
	sink := capture.NewMockSink()
	defer sink.Close()

	var results []FrameResult
	summary, err := newTestPipeline(d).Run(context.Background(), src, sink, func(fr FrameResult) {
		results = append(results, fr)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var dataErr *pose.DataError
	if !errors.As(results[1].Err, &dataErr) {
		t.Fatalf("frame 1 error = %v, want DataError", results[1].Err)
	}
	if results[1].Phase != vault.Jump {
		t.Errorf("phase after rejected frame = %v, want jump", results[1].Phase)
	}
	if summary.DetectedFrames != 1 || summary.Frames != 2 {
		t.Errorf("summary = %d/%d, want 1/2", summary.DetectedFrames, summary.Frames)
	}
}

func TestPipelineRun_Errors(t *testing.T) {
	t.Run("detector failure aborts", func(t *testing.T) {
		boom := errors.New("pose service died")
		d := detector.NewMockDetector()
		d.SetError(boom)

		sink := capture.NewMockSink()
		defer sink.Close()
		_, err := newTestPipeline(d).Run(context.Background(), capture.NewMockSource(newFrames(t, 2), 30), sink, nil)
		if !errors.Is(err, boom) {
			t.Errorf("Run() error = %v, want %v", err, boom)
		}
		if len(sink.Sizes()) != 0 {
			t.Error("no frame should be written after a detector failure")
		}
	})

	t.Run("sink failure aborts", func(t *testing.T) {
		full := errors.New("disk full")
		sink := capture.NewMockSink()
		defer sink.Close()
		sink.SetError(full)

		summary, err := newTestPipeline(detector.NewMockDetector()).Run(context.Background(), capture.NewMockSource(newFrames(t, 2), 30), sink, nil)
		if !errors.Is(err, full) {
			t.Errorf("Run() error = %v, want %v", err, full)
		}
		if summary.Frames != 0 {
			t.Errorf("Frames = %d, want 0", summary.Frames)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sink := capture.NewMockSink()
		defer sink.Close()
		_, err := newTestPipeline(detector.NewMockDetector()).Run(ctx, capture.NewMockSource(newFrames(t, 2), 30), sink, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	})
}

func TestNewPipeline_DefaultHeight(t *testing.T) {
	p := NewPipeline(PipelineConfig{Logger: zerolog.Nop()}, detector.NewMockDetector())
	if p.config.ResizeHeight != DefaultResizeHeight {
		t.Errorf("ResizeHeight = %d, want %d", p.config.ResizeHeight, DefaultResizeHeight)
	}
}
