// Package detector finds body pose landmarks in video frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/vaultjudge/internal/pose"
)

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most prominent
	// person, in frame pixels. Returns nil if no person is detected.
	Detect(frame *gocv.Mat) (*pose.LandmarkSet, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	ModelComplexity int

	// Python overrides the interpreter used to run the pose service.
	Python string

	// Script overrides the location of pose_service.py.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		ModelComplexity: 1,
	}
}
