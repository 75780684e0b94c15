// Package capture reads and writes video frames using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when a source does not report its frame rate.
const DefaultFPS = 30.0

// ErrSourceNotOpen is returned when reading from a source that has been closed.
var ErrSourceNotOpen = errors.New("video source is not open")

// Source defines the interface for frame sources.
type Source interface {
	// ReadFrame returns the next frame, or io.EOF once the stream is exhausted.
	// The caller is responsible for closing the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	// FPS returns the frame rate of the source.
	FPS() float64
	// Size returns the frame size of the source.
	Size() image.Point
	Close() error
}

// videoSource reads frames from a video file or capture device.
type videoSource struct {
	name    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     float64
	size    image.Point
}

// OpenFile opens a video file for reading.
func OpenFile(path string) (Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return newVideoSource(path, vc)
}

func newVideoSource(name string, vc *gocv.VideoCapture) (*videoSource, error) {
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: %w", name, ErrSourceNotOpen)
	}

	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = DefaultFPS
	}

	return &videoSource{
		name:    name,
		capture: vc,
		running: true,
		fps:     fps,
		size: image.Pt(
			int(vc.Get(gocv.VideoCaptureFrameWidth)),
			int(vc.Get(gocv.VideoCaptureFrameHeight)),
		),
	}, nil
}

func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}

	return &mat, nil
}

func (s *videoSource) FPS() float64 {
	return s.fps
}

func (s *videoSource) Size() image.Point {
	return s.size
}

func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.capture.Close()
	s.running = false
	return err
}
