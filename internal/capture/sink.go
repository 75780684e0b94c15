package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultFourCC is the codec used for annotated output.
const DefaultFourCC = "mp4v"

// ErrSinkClosed is returned when writing to a closed sink.
var ErrSinkClosed = errors.New("video sink is closed")

// Sink receives processed frames.
type Sink interface {
	WriteFrame(frame *gocv.Mat) error
	Close() error
}

// FileSink writes frames to a video file. The writer is opened on the first frame,
// so the output always has the size of the frames actually written.
type FileSink struct {
	path   string
	fourcc string
	fps    float64

	mu     sync.Mutex
	writer *gocv.VideoWriter
	size   image.Point
	frames int
	closed bool
}

// NewFileSink returns a sink writing to path with the given codec and frame rate.
func NewFileSink(path, fourcc string, fps float64) *FileSink {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &FileSink{path: path, fourcc: fourcc, fps: fps}
}

// WriteFrame appends a frame. Every frame must have the size of the first one.
func (s *FileSink) WriteFrame(frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	size := image.Pt(frame.Cols(), frame.Rows())
	if s.writer == nil {
		w, err := gocv.VideoWriterFile(s.path, s.fourcc, s.fps, size.X, size.Y, true)
		if err != nil {
			return fmt.Errorf("open video writer %s: %w", s.path, err)
		}
		if !w.IsOpened() {
			w.Close()
			return fmt.Errorf("open video writer %s: codec %s unavailable", s.path, s.fourcc)
		}
		s.writer = w
		s.size = size
	}

	if size != s.size {
		return fmt.Errorf("frame size %v does not match output size %v", size, s.size)
	}

	if err := s.writer.Write(*frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written.
func (s *FileSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close finalizes the output file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
