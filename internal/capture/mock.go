package capture

import (
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing.
type MockSource struct {
	frames []*gocv.Mat
	fps    float64
	index  int
	mu     sync.Mutex
	closed bool
}

// NewMockSource returns a source that yields clones of frames, then io.EOF.
func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{frames: frames, fps: fps}
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceNotOpen
	}
	if s.index >= len(s.frames) {
		return nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) Size() image.Point {
	if len(s.frames) == 0 {
		return image.Point{}
	}
	return image.Pt(s.frames[0].Cols(), s.frames[0].Rows())
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *MockSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockSink records the frames written to it.
type MockSink struct {
	mu     sync.Mutex
	sizes  []image.Point
	last   gocv.Mat
	err    error
	closed bool
}

// NewMockSink creates a new MockSink.
func NewMockSink() *MockSink {
	return &MockSink{last: gocv.NewMat()}
}

// SetError makes subsequent writes fail with err.
func (s *MockSink) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MockSink) WriteFrame(frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if s.err != nil {
		return s.err
	}
	s.sizes = append(s.sizes, image.Pt(frame.Cols(), frame.Rows()))
	frame.CopyTo(&s.last)
	return nil
}

// Sizes returns the size of every frame written, in order.
func (s *MockSink) Sizes() []image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Point(nil), s.sizes...)
}

// LastFrame returns a clone of the most recent frame written.
func (s *MockSink) LastFrame() gocv.Mat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// Close marks the sink closed and releases the retained frame.
func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.last.Close()
}

// Closed reports whether Close has been called.
func (s *MockSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
