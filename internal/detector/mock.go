package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/vaultjudge/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a configured sequence of landmark sets, one per Detect call.
// Once the sequence is exhausted the last entry repeats.
type MockDetector struct {
	mu       sync.Mutex
	sequence []*pose.LandmarkSet
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks makes every Detect call return lm. A nil lm means no person.
func (m *MockDetector) SetLandmarks(lm *pose.LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = []*pose.LandmarkSet{lm}
}

// SetSequence sets the landmark sets returned by successive Detect calls.
func (m *MockDetector) SetSequence(seq ...*pose.LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next configured landmark set or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return nil, nil
	}
	if i >= len(m.sequence) {
		i = len(m.sequence) - 1
	}
	return m.sequence[i], nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
