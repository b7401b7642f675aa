package capture

import (
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// MockSource is a synthetic capture source for testing and dry runs.
// It produces solid-color BGR frames.
type MockSource struct {
	mu    sync.Mutex
	props Properties
	color [3]uint8 // BGR
	limit int      // frames before end of stream, 0 = unbounded
	endAt int      // 1-based read that fails, 0 = never

	frame     gocv.Mat
	haveFrame bool
	ended     bool
	closed    bool

	// Stats
	reads  atomic.Int64
	frames atomic.Int64
	closes atomic.Int64
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSize sets the frame geometry.
func WithSize(width, height int) MockSourceOption {
	return func(m *MockSource) {
		m.props.Width = width
		m.props.Height = height
	}
}

// WithFPS sets the frame rate the mock reports. 0 simulates a device that
// cannot report its rate.
func WithFPS(fps float64) MockSourceOption {
	return func(m *MockSource) {
		m.props.FPS = fps
	}
}

// WithColor sets the BGR color of every frame.
func WithColor(b, g, r uint8) MockSourceOption {
	return func(m *MockSource) {
		m.color = [3]uint8{b, g, r}
	}
}

// WithLimit ends the stream after n frames.
func WithLimit(n int) MockSourceOption {
	return func(m *MockSource) {
		m.limit = n
	}
}

// WithEndAt makes the n-th Read (1-based) fail with ErrEndOfStream, as a
// camera that disconnects mid-run would.
func WithEndAt(n int) MockSourceOption {
	return func(m *MockSource) {
		m.endAt = n
	}
}

// NewMockSource creates a mock producing 640x480 blue frames at 30 FPS
// until closed, unless options say otherwise.
func NewMockSource(opts ...MockSourceOption) *MockSource {
	m := &MockSource{
		props: Properties{Width: 640, Height: 480, FPS: 30},
		color: [3]uint8{255, 0, 0},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read copies the next synthetic frame into dst.
func (m *MockSource) Read(dst *gocv.Mat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.reads.Add(1)
	if m.ended || m.closed {
		return ErrEndOfStream
	}
	if (m.endAt > 0 && int(n) >= m.endAt) || (m.limit > 0 && int(m.frames.Load()) >= m.limit) {
		m.ended = true
		return ErrEndOfStream
	}

	if !m.haveFrame {
		m.frame = gocv.NewMatWithSizeFromScalar(
			gocv.NewScalar(float64(m.color[0]), float64(m.color[1]), float64(m.color[2]), 0),
			m.props.Height, m.props.Width, gocv.MatTypeCV8UC3)
		m.haveFrame = true
	}
	m.frame.CopyTo(dst)
	m.frames.Add(1)
	return nil
}

// Properties returns the configured geometry and rate.
func (m *MockSource) Properties() Properties {
	return m.props
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return string(BackendMock)
}

// Close marks the source closed. Only the first call releases anything.
func (m *MockSource) Close() error {
	m.closes.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.haveFrame {
		m.frame.Close()
		m.haveFrame = false
	}
	return nil
}

// Reads returns the number of Read calls, including failed ones.
func (m *MockSource) Reads() int { return int(m.reads.Load()) }

// Frames returns the number of frames successfully produced.
func (m *MockSource) Frames() int { return int(m.frames.Load()) }

// Closes returns the number of times Close was called.
func (m *MockSource) Closes() int { return int(m.closes.Load()) }

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
