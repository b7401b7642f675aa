package sink

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// RecordingWriter implements Writer in memory for testing.
// It keeps a copy of every frame's pixel data.
type RecordingWriter struct {
	// FailAfter makes the writer fail once this many frames are stored.
	// Zero never fails.
	FailAfter int

	// Err is returned when FailAfter triggers. Defaults to a generic error.
	Err error

	mu     sync.Mutex
	cfg    WriterConfig
	frames [][]byte
	closes int
}

// NewRecordingWriter creates a RecordingWriter for cfg.
func NewRecordingWriter(cfg WriterConfig) *RecordingWriter {
	return &RecordingWriter{cfg: cfg}
}

// Opener returns an OpenFunc that validates cfg like OpenVideoFile does,
// records it and hands back w.
func (w *RecordingWriter) Opener() OpenFunc {
	return func(cfg WriterConfig) (Writer, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		w.mu.Lock()
		w.cfg = cfg
		w.mu.Unlock()
		return w, nil
	}
}

// Write stores a copy of frame.
func (w *RecordingWriter) Write(frame gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closes > 0 {
		return ErrClosed
	}
	if w.FailAfter > 0 && len(w.frames) >= w.FailAfter {
		if w.Err != nil {
			return w.Err
		}
		return errors.New("recording writer: forced failure")
	}
	if w.cfg.Width > 0 && (frame.Cols() != w.cfg.Width || frame.Rows() != w.cfg.Height) {
		return ErrFrameSize
	}
	w.frames = append(w.frames, frame.ToBytes())
	return nil
}

// Frames returns the number of stored frames.
func (w *RecordingWriter) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

// Frame returns the pixel data of the i-th stored frame.
func (w *RecordingWriter) Frame(i int) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames[i]
}

// Config returns the config the writer was opened with.
func (w *RecordingWriter) Config() WriterConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Close records the call.
func (w *RecordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

// Closes returns how many times Close was called.
func (w *RecordingWriter) Closes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closes
}

// RecordingDisplay implements Display for testing.
type RecordingDisplay struct {
	// Err, if set, is returned from every Show call after recording it.
	Err error

	mu     sync.Mutex
	shows  map[string]int
	order  []string
	closes int
}

// NewRecordingDisplay creates an empty RecordingDisplay.
func NewRecordingDisplay() *RecordingDisplay {
	return &RecordingDisplay{shows: make(map[string]int)}
}

// Show records the label.
func (d *RecordingDisplay) Show(label string, frame gocv.Mat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shows[label]++
	d.order = append(d.order, label)
	return d.Err
}

// Shows returns how many frames were shown under label.
func (d *RecordingDisplay) Shows(label string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shows[label]
}

// Order returns the labels in call order.
func (d *RecordingDisplay) Order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

// Close records the call.
func (d *RecordingDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

// Closes returns how many times Close was called.
func (d *RecordingDisplay) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}
