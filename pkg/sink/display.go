package sink

import (
	"errors"
	"io"

	"gocv.io/x/gocv"
)

// Display renders frames on a surface identified by a label.
// Rendering is best-effort: callers log errors and carry on.
type Display interface {
	// Show renders frame under label. Implementations must not keep frame
	// after returning.
	Show(label string, frame gocv.Mat) error

	// Close tears down every surface. Safe to call more than once.
	io.Closer
}

// QuitPoller reports whether the user asked to stop.
// It is polled once per loop iteration.
type QuitPoller interface {
	QuitRequested() bool
}

// QuitFunc adapts a function to QuitPoller.
type QuitFunc func() bool

// QuitRequested calls f.
func (f QuitFunc) QuitRequested() bool { return f() }

// Multi fans frames out to several displays.
type Multi []Display

// Show renders on every display and joins their errors.
func (m Multi) Show(label string, frame gocv.Mat) error {
	var errs []error
	for _, d := range m {
		if err := d.Show(label, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every display and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Display that drops every frame.
type Discard struct{}

// Show does nothing.
func (Discard) Show(string, gocv.Mat) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }
