package sink

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultQuitKey is the key that stops the loop when a window has focus.
const DefaultQuitKey = 'q'

// Windows shows frames in OpenCV HighGUI windows, one per label. Windows
// are created on first use. It also polls the keyboard for the quit key.
type Windows struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
	first   *gocv.Window
	quitKey int
	closed  bool
}

// NewWindows creates a window display that stops on DefaultQuitKey.
func NewWindows() *Windows {
	return &Windows{
		windows: make(map[string]*gocv.Window),
		quitKey: DefaultQuitKey,
	}
}

// HasDisplay reports whether a graphical session looks available.
// HighGUI aborts the process instead of returning an error when it cannot
// reach a display, so this is checked before any window is created.
func HasDisplay() bool {
	if runtime.GOOS != "linux" && runtime.GOOS != "freebsd" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Show renders frame in the window titled label.
func (w *Windows) Show(label string, frame gocv.Mat) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if !HasDisplay() {
		return ErrNoDisplay
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink: show %q: %v", label, r)
		}
	}()

	win, ok := w.windows[label]
	if !ok {
		win = gocv.NewWindow(label)
		w.windows[label] = win
		if w.first == nil {
			w.first = win
		}
	}
	win.IMShow(frame)
	return nil
}

// QuitRequested pumps the HighGUI event loop for 1ms and reports whether
// the quit key was pressed. Without any window it always returns false.
func (w *Windows) QuitRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.first == nil || w.closed {
		return false
	}
	key := w.first.WaitKey(1)
	return key >= 0 && key&0xFF == w.quitKey
}

// Close destroys every window.
func (w *Windows) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	for label, win := range w.windows {
		win.Close()
		delete(w.windows, label)
	}
	w.first = nil
	return nil
}
