// Package capture provides frame sources for the color mask pipeline.
//
// This package supports multiple backends:
//   - OpenCV (gocv VideoCapture) - default, any camera OpenCV can open by index
//   - V4L2 (Linux only) - MJPEG capture straight from /dev/videoN
//   - Mock - synthetic frames for tests and dry runs
package capture

import (
	"errors"
	"io"
	"math"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when a device does not report a usable frame rate.
const DefaultFPS = 20

// Sentinel errors for capture sources.
var (
	// ErrDeviceUnavailable is returned by Open when no camera could be opened.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrEndOfStream is returned by Read once the stream has ended or the
	// device failed. It is sticky: every later Read returns it too.
	ErrEndOfStream = errors.New("capture: end of stream")
)

// Properties describes the frames a source produces.
type Properties struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"` // 0 when unknown
}

// FrameRate returns the reported rate, or fallback when the device reported
// zero, a negative number or garbage. The second result is true when the
// fallback was used.
func (p Properties) FrameRate(fallback float64) (float64, bool) {
	if p.FPS <= 0 || math.IsNaN(p.FPS) || math.IsInf(p.FPS, 0) {
		return fallback, true
	}
	return p.FPS, false
}

// Source produces BGR frames one at a time.
type Source interface {
	// Read blocks until the next frame is available and stores it in dst.
	// It returns ErrEndOfStream when there are no more frames, whatever
	// the cause.
	Read(dst *gocv.Mat) error

	// Properties returns the frame geometry and rate reported by the device.
	Properties() Properties

	// Name returns the backend name (e.g., "opencv", "v4l2", "mock").
	Name() string

	// Close releases the device. It is safe to call Close multiple times.
	io.Closer
}
