package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// CameraSource reads frames through OpenCV's VideoCapture.
type CameraSource struct {
	logger *slog.Logger
	cap    *gocv.VideoCapture
	props  Properties

	ended     bool
	closeOnce sync.Once
	closeErr  error
}

func newCameraSource(cfg Config, logger *slog.Logger) (*CameraSource, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", ErrDeviceUnavailable, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: camera %d did not open", ErrDeviceUnavailable, cfg.Device)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	s := &CameraSource{
		logger: logger,
		cap:    vc,
		props: Properties{
			Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FPS:    vc.Get(gocv.VideoCaptureFPS),
		},
	}

	logger.Debug("camera opened",
		"device", cfg.Device,
		"width", s.props.Width,
		"height", s.props.Height,
		"fps", s.props.FPS,
	)
	return s, nil
}

// Read grabs the next frame from the camera.
func (s *CameraSource) Read(dst *gocv.Mat) error {
	if s.ended {
		return ErrEndOfStream
	}
	if ok := s.cap.Read(dst); !ok || dst.Empty() {
		s.ended = true
		return ErrEndOfStream
	}
	return nil
}

// Properties returns the geometry reported when the camera was opened.
func (s *CameraSource) Properties() Properties {
	return s.props
}

// Name returns "opencv".
func (s *CameraSource) Name() string {
	return string(BackendOpenCV)
}

// Close releases the camera.
func (s *CameraSource) Close() error {
	s.closeOnce.Do(func() {
		s.ended = true
		s.closeErr = s.cap.Close()
	})
	return s.closeErr
}
