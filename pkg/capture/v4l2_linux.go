//go:build linux

package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// v4l2 fourcc for Motion-JPEG.
const pixFmtMJPEG webcam.PixelFormat = 0x47504A4D

// frameWaitSeconds is the V4L2 wait per attempt; maxFrameWait bounds how
// long Read keeps waiting on a silent device before giving up.
const (
	frameWaitSeconds = 1
	maxFrameWait     = 5 * time.Second
)

// V4L2Source reads MJPEG frames from a V4L2 device and decodes them with
// OpenCV. V4L2 does not expose a frame rate here, so Properties reports 0.
type V4L2Source struct {
	logger *slog.Logger
	cam    *webcam.Webcam
	path   string
	props  Properties

	ended     bool
	closeOnce sync.Once
	closeErr  error
}

func newV4L2Source(cfg Config, logger *slog.Logger) (Source, error) {
	path := cfg.devicePath()

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open %s: %v", path, err)
	}

	if _, ok := cam.GetSupportedFormats()[pixFmtMJPEG]; !ok {
		cam.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s does not support MJPEG", path)
	}

	w, h := uint32(cfg.Width), uint32(cfg.Height)
	if w == 0 || h == 0 {
		w, h = largestFrameSize(cam.GetSupportedFrameSizes(pixFmtMJPEG))
	}

	_, gotW, gotH, err := cam.SetImageFormat(pixFmtMJPEG, w, h)
	if err != nil {
		cam.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "set format on %s: %v", path, err)
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "start streaming on %s: %v", path, err)
	}

	logger.Debug("v4l2 device opened", "path", path, "width", gotW, "height", gotH)

	return &V4L2Source{
		logger: logger,
		cam:    cam,
		path:   path,
		props:  Properties{Width: int(gotW), Height: int(gotH)},
	}, nil
}

func largestFrameSize(sizes []webcam.FrameSize) (uint32, uint32) {
	var w, h uint32
	for _, s := range sizes {
		if s.MaxWidth*s.MaxHeight > w*h {
			w, h = s.MaxWidth, s.MaxHeight
		}
	}
	if w == 0 || h == 0 {
		return 640, 480
	}
	return w, h
}

// Read waits for the next MJPEG frame and decodes it into dst.
func (s *V4L2Source) Read(dst *gocv.Mat) error {
	if s.ended {
		return ErrEndOfStream
	}

	deadline := time.Now().Add(maxFrameWait)
	for {
		err := s.cam.WaitForFrame(frameWaitSeconds)
		if err == nil {
			break
		}
		if _, ok := err.(*webcam.Timeout); ok && time.Now().Before(deadline) {
			continue
		}
		s.logger.Debug("v4l2 wait failed", "path", s.path, "error", errors.Wrap(err, "wait for frame"))
		s.ended = true
		return ErrEndOfStream
	}

	buf, err := s.cam.ReadFrame()
	if err != nil || len(buf) == 0 {
		s.logger.Debug("v4l2 read failed", "path", s.path, "error", err)
		s.ended = true
		return ErrEndOfStream
	}

	img, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		s.logger.Debug("v4l2 frame decode failed", "path", s.path, "error", err)
		s.ended = true
		return ErrEndOfStream
	}
	defer img.Close()

	if img.Empty() {
		s.ended = true
		return ErrEndOfStream
	}

	img.CopyTo(dst)
	return nil
}

// Properties returns the negotiated frame size. FPS is always 0.
func (s *V4L2Source) Properties() Properties {
	return s.props
}

// Name returns "v4l2".
func (s *V4L2Source) Name() string {
	return string(BackendV4L2)
}

// Close stops streaming and releases the device node.
func (s *V4L2Source) Close() error {
	s.closeOnce.Do(func() {
		s.ended = true
		s.cam.StopStreaming()
		s.closeErr = s.cam.Close()
	})
	return s.closeErr
}
