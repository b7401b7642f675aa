package capture

import "fmt"

// Backend represents the capture backend type.
type Backend string

const (
	// BackendOpenCV opens a camera by index through OpenCV.
	BackendOpenCV Backend = "opencv"
	// BackendV4L2 reads MJPEG frames from a V4L2 device node (Linux only).
	BackendV4L2 Backend = "v4l2"
	// BackendMock produces synthetic frames.
	BackendMock Backend = "mock"
)

// Config holds capture configuration.
type Config struct {
	// Backend specifies which capture backend to use.
	// Default: "opencv"
	Backend Backend `yaml:"backend" json:"backend"`

	// Device is the camera index for the OpenCV backend.
	// Default: 0
	Device int `yaml:"device" json:"device"`

	// DevicePath is the device node for the V4L2 backend.
	// Default: derived from Device, e.g. "/dev/video0"
	DevicePath string `yaml:"device_path" json:"device_path"`

	// Width and Height request a capture size. 0 keeps the device default.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// Frames ends a mock stream after n frames. 0 keeps it running until
	// closed. Ignored by the camera backends.
	Frames int `yaml:"frames" json:"frames"`
}

// DefaultConfig returns a Config for the first camera through OpenCV.
func DefaultConfig() Config {
	return Config{
		Backend: BackendOpenCV,
		Device:  0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendOpenCV, BackendV4L2, BackendMock:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Device < 0 {
		return fmt.Errorf("device index must be >= 0, got %d", c.Device)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("requested size must be >= 0, got %dx%d", c.Width, c.Height)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frame limit must be >= 0, got %d", c.Frames)
	}
	return nil
}

func (c Config) devicePath() string {
	if c.DevicePath != "" {
		return c.DevicePath
	}
	return fmt.Sprintf("/dev/video%d", c.Device)
}
