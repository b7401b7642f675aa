//go:build linux

package capture

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-huemask/internal/log"
)

func TestOpen_V4L2MissingDevice(t *testing.T) {
	src, err := Open(Config{Backend: BackendV4L2, DevicePath: "/dev/video-huemask-missing"}, log.Discard())
	if err == nil {
		src.Close()
		t.Fatal("expected error for missing device node")
	}
	if src != nil {
		t.Errorf("expected nil source, got %T", src)
	}
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("got %v, want ErrDeviceUnavailable", err)
	}
}

func TestLargestFrameSize(t *testing.T) {
	if w, h := largestFrameSize(nil); w != 640 || h != 480 {
		t.Errorf("no sizes: got %dx%d, want 640x480", w, h)
	}
}
