package capture

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestProperties_FrameRate(t *testing.T) {
	tests := []struct {
		name         string
		fps          float64
		want         float64
		wantFallback bool
	}{
		{"reported 30", 30, 30, false},
		{"reported 29.97", 29.97, 29.97, false},
		{"zero", 0, DefaultFPS, true},
		{"negative", -1, DefaultFPS, true},
		{"nan", math.NaN(), DefaultFPS, true},
		{"inf", math.Inf(1), DefaultFPS, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, fellBack := Properties{FPS: tc.fps}.FrameRate(DefaultFPS)
			if got != tc.want || fellBack != tc.wantFallback {
				t.Errorf("FrameRate() = (%v, %v), want (%v, %v)", got, fellBack, tc.want, tc.wantFallback)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"mock", Config{Backend: BackendMock}, false},
		{"v4l2 with path", Config{Backend: BackendV4L2, DevicePath: "/dev/video2"}, false},
		{"unknown backend", Config{Backend: "gstreamer"}, true},
		{"negative device", Config{Backend: BackendOpenCV, Device: -1}, true},
		{"negative size", Config{Backend: BackendOpenCV, Width: -640}, true},
		{"negative frame limit", Config{Backend: BackendMock, Frames: -1}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfig_DevicePath(t *testing.T) {
	if got := (Config{Device: 2}).devicePath(); got != "/dev/video2" {
		t.Errorf("devicePath: got %q", got)
	}
	if got := (Config{Device: 2, DevicePath: "/dev/ir"}).devicePath(); got != "/dev/ir" {
		t.Errorf("devicePath override: got %q", got)
	}
}

func TestOpen_Mock(t *testing.T) {
	src, err := Open(Config{Backend: BackendMock}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Name() != "mock" {
		t.Errorf("Name: got %q, want mock", src.Name())
	}
}

func TestOpen_MockHonorsSizeAndLimit(t *testing.T) {
	src, err := Open(Config{Backend: BackendMock, Width: 8, Height: 6, Frames: 2}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if p := src.Properties(); p.Width != 8 || p.Height != 6 {
		t.Errorf("Properties: got %dx%d, want 8x6", p.Width, p.Height)
	}

	img := gocv.NewMat()
	defer img.Close()
	n := 0
	for src.Read(&img) == nil {
		n++
	}
	if n != 2 {
		t.Errorf("got %d frames, want 2", n)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	if _, err := Open(Config{Backend: "nope"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestMockSource_Limit(t *testing.T) {
	src := NewMockSource(WithSize(4, 4), WithLimit(3))
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()

	for i := 0; i < 3; i++ {
		if err := src.Read(&img); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if img.Cols() != 4 || img.Rows() != 4 || img.Type() != gocv.MatTypeCV8UC3 {
			t.Fatalf("unexpected frame %dx%d type %v", img.Cols(), img.Rows(), img.Type())
		}
	}

	// End of stream is sticky.
	for i := 0; i < 2; i++ {
		if err := src.Read(&img); !errors.Is(err, ErrEndOfStream) {
			t.Fatalf("read after limit: got %v, want ErrEndOfStream", err)
		}
	}
	if src.Frames() != 3 || src.Reads() != 5 {
		t.Errorf("frames=%d reads=%d, want 3 and 5", src.Frames(), src.Reads())
	}
}

func TestMockSource_EndAt(t *testing.T) {
	src := NewMockSource(WithSize(4, 4), WithEndAt(5))
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()

	n := 0
	for src.Read(&img) == nil {
		n++
	}
	if n != 4 {
		t.Errorf("got %d frames before end of stream, want 4", n)
	}
}

func TestMockSource_Color(t *testing.T) {
	src := NewMockSource(WithSize(2, 2), WithColor(1, 2, 3))
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()
	if err := src.Read(&img); err != nil {
		t.Fatal(err)
	}

	px := img.GetVecbAt(1, 1)
	if px[0] != 1 || px[1] != 2 || px[2] != 3 {
		t.Errorf("pixel: got %v, want [1 2 3]", px)
	}
}

func TestMockSource_CloseIdempotent(t *testing.T) {
	src := NewMockSource(WithSize(2, 2))
	img := gocv.NewMat()
	defer img.Close()
	src.Read(&img)

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.Closed() || src.Closes() != 2 {
		t.Errorf("closed=%v closes=%d", src.Closed(), src.Closes())
	}
	if err := src.Read(&img); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("read after close: got %v, want ErrEndOfStream", err)
	}
}
