package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-huemask/internal/config"
	"github.com/teslashibe/go-huemask/pkg/capture"
	"github.com/teslashibe/go-huemask/pkg/colorfilter"
	"github.com/teslashibe/go-huemask/pkg/pipeline"
)

func defaultOptions() options {
	return options{
		Capture:  capture.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		LogLevel: config.DefaultLogLevel,
	}
}

func TestApplyFile(t *testing.T) {
	opts := defaultOptions()
	dev := 2
	f := config.File{
		Backend:     "v4l2",
		Device:      &dev,
		Output:      "green.avi",
		Codec:       "MJPG",
		FallbackFPS: 15,
		Headless:    true,
	}
	f.Range = &config.Bounds{Lower: config.Triple{40, 70, 70}, Upper: config.Triple{80, 255, 255}}

	if err := applyFile(&opts, f); err != nil {
		t.Fatalf("applyFile: %v", err)
	}

	if opts.Capture.Backend != capture.BackendV4L2 || opts.Capture.Device != 2 {
		t.Errorf("capture not applied: %+v", opts.Capture)
	}
	if opts.Pipeline.OutputPath != "green.avi" || opts.Pipeline.Codec != "MJPG" || opts.Pipeline.FallbackFPS != 15 {
		t.Errorf("pipeline not applied: %+v", opts.Pipeline)
	}
	if !opts.Headless {
		t.Error("headless not applied")
	}
	want := colorfilter.Range{Lower: colorfilter.HSV{H: 40, S: 70, V: 70}, Upper: colorfilter.HSV{H: 80, S: 255, V: 255}}
	if opts.Pipeline.Range != want {
		t.Errorf("range: got %s, want %s", opts.Pipeline.Range, want)
	}
}

func TestApplyFile_EmptyKeepsDefaults(t *testing.T) {
	opts := defaultOptions()
	if err := applyFile(&opts, config.File{}); err != nil {
		t.Fatal(err)
	}
	if opts.Pipeline != pipeline.DefaultConfig() || opts.Capture != capture.DefaultConfig() {
		t.Errorf("empty file changed options: %+v", opts)
	}
}

func TestApplyFile_InvalidRange(t *testing.T) {
	opts := defaultOptions()
	f := config.File{}
	f.Range = &config.Bounds{Lower: config.Triple{170, 0, 0}, Upper: config.Triple{10, 255, 255}}

	if err := applyFile(&opts, f); err == nil {
		t.Error("expected error for inverted hue range")
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	tests := []struct {
		name      string
		capture   capture.Config
		outputDir func(t *testing.T) string
		want      int
		wantFile  bool
	}{
		{
			name:      "missing device",
			capture:   capture.Config{Backend: capture.BackendV4L2, DevicePath: "/dev/video-huemask-missing"},
			outputDir: func(t *testing.T) string { return t.TempDir() },
			want:      1,
		},
		{
			name:      "unwritable output",
			capture:   capture.Config{Backend: capture.BackendMock, Width: 32, Height: 24, Frames: 5},
			outputDir: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			want:      1,
		},
		{
			name:      "stream ends",
			capture:   capture.Config{Backend: capture.BackendMock, Width: 32, Height: 24, Frames: 5},
			outputDir: func(t *testing.T) string { return t.TempDir() },
			want:      0,
			wantFile:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := defaultOptions()
			opts.Capture = tc.capture
			opts.Headless = true
			opts.Pipeline.OutputPath = filepath.Join(tc.outputDir(t), "out.avi")
			// MJPG is always available in OpenCV's built-in AVI writer.
			opts.Pipeline.Codec = "MJPG"

			if got := run(opts); got != tc.want {
				t.Fatalf("run() = %d, want %d", got, tc.want)
			}

			fi, err := os.Stat(opts.Pipeline.OutputPath)
			if !tc.wantFile {
				if !errors.Is(err, os.ErrNotExist) {
					t.Errorf("output should not exist, stat: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("output missing: %v", err)
			}
			if fi.Size() == 0 {
				t.Error("output file is empty")
			}
		})
	}
}
