// Package sink contains the consumers of processed frames: the video file
// writer and the preview displays.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// Writer appends frames to a persistent stream in call order.
type Writer interface {
	// Write appends one frame.
	Write(frame gocv.Mat) error

	// Frames returns the number of frames written so far.
	Frames() int

	// Close flushes and finalizes the output. Safe to call more than once.
	io.Closer
}

// WriterConfig describes an output video file.
type WriterConfig struct {
	Path   string
	Codec  string // four-character code, e.g. "XVID"
	FPS    float64
	Width  int
	Height int
}

// Validate checks the config without touching the filesystem.
func (c WriterConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", ErrPathUnwritable)
	}
	if !validFourCC(c.Codec) {
		return fmt.Errorf("%w: %q is not a four-character code", ErrUnsupportedCodec, c.Codec)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("sink: frame rate must be positive, got %v", c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("sink: invalid frame size %dx%d", c.Width, c.Height)
	}
	return nil
}

func validFourCC(codec string) bool {
	if len(codec) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if codec[i] < 0x20 || codec[i] > 0x7e {
			return false
		}
	}
	return true
}

// OpenFunc opens a Writer. The pipeline takes one so tests can swap the
// OpenCV writer for a recording one.
type OpenFunc func(cfg WriterConfig) (Writer, error)

// VideoFile writes frames to a container through OpenCV's VideoWriter.
type VideoFile struct {
	cfg WriterConfig

	mu     sync.Mutex
	vw     *gocv.VideoWriter
	frames int
	closed bool
}

// OpenVideoFile creates the output file and opens an encoder for it.
// Failing to create the file is ErrPathUnwritable. Once the file can be
// created, an encoder that will not open is ErrUnsupportedCodec.
func OpenVideoFile(cfg WriterConfig) (Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	created, err := checkWritable(cfg.Path)
	if err != nil {
		return nil, err
	}

	vw, err := gocv.VideoWriterFile(cfg.Path, cfg.Codec, cfg.FPS, cfg.Width, cfg.Height, true)
	if err == nil && !vw.IsOpened() {
		vw.Close()
		err = fmt.Errorf("no encoder for %s in %s", cfg.Codec, filepath.Ext(cfg.Path))
	}
	if err != nil {
		if created {
			os.Remove(cfg.Path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedCodec, cfg.Codec, err)
	}

	return &VideoFile{cfg: cfg, vw: vw}, nil
}

// checkWritable makes sure the output file can be created or truncated.
// It reports whether the file did not exist before.
func checkWritable(path string) (bool, error) {
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPathUnwritable, err)
	}
	if !fi.IsDir() {
		return false, fmt.Errorf("%w: %s is not a directory", ErrPathUnwritable, dir)
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPathUnwritable, err)
	}
	f.Close()
	return created, nil
}

// Write appends frame to the file. The frame must match the configured size.
func (v *VideoFile) Write(frame gocv.Mat) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if frame.Cols() != v.cfg.Width || frame.Rows() != v.cfg.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize,
			frame.Cols(), frame.Rows(), v.cfg.Width, v.cfg.Height)
	}
	if err := v.vw.Write(frame); err != nil {
		return fmt.Errorf("sink: write frame %d: %w", v.frames, err)
	}
	v.frames++
	return nil
}

// Frames returns the number of frames written.
func (v *VideoFile) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// Config returns the configuration the file was opened with.
func (v *VideoFile) Config() WriterConfig {
	return v.cfg
}

// Close finalizes the container.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	return v.vw.Close()
}
