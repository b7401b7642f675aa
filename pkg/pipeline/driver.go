package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-huemask/pkg/capture"
	"github.com/teslashibe/go-huemask/pkg/colorfilter"
	"github.com/teslashibe/go-huemask/pkg/sink"
)

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("pipeline: driver already ran")

// Driver owns the capture source, the writer and the displays for the
// lifetime of one run and releases all of them when Run returns.
type Driver struct {
	cfg     Config
	src     capture.Source
	display sink.Display
	quit    sink.QuitPoller
	open    sink.OpenFunc
	observe func(Stats)
	ready   func(Stats)
	logger  *slog.Logger

	mu    sync.Mutex
	stats Stats
	ran   bool

	displayFailed bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithDisplay sets the preview display. Without one frames are not shown.
func WithDisplay(d sink.Display) Option {
	return func(dr *Driver) { dr.display = d }
}

// WithQuit sets the quit poller checked once per iteration.
func WithQuit(q sink.QuitPoller) Option {
	return func(dr *Driver) { dr.quit = q }
}

// WithWriterOpener replaces the OpenCV file writer.
func WithWriterOpener(open sink.OpenFunc) Option {
	return func(dr *Driver) { dr.open = open }
}

// WithObserver registers a callback invoked after every written frame.
func WithObserver(fn func(Stats)) Option {
	return func(dr *Driver) { dr.observe = fn }
}

// WithReady registers a callback invoked once the writer is open, before
// the first frame is read.
func WithReady(fn func(Stats)) Option {
	return func(dr *Driver) { dr.ready = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(dr *Driver) { dr.logger = l }
}

// New creates a Driver. The driver takes ownership of src and of the
// display passed with WithDisplay.
func New(cfg Config, src capture.Source, opts ...Option) (*Driver, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: invalid config: %v", errs)
	}
	if src == nil {
		return nil, errors.New("pipeline: capture source is required")
	}

	d := &Driver{
		cfg:  cfg,
		src:  src,
		open: sink.OpenVideoFile,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.stats = Stats{
		RunID:      uuid.NewString(),
		Source:     src.Name(),
		OutputPath: cfg.OutputPath,
	}
	return d, nil
}

// Snapshot returns a copy of the current statistics. Safe to call from
// any goroutine while Run is in progress.
func (d *Driver) Snapshot() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Driver) update(fn func(*Stats)) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.stats)
	return d.stats
}

// Run opens the writer and processes frames until the source ends, the
// quit poller fires or ctx is canceled. Ending the stream, quitting and
// cancellation are normal stops and return a nil error. The source, the
// writer and the display are closed exactly once before Run returns.
func (d *Driver) Run(ctx context.Context) (stats Stats, err error) {
	d.mu.Lock()
	if d.ran {
		d.mu.Unlock()
		return d.Snapshot(), ErrAlreadyRun
	}
	d.ran = true
	d.mu.Unlock()

	defer func() {
		if cerr := d.src.Close(); cerr != nil {
			d.logger.Warn("closing capture source", "error", cerr)
		}
		if d.display != nil {
			if cerr := d.display.Close(); cerr != nil {
				d.logger.Debug("closing display", "error", cerr)
			}
		}
		stats = d.update(func(s *Stats) {
			s.Running = false
			s.Stopped = time.Now()
		})
		d.logger.Info("pipeline stopped",
			"run_id", stats.RunID,
			"reason", stats.StopReason,
			"frames_read", stats.FramesRead,
			"frames_written", stats.FramesWritten,
			"display_errors", stats.DisplayErrors,
			"elapsed", stats.Elapsed().Round(time.Millisecond),
		)
	}()

	props := d.src.Properties()
	fps, fellBack := props.FrameRate(d.cfg.FallbackFPS)
	if fellBack {
		d.logger.Warn("could not get capture frame rate, using default", "fps", fps)
	}

	d.update(func(s *Stats) {
		s.Width, s.Height = props.Width, props.Height
		s.FPS, s.FPSFallback = fps, fellBack
	})

	w, err := d.open(sink.WriterConfig{
		Path:   d.cfg.OutputPath,
		Codec:  d.cfg.Codec,
		FPS:    fps,
		Width:  props.Width,
		Height: props.Height,
	})
	if err != nil {
		d.update(func(s *Stats) { s.StopReason = StopWriterFailed })
		return stats, fmt.Errorf("open writer: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			d.logger.Error("finalizing output", "path", d.cfg.OutputPath, "error", cerr)
			if err == nil {
				err = fmt.Errorf("close writer: %w", cerr)
			}
		}
	}()

	filter, err := colorfilter.New(d.cfg.Range)
	if err != nil {
		d.update(func(s *Stats) { s.StopReason = StopFilterFailed })
		return stats, err
	}
	defer filter.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	masked := gocv.NewMat()
	defer masked.Close()

	snap := d.update(func(s *Stats) {
		s.Running = true
		s.Started = time.Now()
	})
	d.logger.Info("pipeline started",
		"source", d.src.Name(),
		"width", props.Width,
		"height", props.Height,
		"fps", fps,
		"output", d.cfg.OutputPath,
		"codec", d.cfg.Codec,
		"range", d.cfg.Range.String(),
	)
	if d.ready != nil {
		d.ready(snap)
	}

	reason, err := d.loop(ctx, filter, w, &frame, &masked)
	d.update(func(s *Stats) { s.StopReason = reason })
	return stats, err
}

// loop runs iterations until a stop condition and returns why it stopped.
func (d *Driver) loop(ctx context.Context, filter *colorfilter.Filter, w sink.Writer, frame, masked *gocv.Mat) (StopReason, error) {
	for {
		if err := d.src.Read(frame); err != nil {
			if !errors.Is(err, capture.ErrEndOfStream) {
				d.logger.Debug("capture read failed", "error", err)
			}
			d.logger.Info("stream ended or failed to read frame")
			return StopEndOfStream, nil
		}
		d.update(func(s *Stats) { s.FramesRead++ })

		if err := filter.Process(*frame, masked); err != nil {
			return StopFilterFailed, fmt.Errorf("filter frame: %w", err)
		}

		d.show(d.cfg.OriginalLabel, *frame)
		d.show(d.cfg.MaskedLabel, *masked)

		if err := w.Write(*masked); err != nil {
			return StopWriterFailed, fmt.Errorf("write frame: %w", err)
		}
		snap := d.update(func(s *Stats) { s.FramesWritten++ })
		if d.observe != nil {
			d.observe(snap)
		}

		if d.quit != nil && d.quit.QuitRequested() {
			return StopQuit, nil
		}
		if ctx.Err() != nil {
			return StopCanceled, nil
		}
	}
}

// show renders on the display and swallows failures. The first failure is
// a warning, later ones only show up at debug level.
func (d *Driver) show(label string, frame gocv.Mat) {
	if d.display == nil {
		return
	}
	err := d.display.Show(label, frame)
	if err == nil {
		return
	}

	d.update(func(s *Stats) { s.DisplayErrors++ })
	if !d.displayFailed {
		d.displayFailed = true
		d.logger.Warn("display failed, continuing without preview", "label", label, "error", err)
		return
	}
	d.logger.Debug("display failed", "label", label, "error", err)
}
