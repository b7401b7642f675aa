// huemask - live HSV color mask recorder
//
// Captures frames from a webcam, keeps only the pixels inside a fixed HSV
// range, shows the original and masked feeds and records the masked feed
// to a video file. Press 'q' in a preview window (or Ctrl+C) to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/teslashibe/go-huemask/internal/config"
	"github.com/teslashibe/go-huemask/internal/log"
	"github.com/teslashibe/go-huemask/pkg/capture"
	"github.com/teslashibe/go-huemask/pkg/colorfilter"
	"github.com/teslashibe/go-huemask/pkg/pipeline"
	"github.com/teslashibe/go-huemask/pkg/sink"
	"github.com/teslashibe/go-huemask/pkg/web"
)

// options is everything main needs, after defaults, config file, env vars
// and flags have been merged in that order.
type options struct {
	Capture  capture.Config
	Pipeline pipeline.Config
	Headless bool
	WebPort  string
	LogLevel string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	log.Init(opts.LogLevel)
	logger := log.L()

	src, err := capture.Open(opts.Capture, logger.With("component", "capture"))
	if err != nil {
		log.Error("could not open webcam", "error", err)
		return 1
	}

	var displays sink.Multi
	var quit sink.QuitPoller
	if !opts.Headless {
		if sink.HasDisplay() {
			windows := sink.NewWindows()
			displays = append(displays, windows)
			quit = windows
		} else {
			log.Warn("no graphical display detected, preview windows disabled")
		}
	}

	var preview *web.Server
	if opts.WebPort != "" {
		preview, err = web.NewServer(web.Config{
			Addr:   ":" + opts.WebPort,
			Labels: []string{opts.Pipeline.OriginalLabel, opts.Pipeline.MaskedLabel},
		}, logger.With("component", "web"))
		if err != nil {
			src.Close()
			log.Error("could not create preview server", "error", err)
			return 1
		}
		preview.StartAsync()
		displays = append(displays, preview)
	}

	driverOpts := []pipeline.Option{
		pipeline.WithLogger(logger.With("component", "pipeline")),
		pipeline.WithReady(func(pipeline.Stats) {
			daemon.SdNotify(false, daemon.SdNotifyReady)
		}),
	}
	if preview != nil {
		driverOpts = append(driverOpts, pipeline.WithObserver(func(st pipeline.Stats) {
			preview.PublishStatus(st)
		}))
	}
	if len(displays) > 0 {
		driverOpts = append(driverOpts, pipeline.WithDisplay(displays))
	}
	if quit != nil {
		driverOpts = append(driverOpts, pipeline.WithQuit(quit))
	}

	driver, err := pipeline.New(opts.Pipeline, src, driverOpts...)
	if err != nil {
		src.Close()
		displays.Close()
		log.Error("invalid pipeline configuration", "error", err)
		return 1
	}
	if preview != nil {
		preview.SetStatus(func() any { return driver.Snapshot() })
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("🎥 Starting webcam feed... Press 'q' to quit.")

	stats, err := driver.Run(ctx)
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	if err != nil {
		log.Error("pipeline failed", "error", err, "frames_written", stats.FramesWritten)
		return 1
	}

	fmt.Printf("👋 Saved %d frames to %s\n", stats.FramesWritten, opts.Pipeline.OutputPath)
	return 0
}

// parseFlags builds the options from defaults, an optional YAML file,
// environment variables and command line flags.
func parseFlags() (options, error) {
	opts := options{
		Capture:  capture.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		LogLevel: config.DefaultLogLevel,
	}

	configPath := flag.String("config", "", "YAML config file")
	backend := flag.String("backend", "", "Capture backend: opencv, v4l2, mock")
	device := flag.Int("device", config.DefaultDevice, "Camera index")
	devicePath := flag.String("device-path", "", "V4L2 device node (v4l2 backend)")
	output := flag.String("output", "", "Output video file")
	headless := flag.Bool("headless", false, "Disable preview windows")
	webPort := flag.String("web-port", "", "Serve a browser preview on this port")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *configPath != "" {
		f, err := config.LoadFile(*configPath)
		if err != nil {
			return opts, err
		}
		if err := applyFile(&opts, f); err != nil {
			return opts, err
		}
	}

	// Environment variables
	opts.Capture.Backend = capture.Backend(config.Backend(string(opts.Capture.Backend)))
	opts.Capture.Device = config.Device(opts.Capture.Device)
	opts.Pipeline.OutputPath = config.OutputPath(opts.Pipeline.OutputPath)
	opts.WebPort = config.WebPort(opts.WebPort)
	opts.LogLevel = config.LogLevel(opts.LogLevel)

	if set["backend"] {
		opts.Capture.Backend = capture.Backend(*backend)
	}
	if set["device"] {
		opts.Capture.Device = *device
	}
	if set["device-path"] {
		opts.Capture.DevicePath = *devicePath
	}
	if set["output"] {
		opts.Pipeline.OutputPath = *output
	}
	if set["headless"] {
		opts.Headless = *headless
	}
	if set["web-port"] {
		opts.WebPort = *webPort
	}
	if set["log-level"] {
		opts.LogLevel = *logLevel
	}

	if err := opts.Capture.Validate(); err != nil {
		return opts, err
	}
	if errs := opts.Pipeline.Validate(); len(errs) > 0 {
		return opts, fmt.Errorf("%v", errs)
	}
	return opts, nil
}

// applyFile copies the values set in f over opts.
func applyFile(opts *options, f config.File) error {
	if f.Backend != "" {
		opts.Capture.Backend = capture.Backend(f.Backend)
	}
	if f.Device != nil {
		opts.Capture.Device = *f.Device
	}
	if f.DevicePath != "" {
		opts.Capture.DevicePath = f.DevicePath
	}
	if f.Output != "" {
		opts.Pipeline.OutputPath = f.Output
	}
	if f.Codec != "" {
		opts.Pipeline.Codec = f.Codec
	}
	if f.FallbackFPS > 0 {
		opts.Pipeline.FallbackFPS = f.FallbackFPS
	}
	if f.Headless {
		opts.Headless = true
	}
	if f.WebPort != "" {
		opts.WebPort = f.WebPort
	}
	if f.LogLevel != "" {
		opts.LogLevel = f.LogLevel
	}
	if f.Range != nil {
		r, err := colorfilter.NewRange(f.Range.Lower, f.Range.Upper)
		if err != nil {
			return err
		}
		opts.Pipeline.Range = r
	}
	return nil
}
