// Package web serves a browser preview of the original and masked feeds
// for machines without a desktop session.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-huemask/pkg/hub"
)

// ErrServerClosed is returned by Start and Serve after Close.
var ErrServerClosed = errors.New("web: server closed")

// Config holds preview server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8181".
	Addr string

	// Labels are the feeds the server accepts frames for.
	Labels []string

	// JPEGQuality is the encoder quality 1-100.
	// Default: 80
	JPEGQuality int
}

// Server is the preview server. It implements sink.Display: every shown
// frame is JPEG-encoded and pushed to the viewers of its label.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	feeds  map[string]*hub.Hub
	stats  *hub.Hub
	ctx    context.Context
	cancel context.CancelFunc

	statusMu sync.RWMutex
	status   func() any

	lnMu      sync.Mutex
	ln        net.Listener
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates the server and starts one broadcast hub per label.
// Nothing listens until Start or Serve is called.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("web: at least one feed label is required")
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: logger,
		feeds:  make(map[string]*hub.Hub, len(cfg.Labels)),
		stats:  hub.New("status", logger),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, label := range cfg.Labels {
		h := hub.New(label, logger)
		s.feeds[label] = h
		go h.Run(ctx)
	}
	go s.stats.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "huemask preview",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/status/stream", requireUpgrade, websocket.New(s.handleStatusWS))
	api.Get("/feeds", s.handleFeeds)

	app.Get("/ws/:label", s.requireFeedUpgrade, websocket.New(s.handleFeedWS))

	s.app = app
	return s, nil
}

// SetStatus sets the function backing /api/status.
func (s *Server) SetStatus(fn func() any) {
	s.statusMu.Lock()
	s.status = fn
	s.statusMu.Unlock()
}

// PublishStatus pushes v as JSON to the /api/status/stream viewers.
func (s *Server) PublishStatus(v any) error {
	if s.ctx.Err() != nil {
		return ErrServerClosed
	}
	if s.stats.ClientCount() == 0 {
		return nil
	}
	return s.stats.BroadcastJSON(v)
}

// Start listens on the configured address. It blocks until Close.
func (s *Server) Start() error {
	if s.isClosed() {
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("preview server listening", "addr", ln.Addr().String())
	return s.Serve(ln)
}

// Serve accepts connections on ln. It blocks until Close. After Close it
// closes ln and returns ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.lnMu.Lock()
	if s.closed {
		s.lnMu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.lnMu.Unlock()

	err := s.app.Listener(ln)
	if err != nil && s.isClosed() {
		return ErrServerClosed
	}
	return err
}

func (s *Server) isClosed() bool {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	return s.closed
}

// StartAsync starts the server in a goroutine and logs listen failures.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, ErrServerClosed) {
			s.logger.Warn("preview server stopped", "error", err)
		}
	}()
}

// Viewers returns the number of connected viewers for label.
func (s *Server) Viewers(label string) int {
	if h, ok := s.feeds[label]; ok {
		return h.ClientCount()
	}
	return 0
}

// Show encodes frame and broadcasts it to the viewers of label. Frames
// for feeds nobody watches are not encoded.
func (s *Server) Show(label string, frame gocv.Mat) error {
	h, ok := s.feeds[label]
	if !ok {
		return fmt.Errorf("web: unknown feed %q", label)
	}
	if s.ctx.Err() != nil {
		return ErrServerClosed
	}
	if h.ClientCount() == 0 {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, s.cfg.JPEGQuality})
	if err != nil {
		return fmt.Errorf("web: encode %s frame: %w", label, err)
	}
	// The native buffer is freed below; hub clients need their own copy.
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.BroadcastBinary(data)
	return nil
}

// Close stops the hubs and shuts the HTTP server down. A Start or Serve
// that has not reached its listener yet returns ErrServerClosed instead
// of serving.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		s.lnMu.Lock()
		s.closed = true
		ln := s.ln
		s.lnMu.Unlock()

		if ln != nil {
			s.closeErr = s.app.Shutdown()
			// Listener may not be registered with fiber yet.
			ln.Close()
		}
	})
	return s.closeErr
}
