package web

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-huemask/pkg/hub"
)

// handleStatus returns the run statistics
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	fn := s.status
	s.statusMu.RUnlock()

	if fn == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "status not available",
		})
	}
	return c.JSON(fn())
}

// FeedInfo describes one preview feed
type FeedInfo struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Viewers int    `json:"viewers"`
}

// handleFeeds lists the available feeds
func (s *Server) handleFeeds(c *fiber.Ctx) error {
	feeds := make([]FeedInfo, 0, len(s.feeds))
	for label, h := range s.feeds {
		feeds = append(feeds, FeedInfo{Label: label, Path: "/ws/" + label, Viewers: h.ClientCount()})
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Label < feeds[j].Label })
	return c.JSON(feeds)
}

// requireFeedUpgrade rejects unknown feeds and plain HTTP requests
func (s *Server) requireFeedUpgrade(c *fiber.Ctx) error {
	if _, ok := s.feeds[c.Params("label")]; !ok {
		return fiber.ErrNotFound
	}
	return requireUpgrade(c)
}

// requireUpgrade rejects plain HTTP requests
func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// handleStatusWS streams run statistics as JSON
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.Attach(s.stats, c)
}

// handleFeedWS streams JPEG frames of one feed
func (s *Server) handleFeedWS(c *websocket.Conn) {
	h := s.feeds[c.Params("label")]
	hub.Attach(h, c)
}

// handleIndex serves a minimal viewer page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexHTML)
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>huemask</title>
<style>body{background:#111;color:#ddd;font-family:sans-serif}figure{display:inline-block;margin:8px}img{max-width:45vw;background:#000}</style>
</head>
<body>
<div id="feeds"></div>
<pre id="stats"></pre>
<script>
const sw = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/status/stream');
sw.onmessage = ev => {
  const s = JSON.parse(ev.data);
  document.getElementById('stats').textContent = 'frames ' + s.frames_written + '  fps ' + s.fps;
};
fetch('/api/feeds').then(r => r.json()).then(feeds => {
  for (const f of feeds) {
    const fig = document.createElement('figure');
    const img = document.createElement('img');
    const cap = document.createElement('figcaption');
    cap.textContent = f.label;
    fig.append(img, cap);
    document.getElementById('feeds').append(fig);
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + f.path);
    ws.binaryType = 'blob';
    ws.onmessage = ev => {
      const url = URL.createObjectURL(ev.data);
      img.onload = () => URL.revokeObjectURL(url);
      img.src = url;
    };
  }
});
</script>
</body>
</html>
`
