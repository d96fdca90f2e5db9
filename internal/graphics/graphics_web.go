package graphics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// drawMsg is one broadcast unit, adapted from the teacher's
// internal/network.WebSocketMessage shape but specialized to the two
// operations a Sink supports.
type drawMsg struct {
	Op   string  `json:"op"` // "line" or "string"
	X1   float64 `json:"x1,omitempty"`
	Y1   float64 `json:"y1,omitempty"`
	X2   float64 `json:"x2,omitempty"`
	Y2   float64 `json:"y2,omitempty"`
	Text string  `json:"text,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// WebSink broadcasts draw calls to every connected browser viewer
// over a websocket, adapted from the teacher's
// internal/network.WebSocketServer broadcast pattern
// (lock-snapshot-clients-then-write, drop clients on write error).
type WebSink struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[string]*websocket.Conn

	log     *slog.Logger
	started bool
}

// NewWebSink builds a sink that serves a canvas viewer page and a
// websocket feed at addr (e.g. "localhost:8765"). The HTTP server
// starts lazily, on the first draw call, matching
// original_source/graphics.c's graphics_init-on-first-use behavior.
func NewWebSink(addr string) *WebSink {
	return &WebSink{
		addr:    addr,
		clients: make(map[string]*websocket.Conn),
		log:     slog.Default().With("component", "graphics", "sink", "web"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *WebSink) start() {
	if s.started {
		return
	}
	s.started = true

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, viewerHTML)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", "err", err)
			return
		}
		id := uuid.NewString()
		s.mu.Lock()
		s.clients[id] = conn
		s.mu.Unlock()
		s.log.Info("viewer connected", "id", id)
		go func() {
			defer func() {
				s.mu.Lock()
				delete(s.clients, id)
				s.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	s.server = &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("graphics server stopped", "err", err)
		}
	}()
	s.log.Info("graphics viewer listening", "addr", s.addr)
}

func (s *WebSink) broadcast(m drawMsg) {
	s.start()
	payload, err := json.Marshal(m)
	if err != nil {
		s.log.Error("marshal draw message", "err", err)
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	ids := make([]string, 0, len(s.clients))
	for id, c := range s.clients {
		conns = append(conns, c)
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for i, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.mu.Lock()
			delete(s.clients, ids[i])
			s.mu.Unlock()
		}
	}
}

func (s *WebSink) Line(x1, y1, x2, y2 float64) {
	s.broadcast(drawMsg{Op: "line", X1: x1, Y1: y1, X2: x2, Y2: y2})
}

func (s *WebSink) String(text string, x, y float64) {
	s.broadcast(drawMsg{Op: "string", Text: text, X: x, Y: y})
}

func (s *WebSink) Close() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.server.Shutdown(ctx)
}

const viewerHTML = `<!doctype html>
<html><head><title>rewrite graphics</title></head>
<body>
<canvas id="c" width="800" height="800" style="border:1px solid #333"></canvas>
<script>
const canvas = document.getElementById("c");
const ctx = canvas.getContext("2d");
const scale = 100; // INCHES: pixels per unit, matching original_source/graphics.c
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const m = JSON.parse(ev.data);
  if (m.op === "line") {
    ctx.beginPath();
    ctx.moveTo(m.x1 * scale, m.y1 * scale);
    ctx.lineTo(m.x2 * scale, m.y2 * scale);
    ctx.stroke();
  } else if (m.op === "string") {
    ctx.fillText(m.text, m.x * scale, m.y * scale);
  }
};
</script>
</body></html>`
