// Package graphics implements the drawing sink abstraction of
// spec.md §4.8/§9 ("Graphics primitives: abstract as a small trait
// with line and string operations and a no-op implementation for
// headless runs"). NullSink is grounded on
// original_source/bertrand/graphicsnull.c; WebSink (graphics_web.go)
// adapts the teacher's websocket broadcast pattern
// (internal/network/websocket.go, websocket_server.go) into a live
// viewer for interactive runs.
package graphics

import "log/slog"

// Sink is the graphics trait every primitive.Machine draws through.
type Sink interface {
	Line(x1, y1, x2, y2 float64)
	String(s string, x, y float64)
	Close()
}

// NullSink logs draw calls instead of rendering them, for headless
// runs (original_source/bertrand/graphicsnull.c).
type NullSink struct {
	opened bool
	log    *slog.Logger
}

// NewNullSink returns a lazily-opened headless sink.
func NewNullSink() *NullSink {
	return &NullSink{log: slog.Default().With("component", "graphics")}
}

func (s *NullSink) open() {
	if !s.opened {
		s.log.Info("null graphics device open")
		s.opened = true
	}
}

func (s *NullSink) Line(x1, y1, x2, y2 float64) {
	s.open()
	s.log.Info("draw line", "x1", x1, "y1", y1, "x2", x2, "y2", y2)
}

func (s *NullSink) String(str string, x, y float64) {
	s.open()
	s.log.Info("draw string", "text", str, "x", x, "y", y)
}

func (s *NullSink) Close() {
	if s.opened {
		s.log.Info("graphics device closed")
		s.opened = false
	}
}
