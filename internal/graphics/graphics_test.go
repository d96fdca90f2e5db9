package graphics

import "testing"

func TestNullSinkOpensLazilyOnFirstDraw(t *testing.T) {
	s := NewNullSink()
	if s.opened {
		t.Fatal("expected a fresh sink to start unopened")
	}
	s.Line(0, 0, 1, 1)
	if !s.opened {
		t.Error("expected Line to open the sink")
	}
}

func TestNullSinkStringAlsoOpens(t *testing.T) {
	s := NewNullSink()
	s.String("hello", 0, 0)
	if !s.opened {
		t.Error("expected String to open the sink")
	}
}

func TestNullSinkCloseIsIdempotentWhenNeverOpened(t *testing.T) {
	s := NewNullSink()
	s.Close()
	if s.opened {
		t.Error("Close on an unopened sink should leave it unopened")
	}
}

func TestNullSinkCloseResetsOpenedFlag(t *testing.T) {
	s := NewNullSink()
	s.Line(0, 0, 1, 1)
	s.Close()
	if s.opened {
		t.Error("expected Close to clear the opened flag")
	}
}

func TestNullSinkImplementsSink(t *testing.T) {
	var _ Sink = (*NullSink)(nil)
}
