package lexer

import (
	"testing"

	"bertrand/internal/ops"
)

func newTestTable() *ops.Table {
	tab := ops.NewTable()
	tab.Declare(ops.CatSingle, "+", ops.Left, 50)
	tab.Declare(ops.CatDouble, "=>", ops.Right, 10)
	tab.Declare(ops.CatType, "number", ops.Name, 0)
	return tab
}

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	tab := newTestTable()
	lx := New(tab, src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("scanning %q: %v", src, err)
		}
		if tok.Type == EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestScanSymbolicPrefersLongestOperator(t *testing.T) {
	toks := scanAll(t, "a => b")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[1].Type != OPER || toks[1].Lexeme != "=>" {
		t.Errorf("got %+v, want OPER =>", toks[1])
	}
}

func TestScanNumberAndWord(t *testing.T) {
	toks := scanAll(t, "count 12.5")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(toks), toks)
	}
	if toks[0].Type != IDENT || toks[0].Lexeme != "count" {
		t.Errorf("got %+v, want IDENT count", toks[0])
	}
	if toks[1].Type != NUMBER || toks[1].Number != 12.5 {
		t.Errorf("got %+v, want NUMBER 12.5", toks[1])
	}
}

func TestScanDeclaredTypeToken(t *testing.T) {
	toks := scanAll(t, "'number")
	if len(toks) != 1 || toks[0].Type != TYPE || toks[0].Lexeme != "number" {
		t.Fatalf("got %+v, want a single TYPE number token", toks)
	}
}

func TestScanUndeclaredTypeIsError(t *testing.T) {
	tab := newTestTable()
	lx := New(tab, "'nope")
	if _, err := lx.Next(); err == nil {
		t.Errorf("expected error scanning undeclared type")
	}
}

func TestScanStringWithEscapes(t *testing.T) {
	toks := scanAll(t, `"line one`+"`n"+`line two"`)
	if len(toks) != 1 || toks[0].Type != STRING {
		t.Fatalf("got %+v, want a single STRING token", toks)
	}
	want := "line one\nline two"
	if toks[0].Lexeme != want {
		t.Errorf("got %q, want %q", toks[0].Lexeme, want)
	}
}

func TestHashOnlyValidAtLineStart(t *testing.T) {
	tab := newTestTable()

	lx := New(tab, "#trace")
	tok, err := lx.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Type != HASH {
		t.Errorf("got %+v, want HASH at line start", tok)
	}

	lx2 := New(tab, "a + #trace")
	for i := 0; i < 2; i++ {
		if _, err := lx2.Next(); err != nil {
			t.Fatalf("unexpected error scanning %d: %v", i, err)
		}
	}
	if _, err := lx2.Next(); err == nil {
		t.Errorf("expected error for '#' mid-line")
	}
}

func TestDotCommentSkipsToEndOfLine(t *testing.T) {
	toks := scanAll(t, "a .. this is a comment\nb")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(toks), toks)
	}
	if toks[0].Lexeme != "a" || toks[1].Lexeme != "b" {
		t.Errorf("got %+v", toks)
	}
}

func TestLoneDotIsDotToken(t *testing.T) {
	toks := scanAll(t, "a . b")
	if len(toks) != 3 || toks[1].Type != DOT {
		t.Fatalf("got %+v, want a, DOT, b", toks)
	}
}
