package printer

import (
	"testing"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
)

func TestFormatBinaryOperator(t *testing.T) {
	tab := ops.NewTable()
	plus, err := tab.Declare(ops.CatSingle, "+", ops.Left, 50)
	if err != nil {
		t.Fatalf("declare +: %v", err)
	}
	one := &expr.Num{Value: 1}
	two := &expr.Num{Value: 2}
	term := &expr.Term{Op: plus, Left: one, Right: two}

	got := Format(term)
	want := "(1+2)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatAlphabeticOperatorGetsSpaces(t *testing.T) {
	tab := ops.NewTable()
	mod, err := tab.Declare(ops.CatAlnum, "mod", ops.Left, 50)
	if err != nil {
		t.Fatalf("declare mod: %v", err)
	}
	term := &expr.Term{Op: mod, Left: &expr.Num{Value: 7}, Right: &expr.Num{Value: 2}}

	got := Format(term)
	want := "(7 mod 2)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatOutfixPrintsMatchingClose(t *testing.T) {
	tab := ops.NewTable()
	open, err := tab.Declare(ops.CatSingle, "(", ops.Outfix1, ops.BigPrecedence)
	if err != nil {
		t.Fatalf("declare (: %v", err)
	}
	closeOp, err := tab.Declare(ops.CatSingle, ")", ops.Outfix1, ops.BigPrecedence)
	if err != nil {
		t.Fatalf("declare ): %v", err)
	}
	open.Other = closeOp
	closeOp.Other = open

	term := &expr.Term{Op: open, Right: &expr.Num{Value: 3}}
	got := Format(term)
	want := "(3)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatPostfixOmitsRightOperand(t *testing.T) {
	tab := ops.NewTable()
	bang, err := tab.Declare(ops.CatSingle, "!", ops.Postfix, 90)
	if err != nil {
		t.Fatalf("declare !: %v", err)
	}
	term := &expr.Term{Op: bang, Left: &expr.Num{Value: 5}}
	got := Format(term)
	want := "(5!)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatString(t *testing.T) {
	str := &expr.Str{Value: "hi"}
	if got := Format(str); got != `"hi"` {
		t.Errorf("got %q, want %q", got, `"hi"`)
	}
}

func TestFormatLabel(t *testing.T) {
	tab := ops.NewTable()
	plus, err := tab.Declare(ops.CatSingle, "+", ops.Left, 50)
	if err != nil {
		t.Fatalf("declare +: %v", err)
	}
	typ, err := tab.Declare(ops.CatType, "foo", ops.Name, 0)
	if err != nil {
		t.Fatalf("declare type foo: %v", err)
	}
	label := &expr.Name{Op: typ, PVal: "r"}
	term := &expr.Term{Op: plus, Label: label, Left: &expr.Num{Value: 1}, Right: &expr.Num{Value: 2}}

	got := Format(term)
	want := "r'foo:(1+2)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
