package ops

import "testing"

func TestDeclareAndLookup(t *testing.T) {
	tab := NewTable()

	op, err := tab.Declare(CatDouble, "+>", Left, 50)
	if err != nil {
		t.Fatalf("declare +>: %v", err)
	}
	if got := tab.Lookup(CatDouble, "+>"); got != op {
		t.Errorf("lookup +> returned %v, want %v", got, op)
	}
	if tab.Lookup(CatDouble, "<+") != nil {
		t.Errorf("expected no operator <+ declared")
	}
}

func TestDeclareDuplicateSameClassIsError(t *testing.T) {
	tab := NewTable()
	if _, err := tab.Declare(CatSingle, "+", Left, 50); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if _, err := tab.Declare(CatSingle, "+", Right, 60); err == nil {
		t.Errorf("expected error redeclaring binary + as binary")
	}
}

func TestDeclareInfixUnaryOverload(t *testing.T) {
	tab := NewTable()
	bin, err := tab.Declare(CatSingle, "-", Left, 50)
	if err != nil {
		t.Fatalf("declare binary -: %v", err)
	}
	un, err := tab.Declare(CatSingle, "-", Prefix, 10)
	if err != nil {
		t.Fatalf("declare unary -: %v", err)
	}
	if bin.Other != un || un.Other != bin {
		t.Errorf("expected - binary/unary to be linked via Other, got bin.Other=%v un.Other=%v", bin.Other, un.Other)
	}
}

func TestIsSubtypeOf(t *testing.T) {
	tab := NewTable()
	num, _ := tab.Declare(CatType, "number", Name, 0)
	integer, _ := tab.Declare(CatType, "integer", Name, 0)
	integer.Super = num

	if !integer.IsSubtypeOf(num) {
		t.Errorf("expected integer to be a subtype of number")
	}
	if !integer.IsSubtypeOf(integer) {
		t.Errorf("expected a type to be a subtype of itself")
	}
	if num.IsSubtypeOf(integer) {
		t.Errorf("did not expect number to be a subtype of integer")
	}
}

func TestAlphabeticalInsertOrder(t *testing.T) {
	tab := NewTable()
	for _, name := range []string{"zebra", "apple", "mango"} {
		if _, err := tab.Declare(CatAlnum, name, Nullary, BigPrecedence); err != nil {
			t.Fatalf("declare %s: %v", name, err)
		}
	}
	var got []string
	for _, op := range tab.Alnum.all() {
		got = append(got, op.Name)
	}
	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s (full: %v)", i, got[i], want[i], got)
			break
		}
	}
}
