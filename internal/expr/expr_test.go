package expr

import (
	"testing"

	"bertrand/internal/ops"
)

var plusOp = &ops.Op{Name: "+", Arity: ops.Left}
var numOp = &ops.Op{Name: "num", Arity: ops.Num}
var nameType = &ops.Op{Name: "x", Arity: ops.Name}

func TestInternReturnsSameStringForEqualText(t *testing.T) {
	a := Intern("hello")
	b := Intern("hel" + "lo")
	if a != b {
		t.Errorf("expected interned strings to compare equal: %q vs %q", a, b)
	}
}

func TestCopyDeepCopiesTermStructure(t *testing.T) {
	orig := &Term{Op: plusOp, Left: &Num{Op: numOp, Value: 1}, Right: &Num{Op: numOp, Value: 2}}
	c := Copy(orig).(*Term)
	if c == orig {
		t.Fatal("Copy must return a fresh Term")
	}
	if c.Left.(*Num) == orig.Left.(*Num) {
		t.Fatal("Copy must deep-copy children, not alias them")
	}
	if c.Left.(*Num).Value != 1 || c.Right.(*Num).Value != 2 {
		t.Error("copied term has wrong values")
	}
}

func TestCopyNameSharesNotClones(t *testing.T) {
	n := &Name{Op: nameType, PVal: "x", Refs: 1}
	term := &Term{Op: plusOp, Label: n}
	c := Copy(term).(*Term)
	if c.Label != n {
		t.Error("Copy must share the Name pointer (reference-counted), not clone it")
	}
	if n.Refs != 2 {
		t.Errorf("expected Refs incremented to 2, got %d", n.Refs)
	}
}

func TestUpdateReplacesBoundNameWithItsValue(t *testing.T) {
	bound := &Name{Op: nameType, PVal: "x", Value: &Num{Op: numOp, Value: 9}, Refs: 1}
	term := &Term{Op: plusOp, Left: bound, Right: &Num{Op: numOp, Value: 1}}

	out := Update(term).(*Term)
	num, ok := out.Left.(*Num)
	if !ok || num.Value != 9 {
		t.Fatalf("expected the bound name replaced by its value 9, got %#v", out.Left)
	}
}

func TestUpdateLeavesUnboundNameAlone(t *testing.T) {
	free := &Name{Op: nameType, PVal: "x", Refs: 1}
	term := &Term{Op: plusOp, Left: free, Right: &Num{Op: numOp, Value: 1}}

	out := Update(term).(*Term)
	if out.Left != free {
		t.Error("Update must not touch an unbound name")
	}
}

func TestHasUnboundNameDetectsBoundNameAnywhereInTree(t *testing.T) {
	bound := &Name{Op: nameType, PVal: "x", Value: &Num{Op: numOp, Value: 0}}
	clean := &Term{Op: plusOp, Left: &Num{Op: numOp, Value: 1}, Right: &Num{Op: numOp, Value: 2}}
	dirty := &Term{Op: plusOp, Left: bound, Right: &Num{Op: numOp, Value: 2}}

	if HasUnboundName(clean) {
		t.Error("expected no unbound name in a tree without one")
	}
	if !HasUnboundName(dirty) {
		t.Error("expected to find the bound name nested in the tree")
	}
}

func TestNameInExprFindsNameByIdentity(t *testing.T) {
	a := &Name{Op: nameType, PVal: "x"}
	b := &Name{Op: nameType, PVal: "x"}
	term := &Term{Op: plusOp, Left: a, Right: &Num{Op: numOp, Value: 1}}

	if !NameInExpr(a, term) {
		t.Error("expected to find a by identity")
	}
	if NameInExpr(b, term) {
		t.Error("expected not to find a different Name with the same PVal")
	}
}
