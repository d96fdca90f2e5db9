package match

import (
	"testing"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
	"bertrand/internal/primitive"
	"bertrand/internal/rules"
)

func newTestTable(t *testing.T) *ops.Table {
	t.Helper()
	tab := ops.NewTable()
	primitive.Init(tab)
	return tab
}

func declBinary(t *testing.T, tab *ops.Table, name string) *ops.Op {
	t.Helper()
	op, err := tab.Declare(ops.CatSingle, name, ops.Left, 50)
	if err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
	return op
}

func TestSubMatchesEqualNumbers(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	head := &expr.Term{Op: plus,
		Left:  &expr.Num{Op: primitive.ZNumPrim, Value: 0},
		Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0},
	}
	exp := &expr.Term{Op: plus,
		Left:  &expr.Num{Op: primitive.ZNumPrim, Value: 0},
		Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0},
	}
	ok, err := Sub(head, exp)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !ok {
		t.Fatal("expected equal-valued NUM subtrees to match")
	}
}

func TestSubBindsUntypedParameter(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	param := &expr.Name{Op: primitive.UntypedPrim, PVal: "x"}
	head := &expr.Term{Op: plus, Left: param, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}
	arg := &expr.Num{Op: primitive.PNumPrim, Value: 3}
	exp := &expr.Term{Op: plus, Left: arg, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}

	ok, err := Sub(head, exp)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}
	if param.Value != expr.Node(arg) {
		t.Errorf("expected parameter bound to the argument node, got %v", param.Value)
	}
}

func TestSubTypedParameterRejectsWrongType(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	param := &expr.Name{Op: primitive.PositiveType, PVal: "x"}
	head := &expr.Term{Op: plus, Left: param, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}
	arg := &expr.Num{Op: primitive.NNumPrim, Value: -3} // negative, not positive
	exp := &expr.Term{Op: plus, Left: arg, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}

	ok, err := Sub(head, exp)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if ok {
		t.Fatal("expected match to fail: negative value does not satisfy positive guard")
	}
}

func TestSubTypedParameterAcceptsSubtype(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	param := &expr.Name{Op: primitive.ConstantType, PVal: "x"}
	head := &expr.Term{Op: plus, Left: param, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}
	arg := &expr.Num{Op: primitive.PNumPrim, Value: 3} // positive is a subtype of constant
	exp := &expr.Term{Op: plus, Left: arg, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}

	ok, err := Sub(head, exp)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !ok {
		t.Fatal("expected positive (a constant subtype) to satisfy a constant-typed parameter")
	}
}

func TestFindReturnsMostSpecificRule(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")
	db := rules.NewDatabase()

	generic := &expr.Name{Op: primitive.UntypedPrim, PVal: "x"}
	genericHead := &expr.Term{Op: plus, Left: generic, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}
	if _, err := db.Build(genericHead, generic, nil, expr.NewSpace(), 1); err != nil {
		t.Fatalf("Build generic: %v", err)
	}

	specificParam := &expr.Name{Op: primitive.PositiveType, PVal: "y"}
	specificHead := &expr.Term{Op: plus, Left: specificParam, Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0}}
	if _, err := db.Build(specificHead, specificParam, nil, expr.NewSpace(), 1); err != nil {
		t.Fatalf("Build specific: %v", err)
	}

	exp := &expr.Term{Op: plus,
		Left:  &expr.Num{Op: primitive.PNumPrim, Value: 5},
		Right: &expr.Num{Op: primitive.ZNumPrim, Value: 0},
	}
	r, err := Find(db, exp)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if r == nil {
		t.Fatal("expected a matching rule")
	}
	if r.Head != specificHead {
		t.Errorf("expected the more specific (positive-typed) rule to match first")
	}
}

func TestInstantiateSubstitutesBoundParameter(t *testing.T) {
	tab := newTestTable(t)
	declBinary(t, tab, "+")

	param := &expr.Name{Op: primitive.UntypedPrim, PVal: "x"}
	bound := &expr.Num{Op: primitive.PNumPrim, Value: 7}
	param.Value = bound

	out, err := Instantiate(param)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	num, ok := out.(*expr.Num)
	if !ok {
		t.Fatalf("got %T, want *expr.Num", out)
	}
	if num.Value != 7 {
		t.Errorf("got %v, want 7", num.Value)
	}
	if num == bound {
		t.Error("Instantiate must copy the bound value, not alias it")
	}
}

func TestInstantiateClonesTermStructure(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	body := &expr.Term{Op: plus,
		Left:  &expr.Num{Op: primitive.PNumPrim, Value: 1},
		Right: &expr.Num{Op: primitive.PNumPrim, Value: 2},
	}
	out, err := Instantiate(body)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	term, ok := out.(*expr.Term)
	if !ok {
		t.Fatalf("got %T, want *expr.Term", out)
	}
	if term == body {
		t.Error("Instantiate must return a fresh Term, not the original")
	}
	if term.Left.(*expr.Num).Value != 1 || term.Right.(*expr.Num).Value != 2 {
		t.Error("cloned term has wrong children")
	}
}

func TestInstantiateLabeledTermUsesMergedNamespaceNode(t *testing.T) {
	tab := newTestTable(t)
	plus := declBinary(t, tab, "+")

	ruleSpace := expr.NewSpace()
	local, err := expr.Put("x", ruleSpace, expr.Undeclared)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	body := &expr.Term{Op: plus,
		Label: local,
		Left:  &expr.Num{Op: primitive.PNumPrim, Value: 1},
		Right: &expr.Num{Op: primitive.PNumPrim, Value: 2},
	}

	subjectLabel := expr.NewSpace()
	if _, err := expr.InsertSpace(ruleSpace, subjectLabel); err != nil {
		t.Fatalf("InsertSpace: %v", err)
	}
	merged, ok := local.Value.(*expr.Name)
	if !ok {
		t.Fatalf("expected InsertSpace to set local.Value to a *expr.Name, got %#v", local.Value)
	}

	out, err := Instantiate(body)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	term, ok := out.(*expr.Term)
	if !ok {
		t.Fatalf("got %T, want *expr.Term", out)
	}
	if term.Label == local {
		t.Error("Instantiate must not alias the rule-local label name across firings")
	}
	if term.Label != merged {
		t.Errorf("got label %#v, want the namespace-merged node %#v", term.Label, merged)
	}
}
