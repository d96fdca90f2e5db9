package repl

import (
	"bytes"
	"strings"
	"testing"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
	"bertrand/internal/primitive"
)

// installAddition registers "x + y { addition_primitive }" directly
// into r's rule database, the way a preamble rule file would, so a
// single-line test doesn't need to spell out a #op directive for "+".
func installAddition(t *testing.T, r *REPL) *ops.Op {
	t.Helper()
	plus, err := r.table.Declare(ops.CatSingle, "+", ops.Left, 50)
	if err != nil {
		t.Fatalf("declare +: %v", err)
	}
	addOp := r.table.Lookup(ops.CatAlnum, "addition_primitive")
	if addOp == nil {
		t.Fatal("addition_primitive not registered by primitive.Init")
	}
	x := &expr.Name{Op: primitive.UntypedPrim, PVal: "x"}
	y := &expr.Name{Op: primitive.UntypedPrim, PVal: "y"}
	head := &expr.Term{Op: plus, Left: x, Right: y}
	body := &expr.Term{Op: addOp}
	if _, err := r.db.Build(head, body, nil, expr.NewSpace(), 2); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return plus
}

func TestREPLInstallsRuleAndRewritesSubject(t *testing.T) {
	in := strings.NewReader("main { 3 + 4 }\n")
	var out bytes.Buffer

	r := New(in, &out, "", &primitive.Machine{})
	installAddition(t, r)

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "7") {
		t.Errorf("expected the rewritten subject 7 in output, got %q", out.String())
	}
}

func TestREPLReportsParseErrorsWithoutEndingSession(t *testing.T) {
	in := strings.NewReader("main { )( }\nmain { 1 }\n")
	var out bytes.Buffer

	r := New(in, &out, "", &primitive.Machine{})

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "1") {
		t.Errorf("expected the session to recover and rewrite the second rule, got %q", out.String())
	}
}

func TestReadRuleAccumulatesUntilBraceBalances(t *testing.T) {
	in := strings.NewReader("main {\n  3 + 4\n}\n")
	var out bytes.Buffer
	r := New(in, &out, "", &primitive.Machine{})

	chunk, ok := r.readRule()
	if !ok {
		t.Fatal("expected a rule chunk")
	}
	if !strings.Contains(chunk, "3 + 4") {
		t.Errorf("expected the multi-line body to be joined into one chunk, got %q", chunk)
	}
}
