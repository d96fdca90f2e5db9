// Package primitive implements the primitive dispatcher (component H,
// spec.md §4.8) and the bootstrap of the built-in types/operators
// every rule file can build on (positive/nonzero/constant/literal,
// true/false, the three numeric sign-singletons, the string
// singleton, and undeclared/untyped). Grounded on
// original_source/src/primitive.c's primitive_init and
// primitive_execute, and original_source/bertrand/util.c's
// primitive() helper.
package primitive

import (
	"fmt"
	"math"

	"bertrand/internal/expr"
	"bertrand/internal/graphics"
	"bertrand/internal/ops"
)

// Eval codes, kept numerically identical to
// original_source/src/primitive.c so that any #op ... #N directive
// written against the original primitive numbering still means the
// same thing (SPEC_FULL.md §4.8).
const (
	Bind        = 1
	Add         = 16
	Sub         = 17
	Mul         = 18
	Div         = 19
	Eq          = 20
	Lt          = 21
	Le          = 22
	Pow         = 23
	Sin         = 24
	Cos         = 25
	Tan         = 26
	Atan        = 27
	Round       = 28
	Floor       = 29
	Lexcompare  = 30
	Trace       = 31
	DrawLine    = 40
	DrawString  = 41
)

// Singletons, populated by Init.
var (
	ConstantType *ops.Op
	NonzeroType  *ops.Op
	PositiveType *ops.Op
	LiteralType  *ops.Op
	TrueOp       *ops.Op
	FalseOp      *ops.Op

	PNumPrim *ops.Op
	ZNumPrim *ops.Op
	NNumPrim *ops.Op
	StrPrim  *ops.Op

	UndeclaredPrim *ops.Op
	UntypedPrim    *ops.Op

	MainOp *ops.Op
)

func declare(t *ops.Table, c ops.Category, name string, arity ops.Arity, super *ops.Op, eval int) *ops.Op {
	op, err := t.Declare(c, name, arity, ops.DefaultPrecedence)
	if err != nil {
		// Every name here is a compile-time constant chosen by us;
		// a collision would be a bug in this package, not user input.
		panic(fmt.Sprintf("primitive: %v", err))
	}
	op.Super = super
	op.Eval = eval
	op.Precedence = 0
	return op
}

// Init registers every primitive type/operator into t and wires
// expr.Undeclared, matching primitive_init()'s bootstrap order.
func Init(t *ops.Table) {
	ConstantType = declare(t, ops.CatType, "constant", ops.Name, nil, 0)
	NonzeroType = declare(t, ops.CatType, "nonzero", ops.Name, ConstantType, 0)
	PositiveType = declare(t, ops.CatType, "positive", ops.Name, NonzeroType, 0)
	LiteralType = declare(t, ops.CatType, "literal", ops.Name, nil, 0)
	TrueOp = declare(t, ops.CatAlnum, "true", ops.Nullary, nil, 0)
	FalseOp = declare(t, ops.CatAlnum, "false", ops.Nullary, nil, 0)

	PNumPrim = &ops.Op{Name: "positive constants", Arity: ops.Num, Super: PositiveType}
	ZNumPrim = &ops.Op{Name: "zero", Arity: ops.Num, Super: ConstantType}
	NNumPrim = &ops.Op{Name: "negative constants", Arity: ops.Num, Super: NonzeroType}
	StrPrim = &ops.Op{Name: "string constant", Arity: ops.Str, Super: LiteralType}
	UndeclaredPrim = &ops.Op{Name: "?", Arity: ops.Name}
	UntypedPrim = &ops.Op{Name: "", Arity: ops.Name}

	expr.Undeclared = UndeclaredPrim

	declare(t, ops.CatAlnum, "bind_primitive", ops.Nullary, nil, Bind)
	declare(t, ops.CatAlnum, "addition_primitive", ops.Nullary, nil, Add)
	declare(t, ops.CatAlnum, "subtraction_primitive", ops.Nullary, nil, Sub)
	declare(t, ops.CatAlnum, "multiplication_primitive", ops.Nullary, nil, Mul)
	declare(t, ops.CatAlnum, "division_primitive", ops.Nullary, nil, Div)
	declare(t, ops.CatAlnum, "equality_primitive", ops.Nullary, nil, Eq)
	declare(t, ops.CatAlnum, "lessthan_primitive", ops.Nullary, nil, Lt)
	declare(t, ops.CatAlnum, "lessorequal_primitive", ops.Nullary, nil, Le)
	declare(t, ops.CatAlnum, "power_primitive", ops.Nullary, nil, Pow)
	declare(t, ops.CatAlnum, "sin_primitive", ops.Nullary, nil, Sin)
	declare(t, ops.CatAlnum, "cos_primitive", ops.Nullary, nil, Cos)
	declare(t, ops.CatAlnum, "tan_primitive", ops.Nullary, nil, Tan)
	declare(t, ops.CatAlnum, "atan_primitive", ops.Nullary, nil, Atan)
	declare(t, ops.CatAlnum, "round_primitive", ops.Nullary, nil, Round)
	declare(t, ops.CatAlnum, "floor_primitive", ops.Nullary, nil, Floor)
	declare(t, ops.CatAlnum, "lexcompare_primitive", ops.Nullary, nil, Lexcompare)
	declare(t, ops.CatAlnum, "trace_primitive", ops.Nullary, nil, Trace)
	declare(t, ops.CatAlnum, "line_primitive", ops.Nullary, nil, DrawLine)
	declare(t, ops.CatAlnum, "string_primitive", ops.Nullary, nil, DrawString)

	MainOp = declare(t, ops.CatAlnum, "main", ops.Nullary, nil, 0)
}

// NewSubject returns the initial subject expression every run starts
// from: a labeled, nullary "main" term whose label is a fresh name
// space a top-level "main { ... }" rule can merge its own locals into
// on first match. Grounded on original_source/bertrand/util.c's init().
// Init must have already been called on the table main was declared
// in.
func NewSubject() *expr.Term {
	return &expr.Term{Op: MainOp, Label: expr.NewSpace()}
}

func asNum(n expr.Node) (*expr.Num, error) {
	num, ok := n.(*expr.Num)
	if !ok {
		return nil, fmt.Errorf("primitive: expected a number, got %T", n)
	}
	return num, nil
}

func asTerm(n expr.Node) (*expr.Term, error) {
	term, ok := n.(*expr.Term)
	if !ok {
		return nil, fmt.Errorf("primitive: expected a term, got %T", n)
	}
	return term, nil
}

func signOp(v float64) *ops.Op {
	switch {
	case v == 0.0:
		return ZNumPrim
	case v > 0.0:
		return PNumPrim
	default:
		return NNumPrim
	}
}

// Machine holds the mutable state primitives can read or write:
// trace verbosity (seeded by the caller, e.g. cmd/rewrite's --trace
// flag, and set by the trace primitive; #trace/#quiet change the
// preprocessor's own Trace, not this one) and the drawing sink
// (spec.md §4.14).
type Machine struct {
	Trace int
	Sink  graphics.Sink
}

// Execute runs the primitive identified by which against tn, the
// matched redex term (not the rule body), per spec.md §4.8. Returns the answer
// node and whether a bind occurred (the walker must then run
// expr.Update over the whole subject — spec.md §4.7 step 2's
// "bondage" flag). Grounded exactly on
// original_source/src/primitive.c's primitive_execute.
func (m *Machine) Execute(which int, tn *expr.Term) (expr.Node, bool, error) {
	var numValue float64
	var op *ops.Op
	bondage := false

	switch which {
	case Bind:
		name, ok := tn.Left.(*expr.Name)
		if !ok {
			return nil, false, fmt.Errorf("attempt to bind a value to something other than a name")
		}
		if name.Value != nil {
			return nil, false, fmt.Errorf("attempt to bind a value to an already bound variable: %s", name.PVal)
		}
		if expr.NameInExpr(name, tn.Right) {
			return nil, false, fmt.Errorf("bound expression contains variable %q to which it is being bound", name.PVal)
		}
		name.Value = expr.Copy(tn.Right)
		bondage = true
		op = TrueOp

	case Add, Sub, Mul, Div:
		l, err := asNum(tn.Left)
		if err != nil {
			return nil, false, err
		}
		r, err := asNum(tn.Right)
		if err != nil {
			return nil, false, err
		}
		switch which {
		case Add:
			numValue = l.Value + r.Value
		case Sub:
			numValue = l.Value - r.Value
		case Mul:
			numValue = l.Value * r.Value
		case Div:
			numValue = l.Value / r.Value
		}

	case Eq, Lt, Le:
		l, err := asNum(tn.Left)
		if err != nil {
			return nil, false, err
		}
		r, err := asNum(tn.Right)
		if err != nil {
			return nil, false, err
		}
		var cond bool
		switch which {
		case Eq:
			cond = l.Value == r.Value
		case Lt:
			cond = l.Value < r.Value
		case Le:
			cond = l.Value <= r.Value
		}
		if cond {
			op = TrueOp
		} else {
			op = FalseOp
		}

	case Pow:
		l, err := asNum(tn.Left)
		if err != nil {
			return nil, false, err
		}
		r, err := asNum(tn.Right)
		if err != nil {
			return nil, false, err
		}
		numValue = math.Pow(l.Value, r.Value)

	case Sin, Cos, Tan, Atan, Round, Floor:
		r, err := asNum(tn.Right)
		if err != nil {
			return nil, false, err
		}
		switch which {
		case Sin:
			numValue = math.Sin(r.Value)
		case Cos:
			numValue = math.Cos(r.Value)
		case Tan:
			numValue = math.Tan(r.Value)
		case Atan:
			numValue = math.Atan(r.Value)
		case Round:
			numValue = math.RoundToEven(r.Value)
		case Floor:
			numValue = math.Floor(r.Value)
		}

	case Lexcompare:
		l, ok := tn.Left.(*expr.Name)
		if !ok {
			return nil, false, fmt.Errorf("lexcompare: left operand is not a name")
		}
		r, ok := tn.Right.(*expr.Name)
		if !ok {
			return nil, false, fmt.Errorf("lexcompare: right operand is not a name")
		}
		numValue = float64(expr.CompareByAddress(l, r))

	case Trace:
		r, err := asNum(tn.Right)
		if err != nil {
			return nil, false, err
		}
		numValue = float64(m.Trace)
		m.Trace = int(r.Value)

	case DrawLine:
		pair, err := asTerm(tn.Left)
		if err != nil {
			return nil, false, err
		}
		p1, err := asTerm(pair.Left)
		if err != nil {
			return nil, false, err
		}
		p2, err := asTerm(pair.Right)
		if err != nil {
			return nil, false, err
		}
		x1, err := asNum(p1.Left)
		if err != nil {
			return nil, false, err
		}
		y1, err := asNum(p1.Right)
		if err != nil {
			return nil, false, err
		}
		x2, err := asNum(p2.Left)
		if err != nil {
			return nil, false, err
		}
		y2, err := asNum(p2.Right)
		if err != nil {
			return nil, false, err
		}
		m.sink().Line(x1.Value, y1.Value, x2.Value, y2.Value)
		op = TrueOp

	case DrawString:
		left, err := asTerm(tn.Left)
		if err != nil {
			return nil, false, err
		}
		str, ok := left.Left.(*expr.Str)
		if !ok {
			return nil, false, fmt.Errorf("draw_string: first argument is not a string")
		}
		point, err := asTerm(left.Right)
		if err != nil {
			return nil, false, err
		}
		x, err := asNum(point.Left)
		if err != nil {
			return nil, false, err
		}
		y, err := asNum(point.Right)
		if err != nil {
			return nil, false, err
		}
		m.sink().String(str.Value, x.Value, y.Value)
		op = TrueOp

	default:
		return nil, false, fmt.Errorf("invalid builtin function #%d", which)
	}

	if op == nil {
		op = signOp(numValue)
		return &expr.Num{Op: op, Value: numValue}, bondage, nil
	}
	return &expr.Term{Op: op}, bondage, nil
}

func (m *Machine) sink() graphics.Sink {
	if m.Sink == nil {
		m.Sink = graphics.NewNullSink()
	}
	return m.Sink
}
