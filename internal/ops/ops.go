// Package ops implements the operator table: the registry of declared
// operators keyed by lexical category, their arity, precedence,
// supertype and overload linkage, and parser/primitive eval codes.
//
// Grounded on original_source/ops.c (op_put, arity categories) and
// original_source/prep.c (op_define, op_create, #type, #primitive).
package ops

import "fmt"

// Arity is the discriminant tag described in spec.md §3: a bitflag
// scheme mirroring original_source/def.h. Class() masks with
// classMask and recovers NULLARY/UNARY/BINARY; NAME/NUM/STR lie
// outside classMask, so Class() returns 0 for all three and they are
// compared by exact equality instead.
type Arity uint16

const (
	classMask Arity = 0xf000

	Nullary Arity = 0x1000
	Unary   Arity = 0x2000
	Binary  Arity = 0x4000
	Name    Arity = 0x0800
	Num     Arity = 0x0400
	Str     Arity = 0x0200

	Prefix  Arity = Unary | 0x0001
	Postfix Arity = Unary | 0x0002
	Outfix1 Arity = Unary | 0x0004
	Outfix2 Arity = Unary | 0x0008

	Left     Arity = Binary | 0x0001
	Right    Arity = Binary | 0x0002
	Nonassoc Arity = Binary | 0x0004
)

// Class masks off the sub-flags and returns the coarse category.
func (a Arity) Class() Arity { return a & classMask }

func (a Arity) IsBinary() bool { return a.Class() == Binary }
func (a Arity) IsUnary() bool  { return a.Class() == Unary }

func (a Arity) String() string {
	switch a {
	case Nullary:
		return "nullary"
	case Prefix:
		return "prefix"
	case Postfix:
		return "postfix"
	case Outfix1:
		return "outfix1"
	case Outfix2:
		return "outfix2"
	case Left:
		return "left"
	case Right:
		return "right"
	case Nonassoc:
		return "nonassoc"
	case Name:
		return "name"
	case Num:
		return "num"
	case Str:
		return "str"
	default:
		return fmt.Sprintf("arity(%#x)", uint16(a))
	}
}

// DefaultPrecedence is used when #op gives no explicit precedence for
// a binary/unary operator (original_source/prep.c's DEFAULT_PREC).
const DefaultPrecedence = 100

// BigPrecedence is the precedence forced onto NULLARY operators
// (original_source/prep.c's BIG_SHORT), so they never get reduced
// away by a precedence comparison.
const BigPrecedence = 32767

// Op is one entry in an operator table list. Op values are only ever
// handed out as *Op by the Table, so pointer identity is the
// operator's identity throughout the rest of the interpreter; ID is a
// stable integer assigned at registration for reproducible tie-breaks
// and trace output (per spec.md §9's "operator identity" note).
type Op struct {
	ID        int
	Name      string
	Arity     Arity
	Precedence int
	Super     *Op // supertype, or nil
	Other     *Op // outfix mate, or infix/unary overload partner
	Eval      int // 0 ordinary; >0 primitive code; <0 parser-reduce action

	next *Op // table list linkage, alphabetical order
}

// IsSubtypeOf reports whether o is op, or a transitive subtype of it,
// by walking the Super chain (original_source/src/match.c match_types).
func (o *Op) IsSubtypeOf(op *Op) bool {
	for t := o; t != nil; t = t.Super {
		if t == op {
			return true
		}
	}
	return false
}

// list is one of the four alphabetically-ordered operator lists.
type list struct {
	head *Op
}

func (l *list) insert(op *Op) (*Op, error) {
	var prev *Op
	cur := l.head
	for cur != nil && cur.Name < op.Name {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.Name == op.Name {
		return cur, nil // caller resolves collision
	}
	op.next = cur
	if prev == nil {
		l.head = op
	} else {
		prev.next = op
	}
	return nil, nil
}

func (l *list) find(name string) *Op {
	for o := l.head; o != nil; o = o.next {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (l *list) all() []*Op {
	var out []*Op
	for o := l.head; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}

// Table holds the four operator lists: single-char symbolic,
// double-char symbolic, alphanumeric, and type. Grounded on
// original_source/ops.c's global single_op/double_op/name_op/type_op
// lists and op_put's collision rules.
type Table struct {
	Single *list
	Double *list
	Alnum  *list
	Type   *list

	nextID int
}

func NewTable() *Table {
	return &Table{Single: &list{}, Double: &list{}, Alnum: &list{}, Type: &list{}}
}

// Category selects which of the four lists an operator name belongs
// to, mirroring original_source/prep.c's op_create classification.
type Category int

const (
	CatSingle Category = iota
	CatDouble
	CatAlnum
	CatType
)

func (t *Table) listFor(c Category) *list {
	switch c {
	case CatSingle:
		return t.Single
	case CatDouble:
		return t.Double
	case CatAlnum:
		return t.Alnum
	case CatType:
		return t.Type
	default:
		panic("ops: bad category")
	}
}

// Lookup finds an already-declared operator of the given name in the
// given list.
func (t *Table) Lookup(c Category, name string) *Op {
	return t.listFor(c).find(name)
}

// Declare registers a new operator (or type) in list c. On a name
// collision it applies original_source/ops.c's op_put rule: identical
// arity class is an error; one binary + one unary links them via
// Other (binary listed first, matching the source's post-swap
// ordering so the parser always finds the binary overload first);
// anything else is an error.
func (t *Table) Declare(c Category, name string, arity Arity, precedence int) (*Op, error) {
	t.nextID++
	op := &Op{ID: t.nextID, Name: name, Arity: arity, Precedence: precedence}
	existing, err := t.listFor(c).insert(op)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return op, nil
	}
	// Collision.
	switch {
	case existing.Arity.Class() == arity.Class():
		return nil, fmt.Errorf("duplicate operator %q", name)
	case existing.Arity.IsBinary() && arity.IsUnary(), existing.Arity.IsUnary() && arity.IsBinary():
		existing.Other = op
		op.Other = existing
		l := t.listFor(c)
		if arity.IsBinary() {
			var prev *Op
			for o := l.head; o != existing; o = o.next {
				prev = o
			}
			op.next = existing
			if prev == nil {
				l.head = op
			} else {
				prev.next = op
			}
		} else {
			op.next = existing.next
			existing.next = op
		}
		return op, nil
	default:
		return nil, fmt.Errorf("invalid duplicate operator %q", name)
	}
}

// All lists every operator across all four tables, for diagnostics.
func (t *Table) All() []*Op {
	var out []*Op
	out = append(out, t.Single.all()...)
	out = append(out, t.Double.all()...)
	out = append(out, t.Alnum.all()...)
	out = append(out, t.Type.all()...)
	return out
}
