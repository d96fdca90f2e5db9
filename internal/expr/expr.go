// Package expr implements the expression tree (component B) and the
// hierarchical name space (component C) of spec.md §3/§4.2/§4.10.
//
// The two are kept in one package because, as in
// original_source/def.h's NODE/NAME_NODE union, a name-space tree
// node doubles as an expression-tree node variant (OP-NAME): Term
// nodes hold a Label that is a *Name, and Name nodes hold a Value
// that is itself a Node (usually a Term). Splitting the two concepts
// into independent packages would force either an import cycle or an
// empty marker interface standing in for the real type; keeping them
// together mirrors the original's actual coupling.
package expr

import (
	"fmt"
	"sync"

	"bertrand/internal/ops"
)

// Node is any expression tree node: *Term, *Num, *Str, or *Name.
type Node interface {
	NodeOp() *ops.Op
}

// Term holds a TERM-arity operator (spec.md §3). Nullary terms have
// no children; prefix has Right only; postfix has Left only; binary
// has both; OUTFIX1 has Right only.
type Term struct {
	Op     *ops.Op
	Label  *Name // optional
	Left   Node  // optional
	Right  Node  // optional
}

func (t *Term) NodeOp() *ops.Op { return t.Op }

// Num holds a floating-point literal. Its Op is one of three
// sign-singletons (positive/zero/negative), set lazily by whichever
// primitive produced it (spec.md §4.8, "After execution...").
type Num struct {
	Op    *ops.Op
	Value float64
}

func (n *Num) NodeOp() *ops.Op { return n.Op }

// Str holds an interned string (spec.md §9 policy (a): all strings
// live in a single process-wide table with stable lifetime, so Copy
// never needs to deep-copy the backing buffer and nothing ever frees
// it individually).
type Str struct {
	Op    *ops.Op
	Value string
}

func (s *Str) NodeOp() *ops.Op { return s.Op }

var (
	internMu    sync.Mutex
	internTable = map[string]string{}
)

// Intern returns the canonical copy of s, guaranteeing that two Str
// nodes built from equal text share the same Go string header. The
// mutex exists only because the optional graphics WebSink handler may
// read interned strings from its own HTTP goroutine (see
// internal/graphics); the interpreter core itself is single-threaded
// (spec.md §5, Non-goal: concurrent rewriting).
func Intern(s string) string {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := internTable[s]; ok {
		return v
	}
	internTable[s] = s
	return s
}

// Copy deep-copies Term structure; Name nodes are reference-counted,
// not deep-copied (spec.md §4.2). Grounded on
// original_source/expr.c's expr_copy, including its documented hazard
// that STR values are aliased (here made sound by interning).
func Copy(n Node) Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *Term:
		return &Term{
			Op:    v.Op,
			Label: CopyName(v.Label),
			Left:  Copy(v.Left),
			Right: Copy(v.Right),
		}
	case *Num:
		return &Num{Op: v.Op, Value: v.Value}
	case *Str:
		return &Str{Op: v.Op, Value: v.Value}
	case *Name:
		return CopyName(v)
	default:
		panic(fmt.Sprintf("expr: Copy: unknown node type %T", n))
	}
}

// Update walks the tree, replacing every Name node whose bound Value
// is non-nil with a fresh (recursively updated) copy of that value,
// and releasing the Name's reference. Returns the possibly-replaced
// root. Grounded on original_source/expr.c's expr_update; used after
// every successful rewrite to propagate bindings made by the bind
// primitive (spec.md §4.2, §4.7 step 2).
func Update(n Node) Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *Name:
		if v.Value != nil {
			updated := Update(v.Value)
			out := Copy(updated)
			FreeName(v)
			return out
		}
		return v
	case *Term:
		v.Left = Update(v.Left)
		v.Right = Update(v.Right)
		return v
	default:
		return n
	}
}

// HasUnboundName reports whether the subtree contains any Name node
// with a non-nil bound Value — the walker invariant violation
// described in spec.md §4.7 step 1 (bindings should always have been
// expanded by Update before the subject is walked again).
func HasUnboundName(n Node) bool {
	switch v := n.(type) {
	case nil:
		return false
	case *Name:
		return v.Value != nil
	case *Term:
		return HasUnboundName(v.Left) || HasUnboundName(v.Right)
	default:
		return false
	}
}

// NameInExpr reports whether name occurs anywhere in the subtree,
// used by the bind primitive's occurs check (spec.md §4.8).
func NameInExpr(name *Name, n Node) bool {
	switch v := n.(type) {
	case nil:
		return false
	case *Name:
		return v == name
	case *Term:
		return NameInExpr(name, v.Left) || NameInExpr(name, v.Right)
	default:
		return false
	}
}
