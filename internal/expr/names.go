package expr

import (
	"fmt"
	"strings"

	"bertrand/internal/ops"
)

// Name is one node of a hierarchical name space (spec.md §3/§4.10),
// and simultaneously the OP-NAME variant of the expression tree: a
// Term's Label field, and the leaves a BODY-mode identifier resolves
// to, are both *Name. Grounded on original_source/def.h's NAME_NODE
// and original_source/src/names.c.
type Name struct {
	Op       *ops.Op // type operator; starts as Undeclared
	Parent   *Name
	Next     *Name // sibling, sorted by PVal
	Child    *Name // first child
	PVal     string
	Value    Node // bound value, only set for parameters/bindable locals
	Refs     int
	Interest int // reserved; never read by core semantics (spec.md §9)
}

func (n *Name) NodeOp() *ops.Op { return n.Op }

// Undeclared is the type assigned to a name on first mention, before
// any parameter-typing or #primitive declaration promotes it.
// Assigned once by the primitive package during initialization; see
// internal/primitive.
var Undeclared *ops.Op

// NewSpace creates a fresh, empty anonymous name-space root, used as
// the merge target when a matched redex carried no label (spec.md
// §4.7 step 2, "else merge the rule's local space with a fresh
// anonymous root").
func NewSpace() *Name {
	return &Name{Op: Undeclared, Refs: 1}
}

// Put inserts name into space's children, sorted by PVal. If the name
// already exists, its reference count is bumped and, if it was still
// Undeclared, it is promoted to typ; a type clash between an existing
// declared type and a different typ is an error. Grounded on
// original_source/src/names.c's name_put.
func Put(name string, space *Name, typ *ops.Op) (*Name, error) {
	if typ == nil {
		return nil, fmt.Errorf("name %q: no type specified", name)
	}
	if space == nil {
		return nil, fmt.Errorf("name %q: no name space specified", name)
	}
	var prev *Name
	cur := space.Child
	for cur != nil {
		switch {
		case cur.PVal == name:
			cur.Refs++
			if cur.Op == Undeclared {
				cur.Op = typ
			} else if typ != Undeclared && cur.Op != typ {
				return nil, fmt.Errorf("name %q: conflicting types %q and %q", name, cur.Op.Name, typ.Name)
			}
			return cur, nil
		case cur.PVal > name:
			goto insert
		}
		prev = cur
		cur = cur.Next
	}
insert:
	nn := &Name{
		Op:     typ,
		Parent: space,
		Next:   cur,
		PVal:   name,
		Refs:   2, // one reference to this name plus the parent reference
	}
	if prev != nil {
		prev.Next = nn
	} else {
		space.Child = nn
	}
	return nn, nil
}

// CopyName returns n with its reference count bumped — it does not
// duplicate the node (original_source/src/names.c's name_copy).
func CopyName(n *Name) *Name {
	if n == nil {
		return nil
	}
	n.Refs++
	return n
}

// FreeName decrements n's reference count and, on reaching zero,
// recursively frees its children and any bound value
// (original_source/src/names.c's name_free). Go's GC reclaims the
// actual memory; this only tears down the logical ref-count
// invariant checked by spec.md §8 ("reference counts never reach
// zero while any reachable structure references the node").
func FreeName(n *Name) {
	if n == nil {
		return
	}
	n.Refs--
	if n.Refs == 0 {
		for ch := n.Child; ch != nil; {
			next := ch.Next
			FreeName(ch)
			ch = next
		}
		if n.Value != nil {
			// Expression nodes other than Name have no explicit free
			// step under Go's GC; freeing a bound Name value only
			// needs to release any Name references it holds.
			freeValueNames(n.Value)
		}
	}
}

func freeValueNames(n Node) {
	switch v := n.(type) {
	case *Name:
		FreeName(v)
	case *Term:
		freeValueNames(v.Left)
		freeValueNames(v.Right)
	}
}

// InsertSpace merges ins (a rule-local space containing parameters
// and locals with their current bindings) into space. If space is nil,
// a fresh root carrying ins's type and print value is allocated. Grounded exactly on
// original_source/src/names.c's name_space_insert: the two children
// lists are walked in lockstep, sorted by PVal.
func InsertSpace(ins, space *Name) (*Name, error) {
	if ins == nil {
		return space, nil
	}
	in := ins.Child
	if space == nil {
		space = &Name{
			Op:       ins.Op,
			PVal:     ins.PVal,
			Refs:     1,
			Interest: ins.Interest,
		}
	}
	var pn *Name // previous node in space's child list
	sn := space.Child

	for in != nil {
		var cmp int
		if sn != nil {
			cmp = strings.Compare(sn.PVal, in.PVal)
		} else {
			cmp = 1
		}
		switch {
		case cmp < 0:
			pn = sn
			sn = sn.Next

		case cmp > 0:
			if in.Op != Undeclared {
				// Parameter: propagate its bound value's name
				// structure if the value is itself a Name.
				if nv, ok := in.Value.(*Name); ok {
					if _, err := InsertSpace(in, nv); err != nil {
						return nil, err
					}
				}
			} else {
				// Local variable: allocate a fresh node in a
				// detached space and splice it in.
				tn, err := InsertSpace(in, nil)
				if err != nil {
					return nil, err
				}
				tn.Next = sn
				tn.Parent = space
				in.Value = tn
				if pn != nil {
					pn.Next = tn
				} else {
					space.Child = tn
				}
				pn = tn
			}
			in = in.Next

		default: // cmp == 0: name exists in both spaces
			if in.Op != Undeclared {
				if sn.Value != nil {
					return nil, fmt.Errorf("parameter %s has already been bound a value", QName(in))
				}
				sn.Value = Copy(in.Value)
				if nv, ok := in.Value.(*Name); ok {
					if _, err := InsertSpace(in, nv); err != nil {
						return nil, err
					}
				}
			} else {
				merged, err := InsertSpace(in, sn)
				if err != nil {
					return nil, err
				}
				sn.Child = merged.Child
				in.Value = sn
				pn = sn
			}
			in = in.Next
			sn = sn.Next
		}
	}
	return space, nil
}

// QName renders a fully-qualified name by walking Parent links,
// joining with ".", matching original_source/src/names.c's
// qname_print.
func QName(n *Name) string {
	if n == nil {
		return ""
	}
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.PVal != "" {
			parts = append([]string{cur.PVal}, parts...)
		}
	}
	return strings.Join(parts, ".")
}

// FullName renders QName plus a trailing '<type> marker, mirroring
// original_source/src/names.c's name_print.
func FullName(n *Name) string {
	s := QName(n)
	if n != nil && n.Op != nil && n.Op.Name != "" {
		s += "'" + n.Op.Name
	}
	return s
}

// CompareByAddress orders two names by pointer identity, matching
// original_source/src/names.c's name_compare — a documented
// non-deterministic, bug-for-bug property (spec.md §9): two runs of
// the same program can order equal-looking names differently. Kept
// as a distinct function (rather than the default) so lexcompare's
// instability is an explicit, named choice rather than an accident.
func CompareByAddress(n1, n2 *Name) int {
	if n1 == n2 {
		return 0
	}
	// Go pointers aren't ordered; approximate "address order" with
	// the target's identity hash via fmt, which is stable only
	// within a process — sufficient to reproduce the original's
	// non-deterministic-across-runs, stable-within-a-run behavior.
	a := fmt.Sprintf("%p", n1)
	b := fmt.Sprintf("%p", n2)
	if a < b {
		return -1
	}
	return 1
}
