// Package rules implements the Rule Database (spec component E) and
// the Specificity Comparator (spec component I): a total order over
// patterns used to keep, for each head operator, a list of rules
// sorted from most to least specific, so the rewrite engine always
// tries the most specific match first.
//
// Grounded on original_source/rules.c in full: more_specific (the
// comparator) and rule_build (insertion, kept here as a Database
// method rather than a mutation of the operator itself, since Go
// can't give ops.Op a field of a type rules.Rule without an import
// cycle).
package rules

import (
	"fmt"
	"sync"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
	"bertrand/internal/primitive"
)

// Rule is one rewrite rule: rewrite an expression matching Head into a
// (possibly instantiated) copy of Body. Space holds the rule-local
// parameter/local name space built while parsing; Size is the number
// of distinct label names used in the rule (original_source/rules.c's
// RULE.size, set from label_count).
type Rule struct {
	Head  expr.Node
	Body  expr.Node
	Tag   *ops.Op
	Space *expr.Name
	Size  int

	next *Rule
}

// Database maps each operator to the list of rules whose head is
// rooted at that operator, ordered from most to least specific.
type Database struct {
	mu     sync.Mutex
	byHead map[*ops.Op]*Rule
}

func NewDatabase() *Database {
	return &Database{byHead: map[*ops.Op]*Rule{}}
}

// Lookup returns the most-specific-first rule chain for op, or nil if
// none have been registered.
func (d *Database) Lookup(op *ops.Op) *Rule {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byHead[op]
}

// Next returns the rule following r in its chain, or nil.
func (r *Rule) Next() *Rule {
	if r == nil {
		return nil
	}
	return r.next
}

// Build registers a new rule, keyed by the head's root operator, kept
// in strict most-specific-first order. Grounded exactly on
// original_source/rules.c's rule_build.
func (d *Database) Build(head, body expr.Node, tag *ops.Op, names *expr.Name, labelCount int) (*Rule, error) {
	term, ok := head.(*expr.Term)
	if !ok {
		return nil, fmt.Errorf("head of rule must be an expression")
	}

	rr := &Rule{Head: head, Body: body, Tag: tag, Space: names, Size: labelCount}

	d.mu.Lock()
	defer d.mu.Unlock()

	headOp := term.Op
	cur := d.byHead[headOp]
	if cur == nil {
		d.byHead[headOp] = rr
		return rr, nil
	}

	var prev *Rule
	for c := cur; c != nil; c = c.next {
		if MoreSpecific(rr.Head, c.Head) == 1 {
			rr.next = c
			if prev != nil {
				prev.next = rr
			} else {
				d.byHead[headOp] = rr
			}
			return rr, nil
		}
		prev = c
	}
	prev.next = rr
	return rr, nil
}

// MoreSpecific compares two pattern expressions with the same
// structural shape (both are heads, or corresponding subtrees of two
// heads being compared), returning 1 if a is more specific than b, -1
// if b is more specific than a, and 0 only when they are the very same
// expression shape (spec.md's total order requirement: equally
// specific iff identical). Grounded exactly on
// original_source/rules.c's more_specific.
func MoreSpecific(a, b expr.Node) int {
	opa := a.NodeOp()
	opb := b.NodeOp()

	if opa != opb {
		if opb == primitive.UntypedPrim {
			return 1
		}
		if opa == primitive.UntypedPrim {
			return -1
		}
		for s := opa.Super; s != nil; s = s.Super {
			if s == opb {
				return 1
			}
		}
		for s := opb.Super; s != nil; s = s.Super {
			if s == opa {
				return -1
			}
		}
		if opb.Arity == ops.Name && opa.Arity != ops.Name {
			return 1
		}
		if opa.Arity == ops.Name && opb.Arity != ops.Name {
			return -1
		}
		if opa.Precedence > opb.Precedence {
			return 1
		}
		if opa.Precedence < opb.Precedence {
			return -1
		}
		if opa.ID > opb.ID {
			return 1
		}
		return -1
	}

	// Same operator: compare corresponding children, the left one
	// (binary/postfix) first and then the right one (binary/prefix/
	// outfix), returning the first non-zero result.
	if opa.Arity == ops.Nullary {
		return 0
	}
	ta, aok := a.(*expr.Term)
	tb, bok := b.(*expr.Term)
	if !aok || !bok {
		return 0
	}
	if opa.Arity.IsBinary() || opa.Arity.IsUnary() {
		if opa.Arity.IsBinary() || opa.Arity == ops.Postfix {
			if c := MoreSpecific(ta.Left, tb.Left); c != 0 || opa.Arity == ops.Postfix {
				return c
			}
		}
		return MoreSpecific(ta.Right, tb.Right)
	}
	return 0
}
