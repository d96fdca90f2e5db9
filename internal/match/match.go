// Package match implements the Matcher (spec component F, spec.md
// §4.6) and Body Instantiation (spec.md §4.9): structural matching of
// a rule's pattern against a subject expression, with the destructive
// parameter-binding side effect the rewrite engine (internal/walk)
// later consumes.
//
// Grounded on original_source/src/match.c in full: match, match_types,
// match_sub, and instantiate.
package match

import (
	"fmt"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
	"bertrand/internal/primitive"
	"bertrand/internal/rules"
)

// Find returns the first rule in db whose head structurally matches
// exp, or nil if none do. Only term-arity expressions can be redexes
// (original_source/src/match.c's match checks exp->op->arity &
// OP_TERM); rule chains are already kept most-specific-first
// (internal/rules.Database.Build), so the first structural match is
// also the most specific one.
func Find(db *rules.Database, exp expr.Node) (*rules.Rule, error) {
	term, ok := exp.(*expr.Term)
	if !ok {
		return nil, nil
	}
	for r := db.Lookup(term.Op); r != nil; r = r.Next() {
		matched, err := Sub(r.Head, exp)
		if err != nil {
			return nil, err
		}
		if matched {
			return r, nil
		}
	}
	return nil, nil
}

// Types reports whether exp's operator is guard, or a transitive
// subtype of it (original_source/src/match.c's match_types).
func Types(guard *ops.Op, exp expr.Node) bool {
	return exp.NodeOp().IsSubtypeOf(guard)
}

// Sub matches head (a pattern, possibly containing parameter names)
// against exp, binding each parameter Name's Value as a side effect
// on success. Grounded exactly on original_source/src/match.c's
// match_sub.
func Sub(head, exp expr.Node) (bool, error) {
	hop := head.NodeOp()

	switch hop.Arity {
	case ops.Str:
		hs, ok := head.(*expr.Str)
		es, ok2 := exp.(*expr.Str)
		return ok && ok2 && exp.NodeOp().Arity == ops.Str && hs.Value == es.Value, nil

	case ops.Num:
		hn, ok := head.(*expr.Num)
		en, ok2 := exp.(*expr.Num)
		return ok && ok2 && exp.NodeOp().Arity == ops.Num && hn.Value == en.Value, nil

	case ops.Name: // parameter
		hn, ok := head.(*expr.Name)
		if !ok {
			return false, fmt.Errorf("match: name-arity pattern node is not *expr.Name")
		}
		if hop == primitive.UntypedPrim || Types(hop, exp) {
			hn.Value = exp
			return true, nil
		}
		return false, nil

	case ops.Nullary:
		return exp.NodeOp().Arity == ops.Nullary && hop == exp.NodeOp(), nil
	}

	if hop.Arity.IsUnary() {
		if hop.Arity != exp.NodeOp().Arity || hop != exp.NodeOp() {
			return false, nil
		}
		ht, ok := head.(*expr.Term)
		et, ok2 := exp.(*expr.Term)
		if !ok || !ok2 {
			return false, fmt.Errorf("match: unary pattern node is not *expr.Term")
		}
		if hop.Arity == ops.Postfix {
			return Sub(ht.Left, et.Left)
		}
		return Sub(ht.Right, et.Right) // PREFIX and OUTFIX
	}

	if hop.Arity.IsBinary() {
		if !exp.NodeOp().Arity.IsBinary() || hop != exp.NodeOp() {
			return false, nil
		}
		ht, ok := head.(*expr.Term)
		et, ok2 := exp.(*expr.Term)
		if !ok || !ok2 {
			return false, fmt.Errorf("match: binary pattern node is not *expr.Term")
		}
		if ok, err := Sub(ht.Left, et.Left); err != nil || !ok {
			return ok, err
		}
		return Sub(ht.Right, et.Right)
	}

	return false, fmt.Errorf("match: unknown arity %s during pattern match", hop.Arity)
}

// Instantiate builds a fresh copy of a rule body: term structure is
// cloned recursively, numbers and strings are shallow-cloned (strings
// aliased, matching the original's documented hazard), and OP-NAME
// nodes are replaced by a copy of their bound value — the parameter's
// matched subexpression, or a local name's freshly-merged name node
// (see internal/expr.InsertSpace). Grounded exactly on
// original_source/src/match.c's instantiate.
func Instantiate(body expr.Node) (expr.Node, error) {
	if body == nil {
		return nil, fmt.Errorf("match: cannot instantiate a nil rule body")
	}
	if body.NodeOp() == nil {
		return nil, fmt.Errorf("match: missing operator in instantiate")
	}

	switch v := body.(type) {
	case *expr.Term:
		te := &expr.Term{Op: v.Op}
		if v.Label != nil {
			lv, ok := v.Label.Value.(*expr.Name)
			if !ok {
				return nil, fmt.Errorf("match: labeled term's name has no merged namespace value")
			}
			te.Label = expr.CopyName(lv)
		}
		if v.Right != nil {
			r, err := Instantiate(v.Right)
			if err != nil {
				return nil, err
			}
			te.Right = r
		}
		if v.Left != nil {
			l, err := Instantiate(v.Left)
			if err != nil {
				return nil, err
			}
			te.Left = l
		}
		return te, nil

	case *expr.Num:
		return &expr.Num{Op: v.Op, Value: v.Value}, nil

	case *expr.Str:
		return &expr.Str{Op: v.Op, Value: v.Value}, nil

	case *expr.Name: // parameter or local name
		return expr.Copy(v.Value), nil

	default:
		return nil, fmt.Errorf("match: invalid operator arity %s in instantiate", body.NodeOp().Arity)
	}
}
