// Package walk implements the Rewrite Engine (spec component G,
// spec.md §4.7): an iterative tree walk, driven by an explicit work
// stack rather than recursion, that finds the first redex in a
// subject expression, rewrites it, and returns the new subject. The
// outer "reduce to normal form" loop re-invokes Step until it reports
// no rewrite happened.
//
// Grounded on original_source/src/match.c's walk in full, including
// its WR/POP stack discipline and its explicit exclusion of eval code
// -4 ("do not evaluate") subtrees from traversal.
package walk

import (
	"fmt"

	"bertrand/internal/expr"
	"bertrand/internal/match"
	"bertrand/internal/ops"
	"bertrand/internal/primitive"
	"bertrand/internal/rules"
)

// action records what remains to be done at a stack frame when the
// walker climbs back up to it: walkRight means the left subtree has
// been visited and the right one has not; pop means both subtrees (or
// the single child, for a unary node) have already been visited.
// Mirrors original_source/src/match.c's WR/POP constants.
type action int

const (
	walkRight action = iota + 1
	pop
)

type frame struct {
	node   *expr.Term
	action action
}

func hasArg(op *ops.Op) bool {
	return op.Arity.IsUnary() || op.Arity.IsBinary()
}

// Result reports the outcome of one Step.
type Result struct {
	Subject expr.Node
	Rewrote bool // a redex was found and replaced (original's "learn" flag)
	Bound   bool // the bind primitive fired, requiring Update over the whole subject
}

// Step performs exactly one rewrite step: it walks subject looking
// for the first redex with a matching rule, rewrites it in place, and
// returns the new subject. If no redex exists, Result.Subject equals
// subject unchanged and Rewrote is false. The caller (a REPL or batch
// driver) re-invokes Step until Rewrote is false, per spec.md §4.7's
// "outer driver loops ... repeat".
func Step(db *rules.Database, m *primitive.Machine, subject expr.Node) (Result, error) {
	cn := subject
	var stack []frame

	for {
		if name, ok := cn.(*expr.Name); ok && name.Value != nil {
			return Result{}, fmt.Errorf("walk: found loose bound variable %q in subject expression", expr.FullName(name))
		}

		rule, err := match.Find(db, cn)
		if err != nil {
			return Result{}, err
		}
		if rule != nil {
			return rewriteAt(m, subject, stack, cn.(*expr.Term), rule)
		}

		term, isTerm := cn.(*expr.Term)
		if !isTerm || !hasArg(term.Op) || term.Op.Eval == -4 {
			// Terminal node (or an excluded subtree): climb the stack
			// until a frame still has a right child to visit.
			unwound := false
			for len(stack) > 0 {
				last := len(stack) - 1
				top := stack[last]
				stack = stack[:last]
				if top.action != pop {
					stack = append(stack, frame{node: top.node, action: pop})
					cn = top.node.Right
					unwound = true
					break
				}
			}
			if !unwound {
				return Result{Subject: subject}, nil
			}
			continue
		}

		if term.Op.Arity.IsBinary() {
			stack = append(stack, frame{node: term, action: walkRight})
			cn = term.Left
		} else {
			stack = append(stack, frame{node: term, action: pop})
			if term.Op.Arity == ops.Postfix {
				cn = term.Left
			} else {
				cn = term.Right // PREFIX and OUTFIX1
			}
		}
	}
}

// rewriteAt performs the actual redex replacement once a match has
// been found, mirroring the body of original_source/src/match.c's
// walk from "found a match" onward.
func rewriteAt(m *primitive.Machine, subject expr.Node, stack []frame, cn *expr.Term, rule *rules.Rule) (Result, error) {
	if cn.Label != nil {
		if rule.Tag != nil {
			cn.Label.Op = rule.Tag
		} else {
			cn.Label.Op = primitive.UntypedPrim
		}
		if _, err := expr.InsertSpace(rule.Space, cn.Label); err != nil {
			return Result{}, err
		}
	} else {
		root := expr.NewSpace()
		merged, err := expr.InsertSpace(rule.Space, root)
		if err != nil {
			return Result{}, err
		}
		expr.FreeName(merged) // root of a disjoint space is a dummy node
	}

	var ib expr.Node
	bound := false
	if rule.Body.NodeOp().Eval > 0 {
		out, didBind, err := m.Execute(rule.Body.NodeOp().Eval, cn)
		if err != nil {
			return Result{}, err
		}
		ib, bound = out, didBind
	} else {
		out, err := match.Instantiate(rule.Body)
		if err != nil {
			return Result{}, err
		}
		ib = out
	}

	ib = expr.Update(ib)

	if len(stack) > 0 {
		parent := stack[len(stack)-1]
		if parent.action == walkRight || parent.node.Op.Arity == ops.Postfix {
			parent.node.Left = ib
		} else {
			parent.node.Right = ib
		}
	} else {
		subject = ib
	}

	if bound {
		subject = expr.Update(subject)
	}

	return Result{Subject: subject, Rewrote: true, Bound: bound}, nil
}

// Normalize repeatedly steps subject until no further rewrite occurs,
// returning the normal form. This is the "outer driver loop" spec.md
// §4.7 describes in prose rather than the primitive building block
// itself, so callers that want to observe or trace each individual
// step should call Step directly instead.
func Normalize(db *rules.Database, m *primitive.Machine, subject expr.Node) (expr.Node, error) {
	for {
		res, err := Step(db, m, subject)
		if err != nil {
			return nil, err
		}
		if !res.Rewrote {
			return res.Subject, nil
		}
		subject = res.Subject
	}
}
