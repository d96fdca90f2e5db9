// Package printer renders an expression tree back to the surface
// syntax it was parsed from: infix for BINARY, prefix/postfix/outfix
// for UNARY, with labels rendered as "name:" before the term.
// Structurally modeled on the teacher's internal/formatter.Formatter
// (a strings.Builder-backed, switch-driven recursive printer), but
// its traversal and spacing rules are grounded on
// original_source/expr.c's expr_print: an operator whose print-name
// starts with a letter gets surrounding spaces, a symbolic one
// doesn't; only BINARY and POSTFIX print a left operand; only
// POSTFIX omits the right operand; OUTFIX1 omits the opening "(" and
// prints its matching Other operator's name instead of ")".
package printer

import (
	"strconv"
	"strings"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
)

// Printer accumulates the rendered text of one or more expressions.
type Printer struct {
	out strings.Builder
}

// New returns a ready-to-use Printer.
func New() *Printer { return &Printer{} }

// String returns everything written so far.
func (p *Printer) String() string { return p.out.String() }

// Reset clears the accumulated output so the Printer can be reused.
func (p *Printer) Reset() { p.out.Reset() }

// Print renders n, in expr_print's inorder style, appending to the
// Printer's buffer.
func (p *Printer) Print(n expr.Node) {
	switch v := n.(type) {
	case nil:
		return

	case *expr.Str:
		p.out.WriteByte('"')
		p.out.WriteString(v.Value)
		p.out.WriteByte('"')

	case *expr.Num:
		p.out.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))

	case *expr.Name:
		p.printName(v)

	case *expr.Term:
		p.printTerm(v)
	}
}

func (p *Printer) printName(n *expr.Name) {
	p.out.WriteString(expr.FullName(n))
}

func (p *Printer) printOperator(name string) {
	if name != "" && isAlpha(name[0]) {
		p.out.WriteByte(' ')
		p.out.WriteString(name)
		p.out.WriteByte(' ')
	} else {
		p.out.WriteString(name)
	}
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func (p *Printer) printTerm(t *expr.Term) {
	if t.Op.Arity == ops.Nullary {
		if t.Label != nil {
			p.printName(t.Label)
			p.out.WriteByte(':')
		}
		p.printOperator(t.Op.Name)
		return
	}

	if t.Label != nil {
		p.printName(t.Label)
		p.out.WriteByte(':')
	}
	if t.Op.Arity != ops.Outfix1 {
		p.out.WriteByte('(')
	}
	if t.Op.Arity.IsBinary() || t.Op.Arity == ops.Postfix {
		p.Print(t.Left)
	}
	p.printOperator(t.Op.Name)
	if t.Op.Arity != ops.Postfix {
		p.Print(t.Right)
	}
	if t.Op.Arity == ops.Outfix1 {
		if t.Op.Other != nil {
			p.out.WriteString(t.Op.Other.Name)
		}
	} else {
		p.out.WriteByte(')')
	}
}

// Format renders n and returns the result as a standalone string,
// without needing to construct a Printer.
func Format(n expr.Node) string {
	p := New()
	p.Print(n)
	return p.String()
}
