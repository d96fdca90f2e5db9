// Package parser implements the attributed operator-precedence parser
// (spec.md §4.3): shift/reduce over a stack of operators and partial
// expressions, driven by live operator precedence and associativity
// rather than a fixed grammar, plus the outer loop that reads a whole
// rule (head, body, optional type tag) at a time.
//
// Grounded on original_source/parse.c in full: exp_parse (the
// shift/reduce loop, including the infix/unary overload-conversion
// logic) and parse (the top-level head/body/tag driver, BOE
// initialization, and per-rule name space setup).
package parser

import (
	"fmt"

	"bertrand/internal/expr"
	"bertrand/internal/lexer"
	"bertrand/internal/ops"
	"bertrand/internal/preprocess"
	"bertrand/internal/primitive"
	"bertrand/internal/source"
)

// Part selects which piece of a rule is being parsed (original_source/
// parse.c's HEAD/BODY).
type Part int

const (
	HeadPart Part = iota
	BodyPart
)

// ParsedRule is one fully-parsed rule, ready for internal/rules to
// turn into a database entry (original_source/parse.c's call to
// rule_build(head, body, rule_tag, rule_names)).
type ParsedRule struct {
	Head       expr.Node
	Body       expr.Node
	Tag        *ops.Op
	Names      *expr.Name
	LabelCount int
}

type frame struct {
	lx   *lexer.Lexer
	name string
}

// Parser reads rule-file source text (following #include chains) and
// produces ParsedRules. Not safe for concurrent use (spec.md §5,
// Non-goal: concurrent rewriting).
type Parser struct {
	table *ops.Table
	pp    *preprocess.Preprocessor
	src   *source.Stack

	frames []frame // include stack; last element is current

	boe *ops.Op

	globalNames *expr.Name
	ruleNames   *expr.Name
	labelCount  int

	// token lookahead, mirroring exp_parse's holdtoken/next_token.
	haveNext bool
	next     lexer.Token

	pstack []psEntry
}

type psEntry struct {
	isOper bool
	node   expr.Node
}

// New builds a Parser over the root source text. rootName is used only
// for diagnostics.
func New(table *ops.Table, pp *preprocess.Preprocessor, src *source.Stack, rootName, rootText string) *Parser {
	return &Parser{
		table:       table,
		pp:          pp,
		src:         src,
		frames:      []frame{{lx: lexer.New(table, rootText), name: rootName}},
		boe:         &ops.Op{Name: "BOE", Arity: ops.Outfix1},
		globalNames: expr.NewSpace(),
	}
}

func (p *Parser) curFrame() *frame { return &p.frames[len(p.frames)-1] }

// rawToken fetches one token from the current include frame, popping
// exhausted included files and resuming their parent, as file_push/
// file_pop manage original_source/prep.c's input stack.
func (p *Parser) rawToken() (lexer.Token, error) {
	for {
		f := p.curFrame()
		tok, err := f.lx.Next()
		if err != nil {
			return lexer.Token{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if tok.Type != lexer.EOF {
			return tok, nil
		}
		if len(p.frames) == 1 {
			return tok, nil // true end of input
		}
		p.frames = p.frames[:len(p.frames)-1]
	}
}

// scan returns the next non-directive token, transparently running any
// '#' directive lines encountered along the way (original_source/
// prep.c's preprocess(), invoked inline by the scanner whenever it
// sees '#' at the start of a line).
func (p *Parser) scan() (lexer.Token, error) {
	for {
		tok, err := p.rawToken()
		if err != nil {
			return lexer.Token{}, err
		}
		if tok.Type != lexer.HASH {
			return tok, nil
		}
		line := p.curFrame().lx.RestOfLine()
		res, err := p.pp.Process(line)
		if err != nil {
			return lexer.Token{}, fmt.Errorf("%s, line %d: %w", p.curFrame().name, tok.Line, err)
		}
		switch res.Kind {
		case preprocess.Include:
			resolved, contents, err := p.src.Resolve(res.IncludePath)
			if err != nil {
				return lexer.Token{}, err
			}
			p.frames = append(p.frames, frame{lx: lexer.New(p.table, string(contents)), name: resolved})
		case preprocess.Line:
			p.curFrame().lx.SetLine(res.LineNumber)
		}
		// op/type/primitive/trace/quiet/none: state already updated by
		// Process; loop around for the next real token.
	}
}

func (p *Parser) peek() (lexer.Token, error) {
	if !p.haveNext {
		tok, err := p.scan()
		if err != nil {
			return lexer.Token{}, err
		}
		p.next = tok
		p.haveNext = true
	}
	return p.next, nil
}

func (p *Parser) advance() (lexer.Token, error) {
	tok, err := p.peek()
	if err != nil {
		return lexer.Token{}, err
	}
	p.haveNext = false
	return tok, nil
}

func (p *Parser) push(node expr.Node, isOper bool) {
	p.pstack = append(p.pstack, psEntry{isOper: isOper, node: node})
}

func (p *Parser) top() *psEntry { return &p.pstack[len(p.pstack)-1] }
func (p *Parser) popN(n int)    { p.pstack = p.pstack[:len(p.pstack)-n] }

// findLop locates the operator entry reduce() should act on: the top
// of stack if it is already an operator, otherwise the one below a
// completed expression on top. Grounded on exp_parse's lop search.
func (p *Parser) findLop() (int, error) {
	if len(p.pstack) == 0 {
		return 0, fmt.Errorf("syntax error: empty parse stack")
	}
	idx := len(p.pstack) - 1
	if !p.pstack[idx].isOper {
		idx--
	}
	if idx < 0 || !p.pstack[idx].isOper {
		return 0, fmt.Errorf("syntax error: missing operator")
	}
	return idx, nil
}

// reduce pops the operator at ridx (and its operand(s), always found
// directly above and/or below it on the stack — see findLop) and
// replaces them with the completed expression. Grounded exactly on
// original_source/parse.c's reduce().
func (p *Parser) reduce(ridx int) error {
	rop := p.pstack[ridx].node.(*expr.Term)

	if rop.Op.Eval < 0 {
		switch -rop.Op.Eval {
		case 1: // throw away operator, typically for "()"
			if !rop.Op.Arity.IsUnary() {
				return fmt.Errorf("special reduce function 1 requires a unary operator, got %s", rop.Op.Name)
			}
			if ridx != len(p.pstack)-2 {
				return fmt.Errorf("unary operator %s has no argument", rop.Op.Name)
			}
			p.pstack = append(p.pstack[:ridx], p.pstack[ridx+1])
			return nil

		case 2: // label operator, typically for ":"
			if !rop.Op.Arity.IsBinary() {
				return fmt.Errorf("special label operator %s must be binary", rop.Op.Name)
			}
			if ridx != len(p.pstack)-2 {
				return fmt.Errorf("binary operator %s has no right argument", rop.Op.Name)
			}
			if ridx == 0 || p.pstack[ridx-1].isOper {
				return fmt.Errorf("binary operator %s has no left argument", rop.Op.Name)
			}
			name, ok := p.pstack[ridx-1].node.(*expr.Name)
			if !ok {
				return fmt.Errorf("special label operator requires a name for its left argument")
			}
			if name.Op != primitive.UndeclaredPrim {
				return fmt.Errorf("parameter %q may not be used as a label name", name.PVal)
			}
			right, ok := p.pstack[ridx+1].node.(*expr.Term)
			if !ok {
				return fmt.Errorf("special label operator requires a term for its right argument")
			}
			if right.Label != nil {
				return fmt.Errorf("multiple labels on a single expression")
			}
			p.labelCount++
			right.Label = name
			p.pstack = append(p.pstack[:ridx-1], p.pstack[ridx+1])
			return nil

		case 3: // negate a constant
			if !rop.Op.Arity.IsUnary() {
				return fmt.Errorf("special negation operator must be unary")
			}
			if ridx != len(p.pstack)-2 {
				return fmt.Errorf("unary operator %s has no argument", rop.Op.Name)
			}
			num, ok := p.pstack[ridx+1].node.(*expr.Num)
			if !ok {
				return fmt.Errorf("special negation operator requires a constant argument")
			}
			num.Value *= -1
			p.pstack = append(p.pstack[:ridx], p.pstack[ridx+1])
			return nil

		case 4, 5: // "don't evaluate" ([]) and "simplify expression":
			// no parse-time action, as in original_source/parse.c's
			// reduce() (no case body beyond `break`): the operator is
			// reduced like an ordinary one below, and its code is
			// honored at rewrite time.

		default:
			return fmt.Errorf("unknown parser reduce function %d", rop.Op.Eval)
		}
	}

	switch {
	case rop.Op.Arity.IsBinary():
		if ridx != len(p.pstack)-2 {
			return fmt.Errorf("binary operator %s has no right argument", rop.Op.Name)
		}
		if ridx == 0 || p.pstack[ridx-1].isOper {
			return fmt.Errorf("binary operator %s has no left argument", rop.Op.Name)
		}
		rop.Right = p.pstack[ridx+1].node
		rop.Left = p.pstack[ridx-1].node
		p.pstack[ridx-1] = psEntry{node: rop}
		p.popN(2)

	case rop.Op.Arity == ops.Prefix:
		if ridx != len(p.pstack)-2 {
			return fmt.Errorf("prefix operator %s has no argument", rop.Op.Name)
		}
		rop.Right = p.pstack[ridx+1].node
		p.pstack[ridx] = psEntry{node: rop}
		p.popN(1)

	case rop.Op.Arity == ops.Postfix:
		if ridx == 0 || p.pstack[ridx-1].isOper {
			return fmt.Errorf("postfix operator %s has no left argument", rop.Op.Name)
		}
		rop.Left = p.pstack[ridx-1].node
		p.pstack[ridx-1] = psEntry{node: rop}
		p.popN(1)

	case rop.Op.Arity == ops.Outfix1:
		if ridx != len(p.pstack)-2 {
			return fmt.Errorf("outfix operator %s has no argument", rop.Op.Name)
		}
		rop.Right = p.pstack[ridx+1].node
		p.pstack[ridx] = psEntry{node: rop}
		p.popN(1)

	default:
		return fmt.Errorf("don't know how to reduce operator %s", rop.Op.Name)
	}
	return nil
}

// parseExpr parses one head or body expression, returning its root.
// Grounded on original_source/parse.c's exp_parse.
func (p *Parser) parseExpr(part Part) (expr.Node, error) {
	p.pstack = nil
	p.push(&expr.Term{Op: p.boe}, true)

	for {
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case lexer.EOF:
			return nil, fmt.Errorf("end of input encountered before end of expression")

		case lexer.LBRACE:
			if part == HeadPart {
				return p.finish()
			}
			return nil, fmt.Errorf("'{' found in body of rule")

		case lexer.RBRACE:
			if part == BodyPart {
				return p.finish()
			}
			return nil, fmt.Errorf("'}' found, but not in body of rule")

		case lexer.IDENT:
			if err := p.handleIdent(part, tok); err != nil {
				return nil, err
			}

		case lexer.DOT:
			if part == HeadPart {
				return nil, fmt.Errorf("global names are illegal in the head of a rule")
			}
			if err := p.handleGlobal(); err != nil {
				return nil, err
			}

		case lexer.NUMBER:
			if !p.top().isOper {
				return nil, fmt.Errorf("missing operator before number %v", tok.Number)
			}
			var op *ops.Op
			switch {
			case tok.Number > 0:
				op = primitive.PNumPrim
			case tok.Number < 0:
				op = primitive.NNumPrim
			default:
				op = primitive.ZNumPrim
			}
			p.push(&expr.Num{Op: op, Value: tok.Number}, false)

		case lexer.STRING:
			if !p.top().isOper {
				return nil, fmt.Errorf("missing operator before string %q", tok.Lexeme)
			}
			p.push(&expr.Str{Op: primitive.StrPrim, Value: expr.Intern(tok.Lexeme)}, false)

		case lexer.OPER:
			if err := p.handleOper(tok); err != nil {
				return nil, err
			}

		case lexer.TYPE:
			if part == BodyPart {
				return nil, fmt.Errorf("types are not allowed in the body of a rule")
			}
			return nil, fmt.Errorf("type '%s with no parameter", tok.Lexeme)

		default:
			return nil, fmt.Errorf("illegal token %q in rule", tok.Lexeme)
		}
	}
}

// handleIdent implements exp_parse's IDENT case: in HEAD this declares
// a parameter (optionally typed by a following TYPE token, via
// lookahead); in BODY it resolves a (possibly dotted) local name.
func (p *Parser) handleIdent(part Part, tok lexer.Token) error {
	if !p.top().isOper {
		return fmt.Errorf("missing operator before identifier %q", tok.Lexeme)
	}
	name := tok.Lexeme

	if part == HeadPart {
		lookahead, err := p.peek()
		if err != nil {
			return err
		}
		var cnode *expr.Name
		if lookahead.Type == lexer.DOT {
			return fmt.Errorf("qualified names are illegal in the head of a rule: %s", name)
		}
		if lookahead.Type == lexer.TYPE {
			p.advance()
			cnode, err = expr.Put(name, p.ruleNames, lookahead.Op)
		} else {
			cnode, err = expr.Put(name, p.ruleNames, primitive.UntypedPrim)
		}
		if err != nil {
			return err
		}
		if cnode.Refs != 2 {
			return fmt.Errorf("reuse of parameter name %q in head of rule", name)
		}
		p.push(cnode, false)
		return nil
	}

	// BODY: walk any '.'-qualified chain, descending into nested spaces.
	space := p.ruleNames
	for {
		lookahead, err := p.peek()
		if err != nil {
			return err
		}
		if lookahead.Type != lexer.DOT {
			break
		}
		p.advance()
		space, err = expr.Put(name, space, primitive.UndeclaredPrim)
		if err != nil {
			return err
		}
		next, err := p.advance()
		if err != nil {
			return err
		}
		if next.Type != lexer.IDENT {
			return fmt.Errorf("expected an identifier following '.', got %q", next.Lexeme)
		}
		name = next.Lexeme
	}
	cnode, err := expr.Put(name, space, primitive.UndeclaredPrim)
	if err != nil {
		return err
	}
	p.push(cnode, false)
	return nil
}

// handleGlobal implements exp_parse's '.' case: a name rooted at the
// global name space rather than the rule-local one.
func (p *Parser) handleGlobal() error {
	if !p.top().isOper {
		return fmt.Errorf("missing operator before global name")
	}
	space := p.globalNames
	for {
		next, err := p.advance()
		if err != nil {
			return err
		}
		if next.Type != lexer.IDENT {
			return fmt.Errorf("expected an identifier following '.', got %q", next.Lexeme)
		}
		name := next.Lexeme
		lookahead, err := p.peek()
		if err != nil {
			return err
		}
		if lookahead.Type == lexer.DOT {
			p.advance()
			space, err = expr.Put(name, space, primitive.UndeclaredPrim)
			if err != nil {
				return err
			}
			continue
		}
		cnode, err := expr.Put(name, space, primitive.UndeclaredPrim)
		if err != nil {
			return err
		}
		p.push(cnode, false)
		return nil
	}
}

// handleOper implements exp_parse's OPER case: the shift/reduce
// precedence-driven core, including binary/unary overload resolution
// and outfix matching.
func (p *Parser) handleOper(tok lexer.Token) error {
	cnode := &expr.Term{Op: tok.Op}

	if cnode.Op.Arity == ops.Nullary {
		p.push(cnode, false)
		return nil
	}
	if cnode.Op.Arity == ops.Outfix1 || cnode.Op.Arity == ops.Prefix {
		p.push(cnode, true)
		return nil
	}

	for {
		lidx, err := p.findLop()
		if err != nil {
			return err
		}
		lop := p.pstack[lidx].node.(*expr.Term)
		lopIsTop := lidx == len(p.pstack)-1

		if lopIsTop && lop.Op.Arity.IsBinary() && cnode.Op.Arity.IsBinary() {
			cnodeCanUnary := cnode.Op.Other != nil && cnode.Op.Other.Arity == ops.Prefix
			lopCanUnary := lop.Op.Other != nil && lop.Op.Other.Arity == ops.Postfix
			handled := false
			switch {
			case cnodeCanUnary && lopCanUnary:
				if lop.Op.Precedence > cnode.Op.Precedence {
					lop.Op = lop.Op.Other
					if err := p.reduce(lidx); err != nil {
						return err
					}
					continue
				}
				cnode.Op = cnode.Op.Other
				handled = true
			case cnodeCanUnary:
				cnode.Op = cnode.Op.Other
				handled = true
			case lopCanUnary:
				lop.Op = lop.Op.Other
				if err := p.reduce(lidx); err != nil {
					return err
				}
				continue
			default:
				return fmt.Errorf("syntax error: missing operand between %s and %s", lop.Op.Name, cnode.Op.Name)
			}
			if handled {
				break
			}
		}

		if cnode.Op.Arity.IsBinary() && lopIsTop && (lop.Op.Arity == ops.Prefix || lop.Op.Arity == ops.Outfix1) {
			if cnode.Op.Other != nil && cnode.Op.Other.Arity == ops.Prefix {
				cnode.Op = cnode.Op.Other
				break
			}
			return fmt.Errorf("syntax error: infix operator %s is missing its left operand", cnode.Op.Name)
		}

		if cnode.Op.Arity == ops.Outfix2 {
			if lop.Op.Arity == ops.Outfix1 {
				if cnode.Op.Other == lop.Op {
					if err := p.reduce(lidx); err != nil {
						return err
					}
					break
				}
				return fmt.Errorf("outfix operators %s and %s do not match", lop.Op.Name, cnode.Op.Name)
			}
			if err := p.reduce(lidx); err != nil {
				return err
			}
			continue
		}

		switch {
		case cnode.Op.Precedence < lop.Op.Precedence ||
			(cnode.Op.Precedence == lop.Op.Precedence && cnode.Op.Arity == ops.Left):
			if err := p.reduce(lidx); err != nil {
				return err
			}
		case lop.Op.Arity != ops.Outfix1 && cnode.Op.Precedence == lop.Op.Precedence && cnode.Op.Arity == ops.Nonassoc:
			return fmt.Errorf("%s and %s are nonassociative and cannot be combined", cnode.Op.Name, lop.Op.Name)
		default:
			goto shiftIt
		}
	}

shiftIt:
	if cnode.Op.Arity != ops.Outfix2 {
		p.push(cnode, true)
	}
	return nil
}

// finish reduces whatever remains on the parse stack down to the BOE
// marker, once end-of-expression ('{' or '}') has been seen.
func (p *Parser) finish() (expr.Node, error) {
	for {
		idx := len(p.pstack) - 1
		for idx >= 0 && !p.pstack[idx].isOper {
			idx--
		}
		if idx < 0 {
			return nil, fmt.Errorf("syntax error: missing operator")
		}
		if t, ok := p.pstack[idx].node.(*expr.Term); ok && t.Op == p.boe {
			if idx == len(p.pstack)-2 {
				if err := p.reduce(idx); err != nil {
					return nil, err
				}
			}
			break
		}
		if err := p.reduce(idx); err != nil {
			return nil, err
		}
	}
	if len(p.pstack) != 1 {
		return nil, fmt.Errorf("syntax error: unreduced tokens left in expression")
	}
	result := p.pstack[0].node
	// Drop the BOE sentinel; the caller never sees it.
	if t, ok := result.(*expr.Term); ok && t.Op == p.boe {
		if t.Right == nil {
			return nil, fmt.Errorf("empty expression")
		}
		result = t.Right
	}
	p.pstack = nil
	return result, nil
}

// Parse reads the entire input (following #include chains) as a
// sequence of rules, each a HEAD expression, a BODY expression and an
// optional type tag. Grounded on original_source/parse.c's parse().
func (p *Parser) Parse() ([]ParsedRule, error) {
	var rules []ParsedRule
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.EOF {
			return rules, nil
		}

		p.ruleNames = &expr.Name{Op: primitive.UndeclaredPrim, Refs: 1}
		p.labelCount = 0

		head, err := p.parseExpr(HeadPart)
		if err != nil {
			return nil, err
		}

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.EOF {
			return nil, fmt.Errorf("end of input encountered before end of rule")
		}

		body, err := p.parseExpr(BodyPart)
		if err != nil {
			return nil, err
		}

		var tag *ops.Op
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.TYPE {
			p.advance()
			tag = tok.Op
		}

		rules = append(rules, ParsedRule{Head: head, Body: body, Tag: tag, Names: p.ruleNames, LabelCount: p.labelCount})
	}
}
