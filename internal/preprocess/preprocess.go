// Package preprocess interprets the '#'-directive statements of
// spec.md §6: #op/#operator, #type, #primitive, #include/#load,
// #line, #trace, #quiet. Grounded on original_source/prep.c in full.
//
// Directive lines are tokenized independently of internal/lexer's
// main token stream: at the point a directive declares a brand new
// operator, that operator cannot yet be looked up by the
// operator-table-aware scanner, so original_source/prep.c's
// token_get uses a plain whitespace/quote-delimited split instead —
// this package does the same.
package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"bertrand/internal/ops"
	"bertrand/internal/source"
)

// Kind identifies which directive a line contained.
type Kind int

const (
	None Kind = iota
	Include
	Load
	Line
	Trace
	Quiet
)

// Result reports the effect of processing one directive line. Include
// carries the raw path so the caller (the lexer/parser driver, which
// owns the file stack) can resolve and push it via internal/source;
// everything else has already been fully applied to the operator
// table or the Preprocessor's own state by the time Process returns.
type Result struct {
	Kind        Kind
	IncludePath string
	LineNumber  int
}

// Preprocessor mutates a live operator table and tracks trace
// verbosity, mirroring the globals original_source/prep.c closes
// over (single_op/double_op/name_op/type_op, and verbose).
type Preprocessor struct {
	Table *ops.Table
	Trace int
}

func New(table *ops.Table) *Preprocessor {
	return &Preprocessor{Table: table}
}

// tokenize splits a directive line (the text after '#') into
// whitespace-delimited tokens, treating a double-quoted run as one
// token (spec.md §6: "If a file name contains spaces, it should be
// enclosed in double quotes"), and a bare ".." as an end-of-statement
// marker (original_source/prep.c's token_get comment handling).
func tokenize(line string) []string {
	var toks []string
	i, n := 0, len(line)
	for i < n {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		if line[i] == '"' {
			j := i + 1
			for j < n && line[j] != '"' {
				j++
			}
			toks = append(toks, line[i+1:j])
			if j < n {
				j++
			}
			i = j
			continue
		}
		if strings.HasPrefix(line[i:], "..") {
			break
		}
		j := i
		for j < n && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		toks = append(toks, line[i:j])
		i = j
	}
	return toks
}

// Process interprets one directive line (text following the leading
// '#', not including it). Grounded on original_source/prep.c's
// preprocess().
func (p *Preprocessor) Process(line string) (Result, error) {
	toks := tokenize(line)
	if len(toks) == 0 {
		return Result{}, nil // null statement, ignore
	}
	kw, rest := toks[0], toks[1:]

	switch kw {
	case "op", "operator":
		return Result{}, p.opDefine(rest)
	case "type":
		return Result{}, p.typeDefine(rest)
	case "primitive":
		return Result{}, p.primitiveDefine(rest)
	case "include":
		if len(rest) == 0 {
			return Result{}, fmt.Errorf("no include file name specified")
		}
		return Result{Kind: Include, IncludePath: rest[0]}, nil
	case "load":
		return Result{}, fmt.Errorf("#load not implemented")
	case "line":
		if len(rest) == 0 {
			return Result{}, fmt.Errorf("#line requires a line number")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return Result{}, fmt.Errorf("#line: %w", err)
		}
		return Result{Kind: Line, LineNumber: n}, nil
	case "trace":
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err == nil {
				p.Trace = n
				return Result{Kind: Trace}, nil
			}
		}
		p.Trace = 1
		return Result{Kind: Trace}, nil
	case "quiet":
		p.Trace = 0
		return Result{Kind: Quiet}, nil
	default:
		return Result{}, fmt.Errorf("invalid preprocessor statement keyword: #%s", kw)
	}
}

var arityWords = map[string]ops.Arity{
	"left":            ops.Left,
	"right":           ops.Right,
	"prefix":          ops.Prefix,
	"postfix":         ops.Postfix,
	"nullary":         ops.Nullary,
	"nonassoc":        ops.Nonassoc,
	"nonassociative":  ops.Nonassoc,
	"non":             ops.Nonassoc,
	"outfix":          ops.Outfix1,
	"matchfix":        ops.Outfix1,
}

// noOpWords are accepted but don't change anything, matching
// original_source/prep.c's op_define (associative/precedence/
// supertype are recognized as bare keywords with no effect — the
// real supertype and precedence values come from '-prefixed and
// digit tokens respectively).
var noOpWords = map[string]bool{"associative": true, "precedence": true, "supertype": true}

// opDefine implements #op, grounded on original_source/prep.c's
// op_define: token-by-token classification of arity/associativity
// keywords, a digit-string precedence, a '-prefixed supertype name,
// a #-prefixed eval code, and one or two bare operator names.
func (p *Preprocessor) opDefine(toks []string) error {
	var arity ops.Arity
	haveArity := false
	precedence := -1
	var supertype string
	evalSet := false
	eval := 0
	var names []string

	isUnaryWord := false
	isBinaryWord := false

	for _, tok := range toks {
		if tok == "" {
			continue
		}
		switch {
		case tok == "unary":
			isUnaryWord = true
		case tok == "infix", tok == "binary":
			isBinaryWord = true
		case arityWords[tok] != 0:
			arity = arityWords[tok]
			haveArity = true
		case noOpWords[tok]:
			// recognized, no effect
		case tok[0] == '\'':
			supertype = tok[1:]
		case tok[0] == '#':
			n, err := strconv.Atoi(tok[1:])
			if err != nil || n == 0 {
				return fmt.Errorf("invalid parser reduce function %q", tok)
			}
			eval = -n
			evalSet = true
		case isDigits(tok):
			n, err := strconv.Atoi(tok)
			if err != nil {
				return fmt.Errorf("invalid precedence %q", tok)
			}
			precedence = clampPrecedence(n)
		default:
			names = append(names, tok)
		}
	}

	if !haveArity {
		if isUnaryWord {
			arity = ops.Prefix
		} else if isBinaryWord {
			arity = ops.Nonassoc
		} else if len(names) == 2 {
			arity = ops.Outfix1
		} else {
			arity = ops.Nullary
		}
	} else if arity == ops.Unary {
		arity = ops.Prefix
	} else if arity == ops.Binary {
		arity = ops.Nonassoc
	}

	if len(names) == 0 {
		return fmt.Errorf("#op: no operator name given")
	}
	if arity == ops.Outfix1 && len(names) != 2 {
		return fmt.Errorf("#op: outfix operator requires two names")
	}
	if arity != ops.Outfix1 && len(names) != 1 {
		return fmt.Errorf("#op: too many operator names given")
	}
	if precedence >= 0 && (arity == ops.Nullary || arity == ops.Outfix1) {
		return fmt.Errorf("#op: precedence not allowed on %s operators", arity)
	}

	switch {
	case arity == ops.Nullary:
		precedence = ops.BigPrecedence
	case arity == ops.Outfix1:
		precedence = 0
	case precedence < 0:
		precedence = ops.DefaultPrecedence
	}

	cat := categorize(names[0])
	op, err := p.Table.Declare(cat, names[0], arity, precedence)
	if err != nil {
		return err
	}
	if evalSet {
		op.Eval = eval
	}
	if supertype != "" {
		sop := p.Table.Lookup(ops.CatType, supertype)
		if sop == nil {
			return fmt.Errorf("supertype '%s is invalid", supertype)
		}
		op.Super = sop
	}

	if arity == ops.Outfix1 {
		other, err := p.Table.Declare(categorize(names[1]), names[1], ops.Outfix2, 0)
		if err != nil {
			return err
		}
		op.Other = other
		other.Other = op
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func clampPrecedence(n int) int {
	if n > ops.BigPrecedence {
		return ops.BigPrecedence
	}
	return n
}

// categorize classifies an operator name into one of the three
// non-type lists, matching original_source/prep.c's op_create.
func categorize(name string) ops.Category {
	if name == "" {
		return ops.CatAlnum
	}
	if isAlphaByte(name[0]) {
		return ops.CatAlnum
	}
	if len(name) == 1 {
		return ops.CatSingle
	}
	return ops.CatDouble
}

func isAlphaByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// typeDefine implements #type: a new type name, with an optional
// (keyword-introduced or bare) supertype reference. Grounded on
// original_source/prep.c's type_define.
func (p *Preprocessor) typeDefine(toks []string) error {
	if len(toks) == 0 || toks[0][0] != '\'' {
		return fmt.Errorf("type must begin with a single quote")
	}
	name := toks[0][1:]
	if name == "" {
		return fmt.Errorf("cannot define null type")
	}
	op, err := p.Table.Declare(ops.CatType, name, ops.Name, 0)
	if err != nil {
		return err
	}
	rest := toks[1:]
	if len(rest) > 0 && rest[0] == "supertype" {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		if rest[0][0] != '\'' {
			return fmt.Errorf("supertype must begin with a single quote")
		}
		sop := p.Table.Lookup(ops.CatType, rest[0][1:])
		if sop == nil {
			return fmt.Errorf("supertype '%s is invalid", rest[0][1:])
		}
		op.Super = sop
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return fmt.Errorf("invalid type definition")
	}
	return nil
}

// primitiveDefine implements #primitive: attaches a supertype to an
// already-declared type or operator. Grounded on
// original_source/prep.c's primitive_define.
func (p *Preprocessor) primitiveDefine(toks []string) error {
	if len(toks) == 0 {
		return fmt.Errorf("primitive not found")
	}
	tok := toks[0]
	var prim *ops.Op
	if tok[0] == '\'' {
		prim = p.Table.Lookup(ops.CatType, tok[1:])
	} else {
		prim = p.Table.Lookup(categorize(tok), tok)
	}
	if prim == nil {
		return fmt.Errorf("primitive not found: %s", tok)
	}
	if prim.Super != nil {
		return fmt.Errorf("primitive %s already has a supertype", tok)
	}
	rest := toks[1:]
	if len(rest) > 0 && rest[0] == "supertype" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return fmt.Errorf("no supertype specified for primitive %s", tok)
	}
	if rest[0][0] != '\'' {
		return fmt.Errorf("supertype must begin with a single quote")
	}
	sop := p.Table.Lookup(ops.CatType, rest[0][1:])
	if sop == nil {
		return fmt.Errorf("supertype '%s is invalid", rest[0][1:])
	}
	prim.Super = sop
	if len(rest) > 1 {
		return fmt.Errorf("invalid primitive definition")
	}
	return nil
}

// ResolveInclude delegates to the given source.Stack for the
// literal/libraries/libdir search order.
func ResolveInclude(st *source.Stack, path string) (resolved string, contents []byte, err error) {
	return st.Resolve(path)
}
