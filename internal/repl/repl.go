// Package repl implements the interactive rule-entry loop of
// spec.md §4.17: read one rule's worth of text at a time, parse it
// into the live rule database, rewrite the current subject to
// fixpoint, and print it, repeating until the input is exhausted.
//
// Structurally adapted from the teacher's internal/repl.Start() loop
// shape (prompt, read line, dispatch, loop over a bufio.Scanner), but
// repurposed since a rule isn't a single line: input accumulates until
// a brace-balanced "}" closes the rule body, then the whole chunk is
// fed through the same lexer/preprocessor/parser pipeline cmd/rewrite
// uses for files, one rule at a time, against a rules.Database and
// subject expression that persist across the session.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"bertrand/internal/expr"
	"bertrand/internal/ops"
	"bertrand/internal/parser"
	"bertrand/internal/preprocess"
	"bertrand/internal/primitive"
	"bertrand/internal/printer"
	"bertrand/internal/rules"
	"bertrand/internal/source"
	"bertrand/internal/walk"
)

const prompt = "> "

// REPL holds everything that must survive across one interactive
// session: the operator table and rule database grow monotonically as
// rules are entered, and the subject is rewritten in place after every
// rule, mirroring original_source/main.c's single long-lived
// environment for interactive use.
type REPL struct {
	in  *bufio.Scanner
	out io.Writer

	table *ops.Table
	pp    *preprocess.Preprocessor
	src   *source.Stack
	db    *rules.Database
	mach  *primitive.Machine

	subject expr.Node
}

// New builds a REPL over in/out, with an operator table, rule
// database, and initial "main" subject seeded the same way
// cmd/rewrite seeds file mode (primitive.Init then primitive.NewSubject).
func New(in io.Reader, out io.Writer, libDir string, mach *primitive.Machine) *REPL {
	table := ops.NewTable()
	primitive.Init(table)
	return &REPL{
		in:      bufio.NewScanner(in),
		out:     out,
		table:   table,
		pp:      preprocess.New(table),
		src:     source.New(libDir),
		db:      rules.NewDatabase(),
		mach:    mach,
		subject: primitive.NewSubject(),
	}
}

// Run reads rules until the input is exhausted, printing the subject
// after every one it successfully installs. A rule that fails to
// parse or rewrite does not end the session, so a typo can be
// corrected without losing prior rules.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, "rewrite rule editor: enter one rule per prompt, end of input to finish")
	for {
		chunk, ok := r.readRule()
		if !ok {
			return nil
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := r.install(chunk); err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		out, err := walk.Normalize(r.db, r.mach, r.subject)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		r.subject = out
		fmt.Fprintln(r.out, printer.Format(r.subject))
	}
}

// readRule accumulates lines until the input holds a balanced rule:
// a "{" opened by the body has been closed by a matching "}". Returns
// ok=false on EOF with nothing pending.
func (r *REPL) readRule() (string, bool) {
	var b strings.Builder
	depth := 0
	sawBody := false
	for {
		fmt.Fprint(r.out, prompt)
		if !r.in.Scan() {
			return b.String(), b.Len() > 0
		}
		line := r.in.Text()
		b.WriteString(line)
		b.WriteByte('\n')

		for _, c := range line {
			switch c {
			case '{':
				depth++
				sawBody = true
			case '}':
				depth--
			}
		}
		if sawBody && depth <= 0 {
			return b.String(), true
		}
	}
}

// install parses chunk as a single rule-file fragment and registers
// every rule it contains (normally just one) into the session's
// rules.Database, exactly as cmd/rewrite does for a whole file.
func (r *REPL) install(chunk string) error {
	p := parser.New(r.table, r.pp, r.src, "<repl>", chunk)
	parsed, err := p.Parse()
	if err != nil {
		return err
	}
	for _, pr := range parsed {
		if _, err := r.db.Build(pr.Head, pr.Body, pr.Tag, pr.Names, pr.LabelCount); err != nil {
			return err
		}
	}
	return nil
}
