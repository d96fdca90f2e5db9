// Command rewrite runs rule files through the term-rewriting
// interpreter (spec.md §4.18, SPEC_FULL.md §4.18/§6):
//
//	rewrite [--lib DIR] [--graphics] [--trace N] [file...]
//	rewrite repl [--lib DIR] [--graphics] [--trace N]
//
// With no file arguments, the first form reads a single program from
// standard input. Each file is run in its own fresh environment
// (operator table, rule database, subject), matching
// original_source/src/main.c's do/while loop over argv.
//
// Trimmed hard from the teacher's cmd/sentra/main.go: that file
// dispatches to dozens of unrelated subcommands (build, test, lint,
// lsp, package management, shell completion...) accumulated for a
// much larger language toolchain. None of that belongs here — only
// the VERSION/BuildDate var idiom and the basic flag-per-subcommand
// shape survive the trim.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"bertrand/internal/graphics"
	"bertrand/internal/ops"
	"bertrand/internal/parser"
	"bertrand/internal/preprocess"
	"bertrand/internal/primitive"
	"bertrand/internal/printer"
	"bertrand/internal/repl"
	"bertrand/internal/rerrors"
	"bertrand/internal/rules"
	"bertrand/internal/source"
	"bertrand/internal/walk"
)

var (
	VERSION   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "repl" {
		return runREPL(args[1:])
	}
	return runFiles(args)
}

func commonFlags(fs *flag.FlagSet) (libDir *string, useGraphics *bool, trace *int) {
	libDir = fs.String("lib", "", "library directory for #include (default: $BERTRAND_LIB or "+source.DefaultLibDir+")")
	useGraphics = fs.Bool("graphics", false, "open a live graphics viewer instead of logging draw calls")
	trace = fs.Int("trace", 0, "initial trace verbosity")
	return
}

func runFiles(args []string) int {
	fs := flag.NewFlagSet("rewrite", flag.ContinueOnError)
	libDir, useGraphics, trace := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	files := fs.Args()
	if len(files) == 0 {
		files = []string{""} // "" signals stdin
	}

	status := 0
	for _, f := range files {
		if err := runOne(f, *libDir, *useGraphics, *trace); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
	}
	return status
}

// runOne parses and normalizes a single program, mirroring
// original_source/src/main.c's per-file iteration: subject = init(),
// parse(), walk-to-fixpoint, print.
func runOne(path, libDir string, useGraphics bool, trace int) error {
	name := path
	var text []byte
	var err error
	if path == "" {
		name = "stdin"
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return rerrors.Wrap(rerrors.Runtime, rerrors.Location{File: name}, err, "can't open program file")
	}

	table := ops.NewTable()
	primitive.Init(table)

	sink := newSink(useGraphics)
	defer sink.Close()
	machine := &primitive.Machine{Trace: trace, Sink: sink}

	db := rules.NewDatabase()
	p := parser.New(table, preprocess.New(table), source.New(libDir), name, string(text))
	parsedRules, err := p.Parse()
	if err != nil {
		return rerrors.Wrap(rerrors.Parse, rerrors.Location{File: name}, err, "parse failed")
	}
	for _, pr := range parsedRules {
		if _, err := db.Build(pr.Head, pr.Body, pr.Tag, pr.Names, pr.LabelCount); err != nil {
			return rerrors.Wrap(rerrors.Semantic, rerrors.Location{File: name}, err, "rule registration failed")
		}
	}

	subject, err := walk.Normalize(db, machine, primitive.NewSubject())
	if err != nil {
		return rerrors.Wrap(rerrors.Runtime, rerrors.Location{File: name}, err, "rewrite failed")
	}

	fmt.Fprintln(os.Stderr, printer.Format(subject))
	return nil
}

func runREPL(args []string) int {
	fs := flag.NewFlagSet("rewrite repl", flag.ContinueOnError)
	libDir, useGraphics, trace := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sink := newSink(*useGraphics)
	defer sink.Close()
	machine := &primitive.Machine{Trace: *trace, Sink: sink}

	session := repl.New(os.Stdin, os.Stdout, *libDir, machine)
	if err := session.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newSink(useGraphics bool) graphics.Sink {
	if useGraphics {
		return graphics.NewWebSink("localhost:8765")
	}
	return graphics.NewNullSink()
}
