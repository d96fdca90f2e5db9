// Package rerrors is the structured, located error type used by every
// pipeline stage (spec.md §7). Adapted from the teacher's
// internal/errors.SentraError: same Type/Location/CallStack/Source
// shape and fluent With* builders, renamed to the five error kinds
// spec.md §7 actually names, and with a final rendering that matches
// original_source/bertrand/util.c's error() format ("file %s, line
// %d[, before position %d]: %s") rather than the teacher's own.
package rerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is one of the five error categories spec.md §7 names.
type Kind string

const (
	Lexical      Kind = "lexical error"
	Preprocessor Kind = "preprocessor error"
	Parse        Kind = "parse error"
	Semantic     Kind = "semantic error"
	Runtime      Kind = "runtime error"
)

// Location pins an error to a file/line/position, as used throughout
// original_source (file, lineno, and an optional before-position).
type Location struct {
	File     string
	Line     int
	Position int // 0 means "not applicable"
}

// StackFrame records one level of rule-application context, used when
// a runtime error happens partway through a walk driven by nested
// instantiation (there is no call stack in the classical sense, but
// tracking which rule fired helps debugging).
type StackFrame struct {
	Rule string
	Location
}

// Error is the error type every stage returns. Wraps an underlying
// cause with github.com/pkg/errors so a stack trace of the cause is
// available via StackTrace, without losing the located, kind-tagged
// presentation normal runs print.
type Error struct {
	Kind      Kind
	Message   string
	Location  Location
	CallStack []StackFrame
	Source    string
	cause     error
}

func New(kind Kind, loc Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Location: loc, cause: errors.New(fmt.Sprintf(format, args...))}
}

func Wrap(kind Kind, loc Location, err error, context string) *Error {
	return &Error{Kind: kind, Message: context + ": " + err.Error(), Location: loc, cause: errors.Wrap(err, context)}
}

func (e *Error) WithSource(line string) *Error {
	e.Source = line
	return e
}

func (e *Error) WithStack(frames []StackFrame) *Error {
	e.CallStack = frames
	return e
}

func (e *Error) Unwrap() error { return e.cause }

// Error renders the located message. The base line matches
// original_source/bertrand/util.c's error(): "file %s, line %d[,
// before position %d]: %s".
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Location.File != "" {
		fmt.Fprintf(&sb, "file %s, line %d", e.Location.File, e.Location.Line)
		if e.Location.Position > 0 {
			fmt.Fprintf(&sb, ", before position %d", e.Location.Position)
		}
		fmt.Fprintf(&sb, ": %s", e.Message)
	} else {
		fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, "\n  %d | %s", e.Location.Line, e.Source)
	}
	for _, f := range e.CallStack {
		fmt.Fprintf(&sb, "\n  while applying rule %q at %s:%d", f.Rule, f.File, f.Line)
	}
	return sb.String()
}

// StackTrace exposes the %+v-formatted pkg/errors stack for verbose
// diagnostics, without forcing every caller to pay for it. cmd/rewrite
// does not call it.
func (e *Error) StackTrace() string {
	return fmt.Sprintf("%+v", e.cause)
}
