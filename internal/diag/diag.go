// Package diag collects and prints diagnostics from every compiler stage.
package diag

import (
	"fmt"
	"sort"

	"github.com/you-not-fish/prsl/internal/syntax"
)

// Severity classifies a diagnostic.
type Severity uint8

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Stage names the phase that produced a diagnostic.
type Stage uint8

const (
	Lex Stage = iota
	Parse
	Resolve
	Runtime
	Codegen
)

var stageNames = [...]string{
	Lex:     "lex",
	Parse:   "parse",
	Resolve: "resolve",
	Runtime: "runtime",
	Codegen: "codegen",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", s)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Pos      syntax.Pos
	Msg      string
	Stage    Stage
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
}

// DiagError wraps an error-severity diagnostic as a Go error.
type DiagError struct {
	Diagnostic
}

func (e *DiagError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// List accumulates diagnostics in report order. The zero value is ready
// to use.
type List struct {
	items  []Diagnostic
	errors int
}

// Add appends d.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
	if d.Severity == Error {
		l.errors++
	}
}

// Errorf adds an error.
func (l *List) Errorf(stage Stage, pos syntax.Pos, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: Error, Pos: pos, Msg: fmt.Sprintf(format, args...), Stage: stage})
}

// Warnf adds a warning.
func (l *List) Warnf(stage Stage, pos syntax.Pos, format string, args ...interface{}) {
	l.Add(Diagnostic{Severity: Warning, Pos: pos, Msg: fmt.Sprintf(format, args...), Stage: stage})
}

// Handler returns a callback suitable for the parser and resolver error
// hooks that records errors of the given stage.
func (l *List) Handler(stage Stage, sev Severity) func(pos syntax.Pos, msg string) {
	return func(pos syntax.Pos, msg string) {
		l.Add(Diagnostic{Severity: sev, Pos: pos, Msg: msg, Stage: stage})
	}
}

func (l *List) HasErrors() bool { return l.errors > 0 }

func (l *List) ErrorCount() int { return l.errors }

func (l *List) WarningCount() int { return len(l.items) - l.errors }

func (l *List) Len() int { return len(l.items) }

// Items returns the diagnostics in report order.
func (l *List) Items() []Diagnostic {
	return l.items
}

// Sorted returns a copy ordered by position. Diagnostics at the same
// position keep their report order.
func (l *List) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos.Before(out[j].Pos)
	})
	return out
}

// Err returns the first error in report order, or nil.
func (l *List) Err() error {
	for _, d := range l.items {
		if d.Severity == Error {
			return &DiagError{d}
		}
	}
	return nil
}

// Truncate drops every diagnostic after the first n. The REPL uses it to
// discard the diagnostics of a line once they have been printed.
func (l *List) Truncate(n int) {
	if n >= len(l.items) {
		return
	}
	for _, d := range l.items[n:] {
		if d.Severity == Error {
			l.errors--
		}
	}
	l.items = l.items[:n]
}
