// Package sema implements static name resolution for PRSL. It rejects
// undefined and uninitialized reads, illegal postfix targets, calls to
// unknown functions and returns outside functions before anything runs.
package sema

import (
	"fmt"

	"github.com/you-not-fish/prsl/internal/syntax"
)

// Kind classifies a resolution error.
type Kind uint8

const (
	UndefinedVariable Kind = iota
	UseBeforeInit
	IllegalPostfixTarget
	UndefinedFunction
	ReturnOutsideFunction
)

var kindNames = [...]string{
	UndefinedVariable:     "UndefinedVariable",
	UseBeforeInit:         "UseBeforeInit",
	IllegalPostfixTarget:  "IllegalPostfixTarget",
	UndefinedFunction:     "UndefinedFunction",
	ReturnOutsideFunction: "ReturnOutsideFunction",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error is a resolution error.
type Error struct {
	Kind Kind
	Pos  syntax.Pos
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorHandler is called for each resolution error.
type ErrorHandler func(pos syntax.Pos, msg string)

// errorf records an error of kind k at pos.
func (r *Resolver) errorf(k Kind, pos syntax.Pos, format string, args ...interface{}) {
	err := &Error{Kind: k, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	r.errors = append(r.errors, err)
	if r.conf.Error != nil {
		r.conf.Error(pos, err.Msg)
	}
}
