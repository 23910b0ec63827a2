package interp

import (
	"fmt"

	"github.com/you-not-fish/prsl/internal/syntax"
)

// ErrorKind classifies a runtime error.
type ErrorKind uint8

const (
	TypeError ErrorKind = iota
	DivisionByZero
	WrongArgumentCount
	NotAFunction
	UndefinedVariable
	UninitializedVariable
	InputError
	StackOverflow
)

var errorKindNames = [...]string{
	TypeError:             "TypeError",
	DivisionByZero:        "DivisionByZero",
	WrongArgumentCount:    "WrongArgumentCount",
	NotAFunction:          "NotAFunction",
	UndefinedVariable:     "UndefinedVariable",
	UninitializedVariable: "UninitializedVariable",
	InputError:            "InputError",
	StackOverflow:         "StackOverflow",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// RuntimeError is an error raised while evaluating a program.
type RuntimeError struct {
	Kind ErrorKind
	Pos  syntax.Pos
	Msg  string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// throw aborts evaluation with a runtime error. It is recovered in Run.
func throw(k ErrorKind, pos syntax.Pos, format string, args ...interface{}) {
	panic(&RuntimeError{Kind: k, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// haltSig aborts evaluation for a reason outside the program: a cancelled
// context or a failed write.
type haltSig struct{ err error }
