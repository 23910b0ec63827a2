package interp

import (
	"strconv"

	"github.com/you-not-fish/prsl/internal/syntax"
)

// ValueKind enumerates the runtime kinds a Value may hold.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindInt
	KindBool
	KindFunc

	kindUninit // bound but initializer still running; never escapes a read
)

var valueKindNames = [...]string{
	KindNil:    "nil",
	KindInt:    "int",
	KindBool:   "bool",
	KindFunc:   "func",
	kindUninit: "uninitialized",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Function is a function value. It refers to its declaration and captures
// nothing: a call sees only its parameters and the function table.
type Function struct {
	Decl *syntax.FuncExpr
}

// Name returns the function's name, or "" when anonymous.
func (f *Function) Name() string {
	return f.Decl.DisplayName()
}

// Arity returns the number of parameters.
func (f *Function) Arity() int {
	return len(f.Decl.Params)
}

// Value is a runtime value. The zero Value is nil.
type Value struct {
	Kind ValueKind
	i    int32
	b    bool
	fn   *Function
}

// Nil is the nil value.
var Nil = Value{}

var uninit = Value{Kind: kindUninit}

func Int(n int32) Value { return Value{Kind: KindInt, i: n} }
func Bool(b bool) Value { return Value{Kind: KindBool, b: b} }
func Func(f *Function) Value { return Value{Kind: KindFunc, fn: f} }

// AsInt returns the integer payload and whether v is an Int.
func (v Value) AsInt() (int32, bool) { return v.i, v.Kind == KindInt }

// AsBool returns the boolean payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.Kind == KindBool }

// AsFunc returns the function payload and whether v is a Func.
func (v Value) AsFunc() (*Function, bool) { return v.fn, v.Kind == KindFunc }

// Truthy reports whether v counts as true in a condition: a non-zero Int
// or a true Bool. Nil and functions are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.i != 0
	case KindBool:
		return v.b
	}
	return false
}

// Equal reports whether v and w are the same kind and the same value.
// Functions are equal when they share a declaration.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.i == w.i
	case KindBool:
		return v.b == w.b
	case KindFunc:
		return v.fn.Decl == w.fn.Decl
	}
	return true
}

// String renders v the way print does.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	case KindFunc:
		if name := v.fn.Name(); name != "" {
			return "<func " + name + ">"
		}
		return "<func>"
	case kindUninit:
		return "<uninitialized>"
	}
	return "nil"
}
