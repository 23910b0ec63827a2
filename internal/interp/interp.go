// Package interp is the tree-walking evaluator for PRSL. It defines the
// reference semantics that the native backend must agree with.
package interp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/you-not-fish/prsl/internal/env"
	"github.com/you-not-fish/prsl/internal/logging"
	"github.com/you-not-fish/prsl/internal/syntax"
)

// DefaultMaxDepth bounds nested calls.
const DefaultMaxDepth = 10000

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets the sink for print. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithInput sets the source for the input expression. The default is
// os.Stdin.
func WithInput(r io.Reader) Option {
	return func(in *Interpreter) { in.in = bufio.NewReader(r) }
}

// WithLogger sets the debug logger. Without it Run uses the logger
// carried by its context, if any.
func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) { in.base = l }
}

// WithMaxDepth sets the call depth at which evaluation fails with
// StackOverflow.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) { in.maxDepth = n }
}

// flow is the outcome of executing a statement.
type flow struct {
	returning bool
	value     Value
}

var normal = flow{}

// Interpreter evaluates programs. Global variables and registered
// functions persist across Run calls.
type Interpreter struct {
	vars  *env.Manager[Value]
	funcs *env.FuncTable[Value]

	out      io.Writer
	in       *bufio.Reader
	base     *zap.Logger
	logger   *zap.Logger
	maxDepth int

	ctx   context.Context
	depth int
}

var _ syntax.Visitor[Value, flow] = (*Interpreter)(nil)

// New returns an interpreter with empty global state.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		vars:     env.NewManager[Value](),
		funcs:    env.NewFuncTable[Value](),
		out:      os.Stdout,
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.in == nil {
		in.in = bufio.NewReader(os.Stdin)
	}
	return in
}

// Depth returns the length of the current scope chain. Outside Run it is
// always 1.
func (in *Interpreter) Depth() int {
	return in.vars.Depth()
}

// HasFunc reports whether name is in the function table.
func (in *Interpreter) HasFunc(name string) bool {
	return in.funcs.Contains(name)
}

// Global returns the value of a global variable.
func (in *Interpreter) Global(name string) (Value, bool) {
	return in.vars.Global().LookupLocal(name)
}

// Run executes prog. A runtime error stops the program; output written by
// earlier statements stays written. The returned error is a *RuntimeError
// for program faults.
func (in *Interpreter) Run(ctx context.Context, prog *syntax.Program) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in.ctx = ctx
	in.depth = 0
	in.logger = in.base
	if in.logger == nil {
		in.logger = logging.FromContext(ctx)
	}
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case *RuntimeError:
				in.logger.Debug("runtime error",
					zap.Stringer("kind", sig.Kind),
					zap.Stringer("pos", sig.Pos))
				err = sig
			case haltSig:
				err = sig.err
			default:
				panic(r)
			}
		}
	}()
	syntax.VisitStmt[flow](in, prog)
	return nil
}

// ----------------------------------------------------------------------------
// Helpers

func (in *Interpreter) eval(e syntax.Expr) Value {
	return syntax.VisitExpr[Value](in, e)
}

func (in *Interpreter) exec(s syntax.Stmt) flow {
	return syntax.VisitStmt[flow](in, s)
}

// execList runs stmts until one of them returns.
func (in *Interpreter) execList(stmts []syntax.Stmt) flow {
	for _, s := range stmts {
		if fl := in.exec(s); fl.returning {
			return fl
		}
	}
	return normal
}

func (in *Interpreter) checkCancel() {
	if err := in.ctx.Err(); err != nil {
		panic(haltSig{errors.Wrap(err, "evaluation interrupted")})
	}
}

func (in *Interpreter) intOperand(op syntax.Token, v Value) int32 {
	n, ok := v.AsInt()
	if !ok {
		throw(TypeError, op.Pos, "operator '%s' needs int operands, got %s", op.Kind, v.Kind)
	}
	return n
}

// declare binds name to the value of init with define-or-assign semantics.
// A new name is visible as uninitialized while init runs, and is unbound
// again if init fails.
func (in *Interpreter) declare(name syntax.Token, init syntax.Expr) Value {
	if _, bound := in.vars.Lookup(name.Text); !bound {
		scope := in.vars.Current()
		scope.Define(name.Text, uninit)
		defer func() {
			if v, _ := scope.LookupLocal(name.Text); v.Kind == kindUninit {
				scope.Delete(name.Text)
			}
		}()
	}
	v := in.eval(init)
	in.vars.DefineOrAssign(name.Text, v)
	return v
}

func (in *Interpreter) lookup(name syntax.Token) Value {
	v, err := in.vars.Get(name.Text)
	if err != nil {
		throw(UndefinedVariable, name.Pos, "undefined variable '%s'", name.Text)
	}
	if v.Kind == kindUninit {
		throw(UninitializedVariable, name.Pos, "variable '%s' is not initialized", name.Text)
	}
	return v
}

// ----------------------------------------------------------------------------
// Expressions

func (in *Interpreter) VisitLiteral(e *syntax.Literal) Value {
	return Int(e.Value)
}

func (in *Interpreter) VisitGrouping(e *syntax.Grouping) Value {
	return in.eval(e.X)
}

func (in *Interpreter) VisitVar(e *syntax.Var) Value {
	return in.lookup(e.Name)
}

func (in *Interpreter) VisitInput(e *syntax.InputExpr) Value {
	var n int32
	if _, err := fmt.Fscan(in.in, &n); err != nil {
		throw(InputError, e.Pos(), "cannot read integer: %v", err)
	}
	return Int(n)
}

func (in *Interpreter) VisitAssign(e *syntax.Assign) Value {
	return in.declare(e.Name, e.Value)
}

func (in *Interpreter) VisitUnary(e *syntax.Unary) Value {
	x := in.eval(e.X)
	if e.Op.Kind != syntax.Minus {
		throw(TypeError, e.Op.Pos, "illegal unary operator '%s'", e.Op.Kind)
	}
	return Int(-in.intOperand(e.Op, x))
}

// VisitBinary evaluates both operands left to right. Arithmetic wraps at
// 32 bits and division truncates toward zero.
func (in *Interpreter) VisitBinary(e *syntax.Binary) Value {
	x := in.eval(e.X)
	y := in.eval(e.Y)

	switch e.Op.Kind {
	case syntax.EqualEqual:
		return Bool(x.Equal(y))
	case syntax.NotEqual:
		return Bool(!x.Equal(y))
	}

	a := in.intOperand(e.Op, x)
	b := in.intOperand(e.Op, y)
	switch e.Op.Kind {
	case syntax.Plus:
		return Int(a + b)
	case syntax.Minus:
		return Int(a - b)
	case syntax.Star:
		return Int(a * b)
	case syntax.Slash:
		if b == 0 {
			throw(DivisionByZero, e.Op.Pos, "division by zero")
		}
		return Int(a / b)
	case syntax.Less:
		return Bool(a < b)
	case syntax.LessEqual:
		return Bool(a <= b)
	case syntax.Greater:
		return Bool(a > b)
	case syntax.GreaterEqual:
		return Bool(a >= b)
	}
	throw(TypeError, e.Op.Pos, "illegal binary operator '%s'", e.Op.Kind)
	return Nil
}

// VisitPostfix yields the operand's old value and stores the updated one
// back into the variable it names.
func (in *Interpreter) VisitPostfix(e *syntax.Postfix) Value {
	delta := int32(1)
	if e.Op.Kind == syntax.MinusMinus {
		delta = -1
	}

	var name string
	switch x := unparen(e.X).(type) {
	case *syntax.Var:
		name = x.Name.Text
	case *syntax.Assign:
		name = x.Name.Text
	default:
		throw(TypeError, e.Op.Pos, "illegal postfix expression")
	}

	old := in.eval(e.X)
	n := in.intOperand(e.Op, old)
	if err := in.vars.Assign(name, Int(n+delta)); err != nil {
		throw(UndefinedVariable, e.Op.Pos, "undefined variable '%s'", name)
	}
	return old
}

func unparen(x syntax.Expr) syntax.Expr {
	for {
		g, ok := x.(*syntax.Grouping)
		if !ok {
			return x
		}
		x = g.X
	}
}

// VisitScope runs the statements in a new scope. The first return ends
// the scope and supplies its value.
func (in *Interpreter) VisitScope(e *syntax.ScopeExpr) Value {
	result := Int(0)
	in.vars.WithNewScope(func() {
		if fl := in.execList(e.Stmts); fl.returning {
			result = fl.value
		}
	})
	return result
}

// VisitFunc makes a function value and registers it, along with the named
// functions declared directly in its body, in the function table.
func (in *Interpreter) VisitFunc(e *syntax.FuncExpr) Value {
	v := Func(&Function{Decl: e})
	for _, f := range syntax.NestedFuncs(e.Body) {
		in.funcs.Set(f.Name.Text, Func(&Function{Decl: f}))
	}
	if e.Name != nil {
		in.funcs.Set(e.Name.Text, v)
	}
	return v
}

// VisitCall looks the callee up in the function table first and the scope
// chain second. Arguments are evaluated in the caller's scope; the body
// runs in an isolated scope that holds only the parameters.
func (in *Interpreter) VisitCall(e *syntax.Call) Value {
	name := e.Callee.Text
	callee, ok := in.funcs.Get(name)
	if !ok {
		v, found := in.vars.Lookup(name)
		if !found {
			throw(UndefinedVariable, e.Pos(), "undefined function '%s'", name)
		}
		callee = v
	}
	fn, ok := callee.AsFunc()
	if !ok {
		throw(NotAFunction, e.Pos(), "'%s' is not a function", name)
	}
	if len(e.Args) != fn.Arity() {
		throw(WrongArgumentCount, e.Pos(), "'%s' takes %d arguments, got %d", name, fn.Arity(), len(e.Args))
	}

	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = in.eval(a)
	}

	in.checkCancel()
	if in.depth >= in.maxDepth {
		throw(StackOverflow, e.Pos(), "call depth exceeds %d", in.maxDepth)
	}
	in.depth++
	defer func() { in.depth-- }()
	in.logger.Debug("call", zap.String("func", name), zap.Int("args", len(args)), zap.Int("depth", in.depth))

	var result Value
	in.vars.WithIsolatedScope(func() {
		for i, p := range fn.Decl.Params {
			in.vars.Define(p.Text, args[i])
		}
		result = in.eval(fn.Decl.Body)
	})
	if result.Kind != KindInt && result.Kind != KindBool {
		throw(TypeError, e.Pos(), "function '%s' returned %s", name, result.Kind)
	}
	return result
}

// ----------------------------------------------------------------------------
// Statements

func (in *Interpreter) VisitVarDecl(s *syntax.VarDecl) flow {
	in.declare(s.Name, s.Init)
	return normal
}

func (in *Interpreter) VisitIf(s *syntax.IfStmt) flow {
	if in.eval(s.Cond).Truthy() {
		return in.exec(s.Then)
	}
	if s.Else != nil {
		return in.exec(s.Else)
	}
	return normal
}

func (in *Interpreter) VisitWhile(s *syntax.WhileStmt) flow {
	for in.eval(s.Cond).Truthy() {
		in.checkCancel()
		if fl := in.exec(s.Body); fl.returning {
			return fl
		}
	}
	return normal
}

func (in *Interpreter) VisitPrint(s *syntax.PrintStmt) flow {
	v := in.eval(s.X)
	if _, err := fmt.Fprintln(in.out, v.String()); err != nil {
		panic(haltSig{errors.Wrap(err, "write output")})
	}
	return normal
}

func (in *Interpreter) VisitExprStmt(s *syntax.ExprStmt) flow {
	in.eval(s.X)
	return normal
}

func (in *Interpreter) VisitBlock(s *syntax.BlockStmt) flow {
	fl := normal
	in.vars.WithNewScope(func() {
		fl = in.execList(s.Stmts)
	})
	return fl
}

func (in *Interpreter) VisitReturn(s *syntax.ReturnStmt) flow {
	return flow{returning: true, value: in.eval(s.Result)}
}

func (in *Interpreter) VisitNull(*syntax.NullStmt) flow {
	return normal
}

// VisitProgram runs the top level. A return there ends the program.
func (in *Interpreter) VisitProgram(s *syntax.Program) flow {
	for _, st := range s.Body {
		in.checkCancel()
		if fl := in.exec(st); fl.returning {
			return fl
		}
	}
	return normal
}
