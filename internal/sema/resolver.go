package sema

import (
	"go.uber.org/zap"

	"github.com/you-not-fish/prsl/internal/env"
	"github.com/you-not-fish/prsl/internal/syntax"
)

// State is the static binding state of a name.
type State uint8

const (
	Uninitialized State = iota // declared, initializer not yet resolved
	Initialized
)

func (s State) String() string {
	if s == Uninitialized {
		return "uninitialized"
	}
	return "initialized"
}

// Resolver performs the static pass. It keeps its global scope and
// function table between Resolve calls so that an interactive session can
// check one line at a time.
type Resolver struct {
	syntax.Walker

	conf   *Config
	logger *zap.Logger

	scopes *env.Manager[State]
	funcs  *env.FuncTable[*syntax.FuncExpr]
	inFunc bool

	errors []*Error
}

// NewResolver returns a resolver with an empty global scope.
func NewResolver(conf *Config) *Resolver {
	if conf == nil {
		conf = &Config{}
	}
	r := &Resolver{
		conf:   conf,
		logger: conf.Logger,
		scopes: env.NewManager[State](),
		funcs:  env.NewFuncTable[*syntax.FuncExpr](),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.Self = r
	return r
}

// Resolve checks prog. When errors are found, the global names and
// functions added by prog are discarded again, so a rejected program
// leaves no trace in the resolver.
func (r *Resolver) Resolve(prog *syntax.Program) *Result {
	r.errors = nil
	saved := r.save()

	r.Stmt(prog)

	if len(r.errors) > 0 {
		r.restore(saved)
	}
	r.logger.Debug("resolve done",
		zap.Int("errors", len(r.errors)),
		zap.Int("functions", r.funcs.Len()))
	return &Result{Errors: r.errors}
}

// Functions returns the names in the flat function table.
func (r *Resolver) Functions() []string {
	return r.funcs.Names()
}

// Globals returns the names bound in the global scope.
func (r *Resolver) Globals() []string {
	return r.scopes.Global().Names()
}

// Retain drops the global names and functions that the runtime state no
// longer holds, for example after a program stopped before binding them.
func (r *Resolver) Retain(hasVar, hasFunc func(name string) bool) {
	g := r.scopes.Global()
	for _, name := range g.Names() {
		if !hasVar(name) {
			g.Delete(name)
		}
	}
	for _, name := range r.funcs.Names() {
		if !hasFunc(name) {
			r.funcs.Delete(name)
		}
	}
}

type checkpoint struct {
	vars  map[string]State
	funcs map[string]*syntax.FuncExpr
}

func (r *Resolver) save() checkpoint {
	c := checkpoint{
		vars:  make(map[string]State),
		funcs: make(map[string]*syntax.FuncExpr),
	}
	g := r.scopes.Global()
	for _, name := range g.Names() {
		c.vars[name], _ = g.LookupLocal(name)
	}
	for _, name := range r.funcs.Names() {
		c.funcs[name], _ = r.funcs.Get(name)
	}
	return c
}

func (r *Resolver) restore(c checkpoint) {
	r.scopes.Reset()
	for name, st := range c.vars {
		r.scopes.Define(name, st)
	}
	for _, name := range r.funcs.Names() {
		if f, ok := c.funcs[name]; ok {
			r.funcs.Set(name, f)
		} else {
			r.funcs.Delete(name)
		}
	}
	r.inFunc = false
}

// ----------------------------------------------------------------------------
// Names

// declare handles both declaration forms. A name already bound somewhere
// in the chain is assigned in place; a new name is bound in the current
// scope as uninitialized while its initializer is resolved.
func (r *Resolver) declare(name syntax.Token, init syntax.Expr) {
	if _, bound := r.scopes.Lookup(name.Text); !bound {
		r.scopes.Define(name.Text, Uninitialized)
	}
	r.Expr(init)
	r.scopes.DefineOrAssign(name.Text, Initialized)
}

func (r *Resolver) VisitVar(e *syntax.Var) struct{} {
	st, ok := r.scopes.Lookup(e.Name.Text)
	switch {
	case !ok:
		r.errorf(UndefinedVariable, e.Pos(), "undefined variable '%s'", e.Name.Text)
	case st == Uninitialized:
		r.errorf(UseBeforeInit, e.Pos(), "cannot read '%s' in its own initializer", e.Name.Text)
	}
	return struct{}{}
}

func (r *Resolver) VisitAssign(e *syntax.Assign) struct{} {
	r.declare(e.Name, e.Value)
	return struct{}{}
}

func (r *Resolver) VisitVarDecl(s *syntax.VarDecl) struct{} {
	r.declare(s.Name, s.Init)
	return struct{}{}
}

func (r *Resolver) VisitPostfix(e *syntax.Postfix) struct{} {
	switch postfixTarget(e.X).(type) {
	case *syntax.Var, *syntax.Assign:
	default:
		r.errorf(IllegalPostfixTarget, e.Op.Pos,
			"illegal postfix expression: '%s' needs a variable or an assignment", e.Op.Kind)
	}
	r.Expr(e.X)
	return struct{}{}
}

// postfixTarget strips parentheses from the operand of a postfix operator.
func postfixTarget(x syntax.Expr) syntax.Expr {
	for {
		g, ok := x.(*syntax.Grouping)
		if !ok {
			return x
		}
		x = g.X
	}
}

// ----------------------------------------------------------------------------
// Scopes and functions

func (r *Resolver) VisitScope(e *syntax.ScopeExpr) struct{} {
	r.scopes.WithNewScope(func() {
		r.Stmts(e.Stmts)
	})
	return struct{}{}
}

func (r *Resolver) VisitBlock(s *syntax.BlockStmt) struct{} {
	r.scopes.WithNewScope(func() {
		r.Stmts(s.Stmts)
	})
	return struct{}{}
}

// VisitFunc registers the function and its nested named functions, then
// resolves the body in an isolated scope holding only the parameters.
func (r *Resolver) VisitFunc(e *syntax.FuncExpr) struct{} {
	if e.Name != nil {
		r.funcs.Set(e.Name.Text, e)
	}
	for _, f := range syntax.NestedFuncs(e.Body) {
		r.funcs.Set(f.Name.Text, f)
	}

	inFunc := r.inFunc
	r.inFunc = true
	defer func() { r.inFunc = inFunc }()

	r.scopes.WithIsolatedScope(func() {
		for _, p := range e.Params {
			r.scopes.Define(p.Text, Initialized)
		}
		r.Expr(e.Body)
	})
	return struct{}{}
}

// VisitCall accepts a callee that is in the function table or bound in
// the scope chain. Whether a bound value is callable is only known at run
// time.
func (r *Resolver) VisitCall(e *syntax.Call) struct{} {
	name := e.Callee.Text
	if !r.funcs.Contains(name) {
		st, ok := r.scopes.Lookup(name)
		switch {
		case !ok:
			r.errorf(UndefinedFunction, e.Pos(), "undefined function '%s'", name)
		case st == Uninitialized:
			r.errorf(UseBeforeInit, e.Pos(), "cannot read '%s' in its own initializer", name)
		}
	}
	for _, a := range e.Args {
		r.Expr(a)
	}
	return struct{}{}
}

func (r *Resolver) VisitReturn(s *syntax.ReturnStmt) struct{} {
	if !s.Implicit && !r.inFunc {
		r.errorf(ReturnOutsideFunction, s.Pos(), "return outside function")
	}
	r.Expr(s.Result)
	return struct{}{}
}
