// Package codegen compiles a resolved PRSL program to textual LLVM IR.
//
// Every value is an i32. Variables live in stack slots created by alloca
// in the entry block of their function; booleans are stored as 0 or 1.
// Function expressions become module-level functions, so calls are direct
// and functions cannot be passed around as values.
package codegen

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/you-not-fish/prsl/internal/env"
	"github.com/you-not-fish/prsl/internal/rtabi"
	"github.com/you-not-fish/prsl/internal/syntax"
)

const errFuncValue = "function values are not supported by the native backend"

// Error is a construct the native backend cannot compile.
type Error struct {
	Pos syntax.Pos
	Msg string
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Option configures Generate.
type Option func(*Generator)

// WithSourceName sets the module's source_filename.
func WithSourceName(name string) Option {
	return func(g *Generator) { g.source = name }
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generate writes the LLVM module for prog to w. Nothing is written when
// the program uses a construct the backend cannot compile; the returned
// error is then an *Error.
func Generate(w io.Writer, prog *syntax.Program, opts ...Option) error {
	g := newGenerator(opts...)
	var buf bytes.Buffer
	if err := g.module(&buf, prog); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return errors.Wrap(err, "write IR")
}

// funcInfo is a function expression lowered to a module-level symbol.
type funcInfo struct {
	decl *syntax.FuncExpr
	sym  string
}

func (f *funcInfo) arity() int { return len(f.decl.Params) }

// binding is what a name stands for at compile time: a stack slot, or a
// function bound directly by a declaration.
type binding struct {
	slot string
	fn   *funcInfo
}

// operand is the result of compiling an expression. isBool marks values
// produced by a comparison; fn is set for function expressions.
type operand struct {
	v      string
	isBool bool
	fn     *funcInfo
}

var zero = operand{v: "0"}

// scopeTarget is where a return inside a scope expression goes.
type scopeTarget struct {
	slot string
	exit string
}

// frame is one LLVM function under construction.
type frame struct {
	entry  emitter // allocas and parameter spills
	body   emitter
	scopes []scopeTarget
	slots  int
	labels int
}

// alloca reserves an i32 slot in the entry block.
func (f *frame) alloca(name string) string {
	slot := fmt.Sprintf("%%%s.addr.%d", name, f.slots)
	f.slots++
	f.entry.emitInst("%s = alloca i32", slot)
	return slot
}

func (f *frame) label(prefix string) string {
	l := fmt.Sprintf("%s.%d", prefix, f.labels)
	f.labels++
	return l
}

// write appends the complete definition headed by sig to buf.
func (f *frame) write(buf *bytes.Buffer, sig string) {
	buf.WriteString(sig + " {\nentry:\n")
	buf.WriteString(f.entry.String())
	buf.WriteString("  br label %start\nstart:\n")
	buf.WriteString(f.body.String())
	buf.WriteString("}\n")
}

// Generator walks the tree once and emits IR. It implements
// syntax.Visitor.
type Generator struct {
	source string
	logger *zap.Logger

	vars  *env.Manager[binding]
	funcs *env.FuncTable[*funcInfo]
	infos map[*syntax.FuncExpr]*funcInfo
	nfunc int

	fn   *frame
	defs []*bytes.Buffer // finished user functions

	err *Error
}

var _ syntax.Visitor[operand, struct{}] = (*Generator)(nil)

func newGenerator(opts ...Option) *Generator {
	g := &Generator{
		source: "prsl",
		logger: zap.NewNop(),
		vars:   env.NewManager[binding](),
		funcs:  env.NewFuncTable[*funcInfo](),
		infos:  make(map[*syntax.FuncExpr]*funcInfo),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) errorf(pos syntax.Pos, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	g.logger.Debug("codegen error", zap.Stringer("pos", pos), zap.String("msg", msg))
	if g.err == nil {
		g.err = &Error{Pos: pos, Msg: msg}
	}
}

// module compiles prog and writes the whole module to buf.
func (g *Generator) module(buf *bytes.Buffer, prog *syntax.Program) error {
	main := &frame{}
	g.fn = main
	syntax.VisitStmt[struct{}](g, prog)
	if g.err != nil {
		return g.err
	}

	fmt.Fprintf(buf, "; ModuleID = '%s'\n", g.source)
	fmt.Fprintf(buf, "source_filename = %q\n\n", g.source)
	writeString(buf, rtabi.FmtPrintName, rtabi.FmtPrint)
	writeString(buf, rtabi.FmtScanName, rtabi.FmtScan)
	writeString(buf, rtabi.MsgDivZeroName, rtabi.MsgDivZero)
	buf.WriteString("\n")
	for _, fn := range rtabi.RuntimeFunctions() {
		buf.WriteString(fn.Decl() + "\n")
	}
	buf.WriteString("\n")

	main.write(buf, "define i32 @"+rtabi.MainName+"()")
	for _, def := range g.defs {
		buf.WriteString("\n")
		buf.Write(def.Bytes())
	}
	buf.WriteString("\n")
	writeDivTrap(buf)

	g.logger.Debug("codegen done", zap.Int("functions", len(g.defs)))
	return nil
}

// writeString emits a private NUL-terminated string constant.
func writeString(buf *bytes.Buffer, name, s string) {
	fmt.Fprintf(buf, "@%s = private unnamed_addr constant [%d x i8] c\"%s\"\n", name, len(s)+1, escape(s))
}

func escape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f || c == '"' || c == '\\' {
			fmt.Fprintf(&sb, "\\%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	sb.WriteString("\\00")
	return sb.String()
}

func writeDivTrap(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "define internal void @%s() noreturn {\nentry:\n", rtabi.FnDivTrap)
	fmt.Fprintf(buf, "  %%t0 = call i64 @%s(i32 %d, ptr @%s, i64 %d)\n",
		rtabi.FnWrite, rtabi.Stderr, rtabi.MsgDivZeroName, len(rtabi.MsgDivZero))
	fmt.Fprintf(buf, "  call void @%s(i32 %d)\n", rtabi.FnExit, rtabi.ExitRuntimeError)
	buf.WriteString("  unreachable\n}\n")
}

// ----------------------------------------------------------------------------
// Helpers

func (g *Generator) expr(e syntax.Expr) operand {
	return syntax.VisitExpr[operand](g, e)
}

func (g *Generator) exec(s syntax.Stmt) {
	syntax.VisitStmt[struct{}](g, s)
}

// value compiles e where an i32 is required.
func (g *Generator) value(e syntax.Expr) operand {
	op := g.expr(e)
	if op.fn != nil {
		g.errorf(e.Pos(), errFuncValue)
		return zero
	}
	return op
}

// cond compiles e as an i1 truth value.
func (g *Generator) cond(e syntax.Expr) string {
	v := g.value(e)
	t := g.tmp()
	g.inst("%s = icmp ne i32 %s, 0", t, v.v)
	return t
}

func (g *Generator) inst(format string, args ...interface{}) {
	g.fn.body.emitInst(format, args...)
}

func (g *Generator) term(format string, args ...interface{}) {
	g.fn.body.emitTerm(format, args...)
}

func (g *Generator) tmp() string {
	return g.fn.body.nextTmp()
}

func (g *Generator) label(name string) {
	g.fn.body.emitLabel(name)
}

func (g *Generator) load(slot string) operand {
	t := g.tmp()
	g.inst("%s = load i32, ptr %s", t, slot)
	return operand{v: t}
}

// declare compiles Name = Init with define-or-assign semantics. A function
// expression bound to a fresh name is recorded statically; any other use of
// a name for a function is rejected.
func (g *Generator) declare(name syntax.Token, init syntax.Expr) operand {
	b, bound := g.vars.Lookup(name.Text)
	if fn, ok := unparen(init).(*syntax.FuncExpr); ok {
		info := g.function(fn)
		if bound {
			g.errorf(name.Pos, errFuncValue)
		} else {
			g.vars.Define(name.Text, binding{fn: info})
		}
		return operand{fn: info}
	}
	if !bound {
		b = binding{slot: g.fn.alloca(name.Text)}
		g.vars.Define(name.Text, b)
	}
	if b.fn != nil {
		g.errorf(name.Pos, errFuncValue)
		return zero
	}
	v := g.value(init)
	g.inst("store i32 %s, ptr %s", v.v, b.slot)
	return v
}

// slot returns the stack slot bound to name.
func (g *Generator) slot(name syntax.Token) (string, bool) {
	b, ok := g.vars.Lookup(name.Text)
	switch {
	case !ok:
		g.errorf(name.Pos, "undefined variable '%s'", name.Text)
		return "", false
	case b.fn != nil:
		g.errorf(name.Pos, errFuncValue)
		return "", false
	}
	return b.slot, true
}

func unparen(x syntax.Expr) syntax.Expr {
	for {
		p, ok := x.(*syntax.Grouping)
		if !ok {
			return x
		}
		x = p.X
	}
}

// register assigns f its symbol on first sight.
func (g *Generator) register(f *syntax.FuncExpr) *funcInfo {
	if info, ok := g.infos[f]; ok {
		return info
	}
	name := f.DisplayName()
	if name == "" {
		name = rtabi.AnonName
	}
	info := &funcInfo{decl: f, sym: fmt.Sprintf("%s%s.%d", rtabi.FuncPrefix, name, g.nfunc)}
	g.nfunc++
	g.infos[f] = info
	return info
}

// function registers f and the named functions declared directly in its
// body, then compiles f into its own definition.
func (g *Generator) function(f *syntax.FuncExpr) *funcInfo {
	info := g.register(f)
	for _, nested := range syntax.NestedFuncs(f.Body) {
		g.funcs.Set(nested.Name.Text, g.register(nested))
	}
	if f.Name != nil {
		g.funcs.Set(f.Name.Text, info)
	}

	saved := g.fn
	fr := &frame{}
	fr.entry.emitComment(fmt.Sprintf("func %s at %s", f.DisplayName(), f.Pos()))
	g.fn = fr
	params := make([]string, len(f.Params))
	g.vars.WithIsolatedScope(func() {
		for i, p := range f.Params {
			slot := fr.alloca(p.Text)
			fr.entry.emitInst("store i32 %%arg%d, ptr %s", i, slot)
			g.vars.Define(p.Text, binding{slot: slot})
			params[i] = fmt.Sprintf("i32 %%arg%d", i)
		}
		res := g.value(f.Body)
		g.term("ret i32 %s", res.v)
	})
	g.fn = saved

	def := new(bytes.Buffer)
	fr.write(def, fmt.Sprintf("define internal i32 @%s(%s)", info.sym, strings.Join(params, ", ")))
	g.defs = append(g.defs, def)
	return info
}

// ----------------------------------------------------------------------------
// Expressions

func (g *Generator) VisitLiteral(e *syntax.Literal) operand {
	return operand{v: strconv.Itoa(int(e.Value))}
}

func (g *Generator) VisitGrouping(e *syntax.Grouping) operand {
	return g.expr(e.X)
}

func (g *Generator) VisitVar(e *syntax.Var) operand {
	slot, ok := g.slot(e.Name)
	if !ok {
		return zero
	}
	return g.load(slot)
}

// VisitInput reads one integer with scanf. The slot is zeroed first so a
// failed read yields 0.
func (g *Generator) VisitInput(e *syntax.InputExpr) operand {
	slot := g.fn.alloca("in")
	g.inst("store i32 0, ptr %s", slot)
	t := g.tmp()
	g.inst("%s = call i32 (ptr, ...) @%s(ptr @%s, ptr %s)", t, rtabi.FnScanf, rtabi.FmtScanName, slot)
	return g.load(slot)
}

func (g *Generator) VisitAssign(e *syntax.Assign) operand {
	return g.declare(e.Name, e.Value)
}

func (g *Generator) VisitUnary(e *syntax.Unary) operand {
	x := g.value(e.X)
	t := g.tmp()
	g.inst("%s = sub i32 0, %s", t, x.v)
	return operand{v: t}
}

var arith = map[syntax.Kind]string{
	syntax.Plus:  "add",
	syntax.Minus: "sub",
	syntax.Star:  "mul",
}

var predicates = map[syntax.Kind]string{
	syntax.EqualEqual:   "eq",
	syntax.NotEqual:     "ne",
	syntax.Less:         "slt",
	syntax.LessEqual:    "sle",
	syntax.Greater:      "sgt",
	syntax.GreaterEqual: "sge",
}

// VisitBinary compiles both operands left to right. Arithmetic wraps, and
// comparisons yield 0 or 1. A comparison result never equals an integer.
func (g *Generator) VisitBinary(e *syntax.Binary) operand {
	x := g.value(e.X)
	y := g.value(e.Y)

	if op, ok := arith[e.Op.Kind]; ok {
		t := g.tmp()
		g.inst("%s = %s i32 %s, %s", t, op, x.v, y.v)
		return operand{v: t}
	}
	if e.Op.Kind == syntax.Slash {
		return g.divide(x, y)
	}
	pred, ok := predicates[e.Op.Kind]
	if !ok {
		g.errorf(e.Op.Pos, "illegal binary operator '%s'", e.Op.Kind)
		return zero
	}
	if (e.Op.Kind == syntax.EqualEqual || e.Op.Kind == syntax.NotEqual) && x.isBool != y.isBool {
		if e.Op.Kind == syntax.EqualEqual {
			return operand{v: "0", isBool: true}
		}
		return operand{v: "1", isBool: true}
	}
	c := g.tmp()
	g.inst("%s = icmp %s i32 %s, %s", c, pred, x.v, y.v)
	t := g.tmp()
	g.inst("%s = zext i1 %s to i32", t, c)
	return operand{v: t, isBool: true}
}

// divide traps on a zero divisor and maps MinInt32 / -1 to MinInt32.
func (g *Generator) divide(x, y operand) operand {
	isZero := g.tmp()
	g.inst("%s = icmp eq i32 %s, 0", isZero, y.v)
	trap := g.fn.label("div.zero")
	ok := g.fn.label("div.ok")
	g.term("br i1 %s, label %%%s, label %%%s", isZero, trap, ok)
	g.label(trap)
	g.inst("call void @%s()", rtabi.FnDivTrap)
	g.term("unreachable")
	g.label(ok)

	isNeg1 := g.tmp()
	g.inst("%s = icmp eq i32 %s, -1", isNeg1, y.v)
	divisor := g.tmp()
	g.inst("%s = select i1 %s, i32 1, i32 %s", divisor, isNeg1, y.v)
	q := g.tmp()
	g.inst("%s = sdiv i32 %s, %s", q, x.v, divisor)
	neg := g.tmp()
	g.inst("%s = sub i32 0, %s", neg, x.v)
	t := g.tmp()
	g.inst("%s = select i1 %s, i32 %s, i32 %s", t, isNeg1, neg, q)
	return operand{v: t}
}

// VisitPostfix yields the old value and stores the updated one into the
// variable the operand names.
func (g *Generator) VisitPostfix(e *syntax.Postfix) operand {
	var name syntax.Token
	switch x := unparen(e.X).(type) {
	case *syntax.Var:
		name = x.Name
	case *syntax.Assign:
		name = x.Name
	default:
		g.errorf(e.Op.Pos, "illegal postfix expression")
		return zero
	}
	old := g.value(e.X)
	slot, ok := g.slot(name)
	if !ok {
		return zero
	}
	op := "add"
	if e.Op.Kind == syntax.MinusMinus {
		op = "sub"
	}
	t := g.tmp()
	g.inst("%s = %s i32 %s, 1", t, op, old.v)
	g.inst("store i32 %s, ptr %s", t, slot)
	return operand{v: old.v}
}

// VisitScope gives the scope a result slot and an exit block. Returns
// inside it store to the slot and branch to the exit.
func (g *Generator) VisitScope(e *syntax.ScopeExpr) operand {
	fr := g.fn
	target := scopeTarget{slot: fr.alloca("scope"), exit: fr.label("scope.exit")}
	g.inst("store i32 0, ptr %s", target.slot)

	fr.scopes = append(fr.scopes, target)
	g.vars.WithNewScope(func() {
		for _, s := range e.Stmts {
			g.exec(s)
		}
	})
	fr.scopes = fr.scopes[:len(fr.scopes)-1]

	g.label(target.exit)
	return g.load(target.slot)
}

func (g *Generator) VisitFunc(e *syntax.FuncExpr) operand {
	return operand{fn: g.function(e)}
}

// VisitCall emits a direct call. The callee is looked up in the function
// table first and among statically bound names second.
func (g *Generator) VisitCall(e *syntax.Call) operand {
	name := e.Callee.Text
	info, ok := g.funcs.Get(name)
	if !ok {
		b, bound := g.vars.Lookup(name)
		switch {
		case !bound:
			g.errorf(e.Pos(), "undefined function '%s'", name)
			return zero
		case b.fn == nil:
			g.errorf(e.Pos(), "'%s' is not a function known at compile time", name)
			return zero
		}
		info = b.fn
	}
	if len(e.Args) != info.arity() {
		g.errorf(e.Pos(), "'%s' takes %d arguments, got %d", name, info.arity(), len(e.Args))
		return zero
	}

	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = "i32 " + g.value(a).v
	}
	t := g.tmp()
	g.inst("%s = call i32 @%s(%s)", t, info.sym, strings.Join(args, ", "))
	return operand{v: t}
}

// ----------------------------------------------------------------------------
// Statements

func (g *Generator) VisitVarDecl(s *syntax.VarDecl) struct{} {
	g.declare(s.Name, s.Init)
	return struct{}{}
}

func (g *Generator) VisitIf(s *syntax.IfStmt) struct{} {
	c := g.cond(s.Cond)
	then := g.fn.label("if.then")
	end := g.fn.label("if.end")
	els := end
	if s.Else != nil {
		els = g.fn.label("if.else")
	}
	g.term("br i1 %s, label %%%s, label %%%s", c, then, els)

	g.label(then)
	g.exec(s.Then)
	g.fn.body.emitBranch(end)
	if s.Else != nil {
		g.label(els)
		g.exec(s.Else)
	}
	g.label(end)
	return struct{}{}
}

func (g *Generator) VisitWhile(s *syntax.WhileStmt) struct{} {
	head := g.fn.label("while.cond")
	body := g.fn.label("while.body")
	end := g.fn.label("while.end")

	g.label(head)
	c := g.cond(s.Cond)
	g.term("br i1 %s, label %%%s, label %%%s", c, body, end)
	g.label(body)
	g.exec(s.Body)
	g.fn.body.emitBranch(head)
	g.label(end)
	return struct{}{}
}

func (g *Generator) VisitPrint(s *syntax.PrintStmt) struct{} {
	v := g.value(s.X)
	t := g.tmp()
	g.inst("%s = call i32 (ptr, ...) @%s(ptr @%s, i32 %s)", t, rtabi.FnPrintf, rtabi.FmtPrintName, v.v)
	return struct{}{}
}

func (g *Generator) VisitExprStmt(s *syntax.ExprStmt) struct{} {
	g.expr(s.X)
	return struct{}{}
}

func (g *Generator) VisitBlock(s *syntax.BlockStmt) struct{} {
	g.vars.WithNewScope(func() {
		for _, st := range s.Stmts {
			g.exec(st)
		}
	})
	return struct{}{}
}

// VisitReturn ends the nearest scope expression. Outside any scope
// expression it ends the program.
func (g *Generator) VisitReturn(s *syntax.ReturnStmt) struct{} {
	v := g.value(s.Result)
	scopes := g.fn.scopes
	if len(scopes) == 0 {
		g.term("ret i32 %d", rtabi.ExitOK)
		return struct{}{}
	}
	target := scopes[len(scopes)-1]
	g.inst("store i32 %s, ptr %s", v.v, target.slot)
	g.term("br label %%%s", target.exit)
	return struct{}{}
}

func (g *Generator) VisitNull(s *syntax.NullStmt) struct{} {
	return struct{}{}
}

func (g *Generator) VisitProgram(s *syntax.Program) struct{} {
	for _, st := range s.Body {
		g.exec(st)
	}
	g.term("ret i32 %d", rtabi.ExitOK)
	return struct{}{}
}
