package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented textual dump of the tree rooted at n.
func Fprint(w io.Writer, n Node) {
	p := &printer{w: w}
	switch n := n.(type) {
	case Expr:
		VisitExpr[struct{}](p, n)
	case Stmt:
		VisitStmt[struct{}](p, n)
	}
}

type printer struct {
	w      io.Writer
	indent int
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

// field prints a labelled child one level deeper.
func (p *printer) field(label string, n Node) {
	p.indent++
	p.printf("%s:", label)
	p.indent++
	switch n := n.(type) {
	case Expr:
		VisitExpr[struct{}](p, n)
	case Stmt:
		VisitStmt[struct{}](p, n)
	}
	p.indent -= 2
}

func (p *printer) list(label string, stmts []Stmt) {
	p.indent++
	p.printf("%s: (%d)", label, len(stmts))
	p.indent++
	for _, s := range stmts {
		VisitStmt[struct{}](p, s)
	}
	p.indent -= 2
}

func (p *printer) VisitLiteral(e *Literal) struct{} {
	p.printf("Literal %d %s", e.Value, e.pos)
	return struct{}{}
}

func (p *printer) VisitGrouping(e *Grouping) struct{} {
	p.printf("Grouping %s", e.pos)
	p.field("X", e.X)
	return struct{}{}
}

func (p *printer) VisitVar(e *Var) struct{} {
	p.printf("Var %s %s", e.Name.Text, e.pos)
	return struct{}{}
}

func (p *printer) VisitInput(e *InputExpr) struct{} {
	p.printf("Input %s", e.pos)
	return struct{}{}
}

func (p *printer) VisitAssign(e *Assign) struct{} {
	p.printf("Assign %s %s", e.Name.Text, e.pos)
	p.field("Value", e.Value)
	return struct{}{}
}

func (p *printer) VisitUnary(e *Unary) struct{} {
	p.printf("Unary %s %s", e.Op.Kind, e.pos)
	p.field("X", e.X)
	return struct{}{}
}

func (p *printer) VisitBinary(e *Binary) struct{} {
	p.printf("Binary %s %s", e.Op.Kind, e.pos)
	p.field("X", e.X)
	p.field("Y", e.Y)
	return struct{}{}
}

func (p *printer) VisitPostfix(e *Postfix) struct{} {
	p.printf("Postfix %s %s", e.Op.Kind, e.pos)
	p.field("X", e.X)
	return struct{}{}
}

func (p *printer) VisitScope(e *ScopeExpr) struct{} {
	p.printf("Scope %s", e.pos)
	p.list("Stmts", e.Stmts)
	return struct{}{}
}

func (p *printer) VisitFunc(e *FuncExpr) struct{} {
	name := e.DisplayName()
	if name == "" {
		name = "<anonymous>"
	}
	params := make([]string, len(e.Params))
	for i, t := range e.Params {
		params[i] = t.Text
	}
	p.printf("Func %s (%s) %s", name, strings.Join(params, ", "), e.pos)
	p.field("Body", e.Body)
	return struct{}{}
}

func (p *printer) VisitCall(e *Call) struct{} {
	p.printf("Call %s %s", e.Callee.Text, e.pos)
	for i, a := range e.Args {
		p.field(fmt.Sprintf("Arg[%d]", i), a)
	}
	return struct{}{}
}

func (p *printer) VisitVarDecl(s *VarDecl) struct{} {
	p.printf("VarDecl %s %s", s.Name.Text, s.pos)
	p.field("Init", s.Init)
	return struct{}{}
}

func (p *printer) VisitIf(s *IfStmt) struct{} {
	p.printf("If %s", s.pos)
	p.field("Cond", s.Cond)
	p.field("Then", s.Then)
	if s.Else != nil {
		p.field("Else", s.Else)
	}
	return struct{}{}
}

func (p *printer) VisitWhile(s *WhileStmt) struct{} {
	p.printf("While %s", s.pos)
	p.field("Cond", s.Cond)
	p.field("Body", s.Body)
	return struct{}{}
}

func (p *printer) VisitPrint(s *PrintStmt) struct{} {
	p.printf("Print %s", s.pos)
	p.field("X", s.X)
	return struct{}{}
}

func (p *printer) VisitExprStmt(s *ExprStmt) struct{} {
	p.printf("ExprStmt %s", s.pos)
	p.field("X", s.X)
	return struct{}{}
}

func (p *printer) VisitBlock(s *BlockStmt) struct{} {
	p.printf("Block %s", s.pos)
	p.list("Stmts", s.Stmts)
	return struct{}{}
}

func (p *printer) VisitReturn(s *ReturnStmt) struct{} {
	var flags []string
	if s.Implicit {
		flags = append(flags, "implicit")
	}
	if s.Func {
		flags = append(flags, "func")
	}
	if len(flags) > 0 {
		p.printf("Return [%s] %s", strings.Join(flags, ","), s.pos)
	} else {
		p.printf("Return %s", s.pos)
	}
	p.field("Result", s.Result)
	return struct{}{}
}

func (p *printer) VisitNull(s *NullStmt) struct{} {
	p.printf("Null %s", s.pos)
	return struct{}{}
}

func (p *printer) VisitProgram(s *Program) struct{} {
	p.printf("Program %s", s.pos)
	p.list("Body", s.Body)
	return struct{}{}
}
