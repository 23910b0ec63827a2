package syntax

import (
	"encoding/json"
	"io"
)

// FprintJSON writes a JSON representation of the tree rooted at n to w.
func FprintJSON(w io.Writer, n Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(n))
}

type object = map[string]interface{}

func toJSON(n Node) interface{} {
	var j jsonBuilder
	switch n := n.(type) {
	case Expr:
		return VisitExpr[interface{}](j, n)
	case Stmt:
		return VisitStmt[interface{}](j, n)
	}
	return nil
}

// jsonBuilder converts nodes into generic JSON values.
type jsonBuilder struct{}

func (j jsonBuilder) node(typ string, n Node, kv ...interface{}) object {
	m := object{"type": typ, "pos": n.Pos().String()}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func (j jsonBuilder) expr(e Expr) interface{} {
	if e == nil {
		return nil
	}
	return VisitExpr[interface{}](j, e)
}

func (j jsonBuilder) stmt(s Stmt) interface{} {
	if s == nil {
		return nil
	}
	return VisitStmt[interface{}](j, s)
}

func (j jsonBuilder) stmts(list []Stmt) []interface{} {
	out := make([]interface{}, len(list))
	for i, s := range list {
		out[i] = j.stmt(s)
	}
	return out
}

func tokenNames(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func (j jsonBuilder) VisitLiteral(e *Literal) interface{} {
	return j.node("Literal", e, "value", e.Value)
}

func (j jsonBuilder) VisitGrouping(e *Grouping) interface{} {
	return j.node("Grouping", e, "x", j.expr(e.X))
}

func (j jsonBuilder) VisitVar(e *Var) interface{} {
	return j.node("Var", e, "name", e.Name.Text)
}

func (j jsonBuilder) VisitInput(e *InputExpr) interface{} {
	return j.node("Input", e)
}

func (j jsonBuilder) VisitAssign(e *Assign) interface{} {
	return j.node("Assign", e, "name", e.Name.Text, "value", j.expr(e.Value))
}

func (j jsonBuilder) VisitUnary(e *Unary) interface{} {
	return j.node("Unary", e, "op", e.Op.Kind.String(), "x", j.expr(e.X))
}

func (j jsonBuilder) VisitBinary(e *Binary) interface{} {
	return j.node("Binary", e, "op", e.Op.Kind.String(), "x", j.expr(e.X), "y", j.expr(e.Y))
}

func (j jsonBuilder) VisitPostfix(e *Postfix) interface{} {
	return j.node("Postfix", e, "op", e.Op.Kind.String(), "x", j.expr(e.X))
}

func (j jsonBuilder) VisitScope(e *ScopeExpr) interface{} {
	return j.node("Scope", e, "stmts", j.stmts(e.Stmts))
}

func (j jsonBuilder) VisitFunc(e *FuncExpr) interface{} {
	m := j.node("Func", e, "params", tokenNames(e.Params), "body", j.expr(e.Body))
	if e.Name != nil {
		m["name"] = e.Name.Text
	}
	return m
}

func (j jsonBuilder) VisitCall(e *Call) interface{} {
	args := make([]interface{}, len(e.Args))
	for i, a := range e.Args {
		args[i] = j.expr(a)
	}
	return j.node("Call", e, "callee", e.Callee.Text, "args", args)
}

func (j jsonBuilder) VisitVarDecl(s *VarDecl) interface{} {
	return j.node("VarDecl", s, "name", s.Name.Text, "init", j.expr(s.Init))
}

func (j jsonBuilder) VisitIf(s *IfStmt) interface{} {
	m := j.node("If", s, "cond", j.expr(s.Cond), "then", j.stmt(s.Then))
	if s.Else != nil {
		m["else"] = j.stmt(s.Else)
	}
	return m
}

func (j jsonBuilder) VisitWhile(s *WhileStmt) interface{} {
	return j.node("While", s, "cond", j.expr(s.Cond), "body", j.stmt(s.Body))
}

func (j jsonBuilder) VisitPrint(s *PrintStmt) interface{} {
	return j.node("Print", s, "x", j.expr(s.X))
}

func (j jsonBuilder) VisitExprStmt(s *ExprStmt) interface{} {
	return j.node("ExprStmt", s, "x", j.expr(s.X))
}

func (j jsonBuilder) VisitBlock(s *BlockStmt) interface{} {
	return j.node("Block", s, "stmts", j.stmts(s.Stmts))
}

func (j jsonBuilder) VisitReturn(s *ReturnStmt) interface{} {
	return j.node("Return", s,
		"result", j.expr(s.Result),
		"implicit", s.Implicit,
		"func", s.Func,
	)
}

func (j jsonBuilder) VisitNull(s *NullStmt) interface{} {
	return j.node("Null", s)
}

func (j jsonBuilder) VisitProgram(s *Program) interface{} {
	return j.node("Program", s, "params", tokenNames(s.Params), "body", j.stmts(s.Body))
}
