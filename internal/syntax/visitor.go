package syntax

import "fmt"

// ExprVisitor handles every expression kind. A consumer that misses a kind
// does not satisfy the interface.
type ExprVisitor[R any] interface {
	VisitLiteral(*Literal) R
	VisitGrouping(*Grouping) R
	VisitVar(*Var) R
	VisitInput(*InputExpr) R
	VisitAssign(*Assign) R
	VisitUnary(*Unary) R
	VisitBinary(*Binary) R
	VisitPostfix(*Postfix) R
	VisitScope(*ScopeExpr) R
	VisitFunc(*FuncExpr) R
	VisitCall(*Call) R
}

// StmtVisitor handles every statement kind.
type StmtVisitor[R any] interface {
	VisitVarDecl(*VarDecl) R
	VisitIf(*IfStmt) R
	VisitWhile(*WhileStmt) R
	VisitPrint(*PrintStmt) R
	VisitExprStmt(*ExprStmt) R
	VisitBlock(*BlockStmt) R
	VisitReturn(*ReturnStmt) R
	VisitNull(*NullStmt) R
	VisitProgram(*Program) R
}

// Visitor is a consumer of the whole tree with expression results of type
// E and statement results of type S.
type Visitor[E, S any] interface {
	ExprVisitor[E]
	StmtVisitor[S]
}

// VisitExpr dispatches e to the matching method of v.
func VisitExpr[R any](v ExprVisitor[R], e Expr) R {
	switch e := e.(type) {
	case *Literal:
		return v.VisitLiteral(e)
	case *Grouping:
		return v.VisitGrouping(e)
	case *Var:
		return v.VisitVar(e)
	case *InputExpr:
		return v.VisitInput(e)
	case *Assign:
		return v.VisitAssign(e)
	case *Unary:
		return v.VisitUnary(e)
	case *Binary:
		return v.VisitBinary(e)
	case *Postfix:
		return v.VisitPostfix(e)
	case *ScopeExpr:
		return v.VisitScope(e)
	case *FuncExpr:
		return v.VisitFunc(e)
	case *Call:
		return v.VisitCall(e)
	}
	panic(fmt.Sprintf("syntax: unexpected expression %T", e))
}

// VisitStmt dispatches s to the matching method of v.
func VisitStmt[R any](v StmtVisitor[R], s Stmt) R {
	switch s := s.(type) {
	case *VarDecl:
		return v.VisitVarDecl(s)
	case *IfStmt:
		return v.VisitIf(s)
	case *WhileStmt:
		return v.VisitWhile(s)
	case *PrintStmt:
		return v.VisitPrint(s)
	case *ExprStmt:
		return v.VisitExprStmt(s)
	case *BlockStmt:
		return v.VisitBlock(s)
	case *ReturnStmt:
		return v.VisitReturn(s)
	case *NullStmt:
		return v.VisitNull(s)
	case *Program:
		return v.VisitProgram(s)
	}
	panic(fmt.Sprintf("syntax: unexpected statement %T", s))
}
