package syntax

// Walker is the default tree walker: every method visits all children and
// nothing else. Consumers embed it and override the kinds they care about.
//
// Go has no virtual dispatch through embedding, so recursion goes through
// Self. Set Self to the embedding value; a nil Self walks with the plain
// Walker.
type Walker struct {
	Self Visitor[struct{}, struct{}]
}

func (w *Walker) self() Visitor[struct{}, struct{}] {
	if w.Self != nil {
		return w.Self
	}
	return w
}

// Expr walks e.
func (w *Walker) Expr(e Expr) {
	if e != nil {
		VisitExpr[struct{}](w.self(), e)
	}
}

// Stmt walks s.
func (w *Walker) Stmt(s Stmt) {
	if s != nil {
		VisitStmt[struct{}](w.self(), s)
	}
}

// Stmts walks list in order.
func (w *Walker) Stmts(list []Stmt) {
	for _, s := range list {
		w.Stmt(s)
	}
}

func (w *Walker) VisitLiteral(*Literal) struct{} { return struct{}{} }

func (w *Walker) VisitGrouping(e *Grouping) struct{} {
	w.Expr(e.X)
	return struct{}{}
}

func (w *Walker) VisitVar(*Var) struct{} { return struct{}{} }

func (w *Walker) VisitInput(*InputExpr) struct{} { return struct{}{} }

func (w *Walker) VisitAssign(e *Assign) struct{} {
	w.Expr(e.Value)
	return struct{}{}
}

func (w *Walker) VisitUnary(e *Unary) struct{} {
	w.Expr(e.X)
	return struct{}{}
}

func (w *Walker) VisitBinary(e *Binary) struct{} {
	w.Expr(e.X)
	w.Expr(e.Y)
	return struct{}{}
}

func (w *Walker) VisitPostfix(e *Postfix) struct{} {
	w.Expr(e.X)
	return struct{}{}
}

func (w *Walker) VisitScope(e *ScopeExpr) struct{} {
	w.Stmts(e.Stmts)
	return struct{}{}
}

func (w *Walker) VisitFunc(e *FuncExpr) struct{} {
	if e.Body != nil {
		w.Expr(e.Body)
	}
	return struct{}{}
}

func (w *Walker) VisitCall(e *Call) struct{} {
	for _, a := range e.Args {
		w.Expr(a)
	}
	return struct{}{}
}

func (w *Walker) VisitVarDecl(s *VarDecl) struct{} {
	w.Expr(s.Init)
	return struct{}{}
}

func (w *Walker) VisitIf(s *IfStmt) struct{} {
	w.Expr(s.Cond)
	w.Stmt(s.Then)
	w.Stmt(s.Else)
	return struct{}{}
}

func (w *Walker) VisitWhile(s *WhileStmt) struct{} {
	w.Expr(s.Cond)
	w.Stmt(s.Body)
	return struct{}{}
}

func (w *Walker) VisitPrint(s *PrintStmt) struct{} {
	w.Expr(s.X)
	return struct{}{}
}

func (w *Walker) VisitExprStmt(s *ExprStmt) struct{} {
	w.Expr(s.X)
	return struct{}{}
}

func (w *Walker) VisitBlock(s *BlockStmt) struct{} {
	w.Stmts(s.Stmts)
	return struct{}{}
}

func (w *Walker) VisitReturn(s *ReturnStmt) struct{} {
	w.Expr(s.Result)
	return struct{}{}
}

func (w *Walker) VisitNull(*NullStmt) struct{} { return struct{}{} }

func (w *Walker) VisitProgram(s *Program) struct{} {
	w.Stmts(s.Body)
	return struct{}{}
}

// Inspect traverses the tree rooted at n in depth-first order, calling f
// for each node. Children are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range children(n) {
		Inspect(c, f)
	}
}

// children lists the direct child nodes of n, skipping absent ones.
func children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	addStmts := func(list []Stmt) {
		for _, s := range list {
			add(s)
		}
	}

	switch n := n.(type) {
	case *Grouping:
		add(n.X)
	case *Assign:
		add(n.Value)
	case *Unary:
		add(n.X)
	case *Binary:
		add(n.X)
		add(n.Y)
	case *Postfix:
		add(n.X)
	case *ScopeExpr:
		addStmts(n.Stmts)
	case *FuncExpr:
		if n.Body != nil {
			add(n.Body)
		}
	case *Call:
		for _, a := range n.Args {
			add(a)
		}
	case *VarDecl:
		add(n.Init)
	case *IfStmt:
		add(n.Cond)
		add(n.Then)
		if n.Else != nil {
			add(n.Else)
		}
	case *WhileStmt:
		add(n.Cond)
		add(n.Body)
	case *PrintStmt:
		add(n.X)
	case *ExprStmt:
		add(n.X)
	case *BlockStmt:
		addStmts(n.Stmts)
	case *ReturnStmt:
		add(n.Result)
	case *Program:
		addStmts(n.Body)
	}
	return out
}

// NestedFuncs returns the named function expressions directly inside n,
// in source order. The bodies of those functions are not searched; each
// function registers its own nested functions when it is reached.
func NestedFuncs(n Node) []*FuncExpr {
	var out []*FuncExpr
	Inspect(n, func(c Node) bool {
		f, ok := c.(*FuncExpr)
		if !ok || c == n {
			return true
		}
		if f.Name != nil {
			out = append(out, f)
		}
		return false
	})
	return out
}
