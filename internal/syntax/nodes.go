package syntax

// ----------------------------------------------------------------------------
// Interfaces
//
// The tree has two closed node classes: expressions and statements. Both are
// sealed by unexported marker methods, so the dispatchers in visitor.go see
// every possible kind.

// Node is implemented by all syntax tree nodes.
type Node interface {
	Pos() Pos
	aNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	aExpr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	aStmt()
}

type node struct {
	pos Pos
}

func (n *node) Pos() Pos { return n.pos }
func (n *node) aNode()   {}

type expr struct{ node }

func (*expr) aExpr() {}

type stmt struct{ node }

func (*stmt) aStmt() {}

// ----------------------------------------------------------------------------
// Expressions

// Literal is an integer constant.
type Literal struct {
	expr
	Value int32
}

// Grouping is a parenthesized expression: (X)
type Grouping struct {
	expr
	X Expr
}

// Var reads a variable.
type Var struct {
	expr
	Name Token
}

// InputExpr reads one integer from the input sink: ?
type InputExpr struct {
	expr
}

// Assign stores Value into Name and yields the stored value: Name = Value
type Assign struct {
	expr
	Name  Token
	Value Expr
}

// Unary is a prefix operation. Op is always Minus.
type Unary struct {
	expr
	Op Token
	X  Expr
}

// Binary is an arithmetic or comparison operation.
type Binary struct {
	expr
	Op   Token
	X, Y Expr
}

// Postfix is X++ or X--. X must be a Var or an Assign.
type Postfix struct {
	expr
	Op Token
	X  Expr
}

// ScopeExpr is a braced statement list used as an expression. After
// parsing, its last statement is always a ReturnStmt carrying its value.
type ScopeExpr struct {
	expr
	Stmts  []Stmt
	Rbrace Pos
}

// FuncExpr is a function value: func(Params) [: Name] Body
//
// Name is nil for anonymous functions. Ret is the return statement ending
// Body, kept for quick access by consumers.
type FuncExpr struct {
	expr
	Tok    Token // the func keyword
	Name   *Token
	Params []Token
	Body   *ScopeExpr
	Ret    *ReturnStmt
}

// DisplayName returns the function's name, or "" when anonymous.
func (f *FuncExpr) DisplayName() string {
	if f.Name == nil {
		return ""
	}
	return f.Name.Text
}

// Call invokes the function named Callee.
type Call struct {
	expr
	Callee Token
	Args   []Expr
}

// ----------------------------------------------------------------------------
// Statements

// VarDecl is Name = Init; at statement position.
type VarDecl struct {
	stmt
	Name Token
	Init Expr
}

// IfStmt is if (Cond) Then [else Else]. Else is nil when absent.
type IfStmt struct {
	stmt
	Cond Expr
	Then Stmt
	Else Stmt
}

// WhileStmt is while (Cond) Body.
type WhileStmt struct {
	stmt
	Cond Expr
	Body Stmt
}

// PrintStmt writes one rendered value and a newline.
type PrintStmt struct {
	stmt
	X Expr
}

// ExprStmt evaluates X for its effects.
type ExprStmt struct {
	stmt
	X Expr
}

// BlockStmt is a braced statement list at statement position.
type BlockStmt struct {
	stmt
	Stmts  []Stmt
	Rbrace Pos
}

// ReturnStmt ends the nearest enclosing scope expression with Result.
//
// Implicit is set for returns synthesized by the parser. Func is set when
// the nearest enclosing scope expression is a function body.
type ReturnStmt struct {
	stmt
	Tok      Token
	Result   Expr
	Implicit bool
	Func     bool
}

// NullStmt is a lone semicolon.
type NullStmt struct {
	stmt
}

// Program is a whole source file, treated as a function with no
// parameters.
type Program struct {
	stmt
	Params []Token
	Body   []Stmt
}
