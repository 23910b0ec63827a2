package syntax

import (
	"io"
	"strconv"
)

// Maximum number of errors before aborting parse.
const maxErrors = 10

// SyntaxError is a lexical or syntax error.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// bailout unwinds the parser to the innermost declaration after an error.
type bailout struct{}

// scopeKind classifies an open scope expression.
type scopeKind uint8

const (
	plainScope scopeKind = iota
	funcScope
)

// Parser is a recursive-descent parser for PRSL. Each grammar rule is one
// method; operator precedence is the call chain
// assignment, comparison, addition, multiplication, unary, postfix, call,
// primary.
type Parser struct {
	scanner *Scanner

	tok  Token // current token
	peek Token // one token of lookahead

	errh   func(pos Pos, msg string)
	lexh   func(pos Pos, msg string)
	warnh  func(pos Pos, msg string)
	errcnt int
	first  error
	abort  bool

	scopes []scopeKind // open scope expressions, innermost last
	braces int         // open braces of any kind
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLexErrorHandler sends lexical errors to lexh instead of errh. They
// still count as parse errors.
func WithLexErrorHandler(lexh func(pos Pos, msg string)) ParserOption {
	return func(p *Parser) { p.lexh = lexh }
}

// NewParser returns a parser reading from src. Lexical and syntax errors
// are both reported through errh unless a lexical error handler is set.
func NewParser(filename string, src io.Reader, errh func(pos Pos, msg string), opts ...ParserOption) *Parser {
	p := &Parser{errh: errh}
	for _, opt := range opts {
		opt(p)
	}
	p.scanner = NewScanner(filename, src, func(line, col uint32, msg string) {
		h := p.errh
		if p.lexh != nil {
			h = p.lexh
		}
		p.reportTo(h, NewPos(filename, line, col), msg)
	})
	p.scan()
	p.next()
	return p
}

// SetWarningHandler installs the receiver for non-fatal diagnostics such
// as implicit returns.
func (p *Parser) SetWarningHandler(warnh func(pos Pos, msg string)) {
	p.warnh = warnh
}

// Errors returns the number of errors reported so far.
func (p *Parser) Errors() int {
	return p.errcnt
}

// FirstError returns the first error, or nil.
func (p *Parser) FirstError() error {
	return p.first
}

// ----------------------------------------------------------------------------
// Token navigation

// scan fills the lookahead slot, skipping error tokens the scanner has
// already reported.
func (p *Parser) scan() {
	for {
		p.scanner.Next()
		if p.scanner.Token().Kind != Error {
			break
		}
	}
	p.peek = p.scanner.Token()
}

func (p *Parser) next() {
	if p.abort {
		return
	}
	p.tok = p.peek
	if p.tok.Kind != EOF {
		p.scan()
	}
}

func (p *Parser) got(k Kind) bool {
	if p.tok.Kind == k {
		p.next()
		return true
	}
	return false
}

// want consumes a token of kind k or fails with msg.
func (p *Parser) want(k Kind, msg string) Token {
	t := p.tok
	if !p.got(k) {
		p.fail(msg)
	}
	return t
}

// ----------------------------------------------------------------------------
// Error handling

// report counts an error and forwards it. It is shared by the scanner and
// the parser.
func (p *Parser) report(pos Pos, msg string) {
	p.reportTo(p.errh, pos, msg)
}

func (p *Parser) reportTo(h func(pos Pos, msg string), pos Pos, msg string) {
	if p.abort {
		return
	}
	if p.errcnt == 0 {
		p.first = &SyntaxError{Pos: pos, Msg: msg}
	}
	p.errcnt++
	if h != nil {
		h(pos, msg)
	}
	if p.errcnt >= maxErrors {
		if p.errh != nil {
			p.errh(pos, "too many errors")
		}
		p.abort = true
		p.tok = Token{Kind: EOF, Pos: pos, End: pos}
	}
}

// errorAt reports msg quoting t.
func (p *Parser) errorAt(t Token, msg string) {
	if t.Kind == EOF {
		p.report(t.Pos, "at EOF: "+msg)
		return
	}
	p.report(t.Pos, "at '"+t.String()+"': "+msg)
}

// fail reports msg at the current token and unwinds to the innermost
// declaration.
func (p *Parser) fail(msg string) {
	p.errorAt(p.tok, msg)
	panic(bailout{})
}

func (p *Parser) warn(pos Pos, msg string) {
	if p.warnh != nil {
		p.warnh(pos, msg)
	}
}

// synchronize discards tokens up to a statement boundary: just past a
// semicolon, or before a statement keyword, or before the closing brace of
// an enclosing block. Braced groups met on the way are skipped whole.
func (p *Parser) synchronize() {
	depth := 0
	for p.tok.Kind != EOF {
		switch p.tok.Kind {
		case LeftBrace:
			depth++
		case RightBrace:
			if depth == 0 && p.braces > 0 {
				return
			}
			if depth > 0 {
				depth--
			}
		case Semicolon:
			if depth == 0 {
				p.next()
				return
			}
		case If, While, Print, Return:
			if depth == 0 {
				return
			}
		}
		p.next()
	}
}

// ----------------------------------------------------------------------------
// Declarations and statements

// Parse parses a whole source file.
func (p *Parser) Parse() *Program {
	prog := &Program{}
	prog.pos = p.tok.Pos
	for !p.abort && p.tok.Kind != EOF {
		if s := p.decl(); s != nil {
			prog.Body = append(prog.Body, s)
		}
	}
	return prog
}

// decl parses one declaration. A syntax error inside it is recovered here:
// the partial statement is dropped and the token stream resynchronized.
func (p *Parser) decl() (s Stmt) {
	start := p.tok
	scopes, braces := len(p.scopes), p.braces
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.scopes, p.braces = p.scopes[:scopes], braces
			if p.tok == start {
				p.next() // always make progress
			}
			p.synchronize()
			s = nil
		}
	}()

	if p.tok.Kind == Ident && p.peek.Kind == Equal {
		return p.varDecl()
	}
	return p.stmt()
}

// varDecl parses IDENT '=' expr ';'.
func (p *Parser) varDecl() Stmt {
	d := &VarDecl{Name: p.tok}
	d.pos = p.tok.Pos
	p.next()
	p.want(Equal, "expected '=' after identifier")
	d.Init = p.expr()
	p.want(Semicolon, "expected ';' after variable declaration")
	return d
}

func (p *Parser) stmt() Stmt {
	switch p.tok.Kind {
	case If:
		return p.ifStmt()
	case While:
		return p.whileStmt()
	case Print:
		return p.printStmt()
	case Return:
		return p.returnStmt()
	case LeftBrace:
		return p.blockStmt()
	case Semicolon:
		s := &NullStmt{}
		s.pos = p.tok.Pos
		p.next()
		return s
	}
	return p.exprStmt()
}

// ifStmt parses if '(' expr ')' stmt [else stmt].
func (p *Parser) ifStmt() Stmt {
	s := &IfStmt{}
	s.pos = p.tok.Pos
	p.next()
	p.want(LeftParen, "expected '(' after if")
	s.Cond = p.expr()
	p.want(RightParen, "expected ')' after if condition")
	s.Then = p.stmt()
	if p.got(Else) {
		s.Else = p.stmt()
	}
	return s
}

// whileStmt parses while '(' expr ')' stmt.
func (p *Parser) whileStmt() Stmt {
	s := &WhileStmt{}
	s.pos = p.tok.Pos
	p.next()
	p.want(LeftParen, "expected '(' after while")
	s.Cond = p.expr()
	p.want(RightParen, "expected ')' after while condition")
	s.Body = p.stmt()
	return s
}

func (p *Parser) printStmt() Stmt {
	s := &PrintStmt{}
	s.pos = p.tok.Pos
	p.next()
	s.X = p.expr()
	p.want(Semicolon, "expected ';' after print statement")
	return s
}

func (p *Parser) returnStmt() Stmt {
	s := &ReturnStmt{Tok: p.tok, Func: p.inFuncScope()}
	s.pos = p.tok.Pos
	p.next()
	s.Result = p.expr()
	if s.Func && returnsFunc(s.Result) {
		p.errorAt(s.Tok, "function cannot return a function")
	}
	p.want(Semicolon, "expected ';' after return value")
	return s
}

func (p *Parser) exprStmt() Stmt {
	s := &ExprStmt{}
	s.pos = p.tok.Pos
	s.X = p.expr()
	p.want(Semicolon, "expected ';' after expression")
	return s
}

// blockStmt parses '{' decl* '}' at statement position.
func (p *Parser) blockStmt() Stmt {
	b := &BlockStmt{}
	b.pos = p.tok.Pos
	b.Stmts, b.Rbrace = p.braced("expected '}' after block")
	return b
}

// braced parses a brace-enclosed declaration list starting at '{'.
func (p *Parser) braced(closeMsg string) ([]Stmt, Pos) {
	p.next() // {
	p.braces++
	var list []Stmt
	for !p.abort && p.tok.Kind != RightBrace && p.tok.Kind != EOF {
		if s := p.decl(); s != nil {
			list = append(list, s)
		}
	}
	rbrace := p.tok.Pos
	p.braces--
	p.want(RightBrace, closeMsg)
	return list, rbrace
}

// ----------------------------------------------------------------------------
// Scope and function expressions

func (p *Parser) inFuncScope() bool {
	return len(p.scopes) > 0 && p.scopes[len(p.scopes)-1] == funcScope
}

// scopeExpr parses '{' decl* '}' in expression position and rewrites its
// tail into a return statement: a trailing expression statement becomes an
// implicit return of its value, and a missing value becomes return 0.
func (p *Parser) scopeExpr(kind scopeKind) *ScopeExpr {
	e := &ScopeExpr{}
	e.pos = p.tok.Pos
	if p.tok.Kind != LeftBrace {
		p.fail("expected '{' before scope body")
	}

	p.scopes = append(p.scopes, kind)
	e.Stmts, e.Rbrace = p.braced("expected '}' after scope")
	p.scopes = p.scopes[:len(p.scopes)-1]

	isFunc := kind == funcScope
	if n := len(e.Stmts); n > 0 {
		switch last := e.Stmts[n-1].(type) {
		case *ReturnStmt:
			return e
		case *ExprStmt:
			e.Stmts[n-1] = implicitReturn(last.Pos(), last.X, isFunc)
			return e
		}
	}

	p.warn(e.Rbrace, "implicit return of 0")
	zero := &Literal{}
	zero.pos = e.Rbrace
	e.Stmts = append(e.Stmts, implicitReturn(e.Rbrace, zero, isFunc))
	return e
}

func implicitReturn(pos Pos, x Expr, isFunc bool) *ReturnStmt {
	r := &ReturnStmt{
		Tok:      Token{Kind: Return, Text: "return", Pos: pos, End: pos},
		Result:   x,
		Implicit: true,
		Func:     isFunc,
	}
	r.pos = pos
	return r
}

// funcExpr parses func '(' params ')' [':' IDENT] scopeExpr.
func (p *Parser) funcExpr() Expr {
	f := &FuncExpr{Tok: p.tok}
	f.pos = p.tok.Pos
	p.next()

	p.want(LeftParen, "expected '(' after func")
	if p.tok.Kind != RightParen {
		for {
			f.Params = append(f.Params, p.want(Ident, "expected parameter name"))
			if !p.got(Comma) {
				break
			}
		}
	}
	p.want(RightParen, "expected ')' after parameters")

	if p.got(Colon) {
		name := p.want(Ident, "expected function name after ':'")
		f.Name = &name
	}

	f.Body = p.scopeExpr(funcScope)
	f.Ret = f.Body.Stmts[len(f.Body.Stmts)-1].(*ReturnStmt)
	if f.Ret.Implicit && returnsFunc(f.Ret.Result) {
		p.errorAt(f.Ret.Tok, "function cannot return a function")
	}
	return f
}

func returnsFunc(x Expr) bool {
	for {
		switch e := x.(type) {
		case *FuncExpr:
			return true
		case *Grouping:
			x = e.X
		default:
			return false
		}
	}
}

// ----------------------------------------------------------------------------
// Expressions

func (p *Parser) expr() Expr {
	return p.assignment()
}

// assignment is right-associative and needs a bare variable on the left.
func (p *Parser) assignment() Expr {
	x := p.comparison()
	if p.tok.Kind != Equal {
		return x
	}

	eq := p.tok
	p.next()
	value := p.assignment()

	v, ok := x.(*Var)
	if !ok {
		p.errorAt(eq, "expected assignment target")
		panic(bailout{})
	}
	a := &Assign{Name: v.Name, Value: value}
	a.pos = x.Pos()
	return a
}

func (p *Parser) comparison() Expr {
	x := p.addition()
	for p.tok.Kind.IsComparison() {
		x = p.binary(x, p.addition)
	}
	return x
}

func (p *Parser) addition() Expr {
	x := p.multiplication()
	for p.tok.Kind == Plus || p.tok.Kind == Minus {
		x = p.binary(x, p.multiplication)
	}
	return x
}

func (p *Parser) multiplication() Expr {
	x := p.unary()
	for p.tok.Kind == Star || p.tok.Kind == Slash {
		x = p.binary(x, p.unary)
	}
	return x
}

// binary builds x op rhs() with op the current token.
func (p *Parser) binary(x Expr, rhs func() Expr) Expr {
	b := &Binary{Op: p.tok, X: x}
	b.pos = x.Pos()
	p.next()
	b.Y = rhs()
	return b
}

func (p *Parser) unary() Expr {
	if p.tok.Kind != Minus {
		return p.postfix()
	}
	u := &Unary{Op: p.tok}
	u.pos = p.tok.Pos
	p.next()
	u.X = p.postfix()
	return u
}

// postfix applies at most one ++ or -- to the preceding operand.
func (p *Parser) postfix() Expr {
	x := p.call()
	if p.tok.Kind != PlusPlus && p.tok.Kind != MinusMinus {
		return x
	}
	e := &Postfix{Op: p.tok, X: x}
	e.pos = x.Pos()
	p.next()
	return e
}

// call parses IDENT '(' args ')' or falls through to primary.
func (p *Parser) call() Expr {
	if p.tok.Kind != Ident || p.peek.Kind != LeftParen {
		return p.primary()
	}

	c := &Call{Callee: p.tok}
	c.pos = p.tok.Pos
	p.next() // IDENT
	p.next() // (
	if p.tok.Kind != RightParen {
		for {
			c.Args = append(c.Args, p.assignment())
			if !p.got(Comma) {
				break
			}
		}
	}
	p.want(RightParen, "expected ')' after arguments")
	return c
}

func (p *Parser) primary() Expr {
	switch p.tok.Kind {
	case Number:
		return p.literal()

	case LeftParen:
		g := &Grouping{}
		g.pos = p.tok.Pos
		p.next()
		g.X = p.expr()
		p.want(RightParen, "expected ')' after expression")
		return g

	case Ident:
		v := &Var{Name: p.tok}
		v.pos = p.tok.Pos
		p.next()
		return v

	case Input:
		in := &InputExpr{}
		in.pos = p.tok.Pos
		p.next()
		return in

	case LeftBrace:
		return p.scopeExpr(plainScope)

	case Func:
		return p.funcExpr()
	}

	p.fail("expected expression")
	return nil
}

func (p *Parser) literal() Expr {
	v, err := strconv.ParseInt(p.tok.Text, 10, 32)
	if err != nil {
		p.fail("literal is not a number")
	}
	lit := &Literal{Value: int32(v)}
	lit.pos = p.tok.Pos
	p.next()
	return lit
}

// Parse is a convenience wrapper that parses src in one call.
func Parse(filename string, src io.Reader, errh, warnh func(pos Pos, msg string)) (*Program, error) {
	p := NewParser(filename, src, errh)
	p.SetWarningHandler(warnh)
	prog := p.Parse()
	return prog, p.FirstError()
}
