// Package syntax implements the PRSL front end: scanning, the syntax tree,
// its visitor protocol and the recursive-descent parser.
package syntax

import "fmt"

// Kind is the lexical class of a token.
type Kind uint8

const (
	EOF   Kind = iota // end of input
	Error             // lexical error

	Ident  // x, counter
	Number // 42
	Input  // ?

	// Operators
	Equal        // =
	EqualEqual   // ==
	NotEqual     // !=
	Less         // <
	LessEqual    // <=
	Greater      // >
	GreaterEqual // >=
	Plus         // +
	PlusPlus     // ++
	Minus        // -
	MinusMinus   // --
	Star         // *
	Slash        // /

	// Delimiters
	LeftParen  // (
	RightParen // )
	LeftBrace  // {
	RightBrace // }
	Comma      // ,
	Semicolon  // ;
	Colon      // :

	// Keywords
	If
	Else
	While
	Print
	Func
	Return

	kindCount
)

var kindNames = [...]string{
	EOF:    "EOF",
	Error:  "ERROR",
	Ident:  "IDENT",
	Number: "NUMBER",
	Input:  "?",

	Equal:        "=",
	EqualEqual:   "==",
	NotEqual:     "!=",
	Less:         "<",
	LessEqual:    "<=",
	Greater:      ">",
	GreaterEqual: ">=",
	Plus:         "+",
	PlusPlus:     "++",
	Minus:        "-",
	MinusMinus:   "--",
	Star:         "*",
	Slash:        "/",

	LeftParen:  "(",
	RightParen: ")",
	LeftBrace:  "{",
	RightBrace: "}",
	Comma:      ",",
	Semicolon:  ";",
	Colon:      ":",

	If:     "if",
	Else:   "else",
	While:  "while",
	Print:  "print",
	Func:   "func",
	Return: "return",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= If && k <= Return
}

// IsComparison reports whether k is one of == != < <= > >=.
func (k Kind) IsComparison() bool {
	return k >= EqualEqual && k <= GreaterEqual
}

var keywords = map[string]Kind{
	"if":     If,
	"else":   Else,
	"while":  While,
	"print":  Print,
	"func":   Func,
	"return": Return,
}

// LookupKeyword returns the keyword kind for ident, or Ident.
func LookupKeyword(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Ident
}

// Token is a lexical unit. Text is an owned copy of the source slice, so
// tokens (and the trees holding them) stay valid after the source buffer
// is released.
//
// Two tokens are the same key when their Text matches; Kind and position do
// not take part in equality.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos // first character
	End  Pos // first character after the token
}

// Equal reports whether t and u spell the same lexeme.
func (t Token) Equal(u Token) bool {
	return t.Text == u.Text
}

// Key returns the environment key for t.
func (t Token) Key() string {
	return t.Text
}

// String renders the token the way diagnostics quote it.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case Ident, Number, Error:
		return t.Text
	}
	return t.Kind.String()
}

// NewIdent returns an identifier token without a source position.
// The parser uses it for synthesized names.
func NewIdent(name string) Token {
	return Token{Kind: Ident, Text: name}
}
