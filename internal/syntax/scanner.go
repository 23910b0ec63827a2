package syntax

import (
	"fmt"
	"io"
)

// Scanner splits PRSL source into tokens.
type Scanner struct {
	source
	tok Token
}

// NewScanner returns a scanner over src. errh receives lexical errors; it
// may be nil.
func NewScanner(filename string, src io.Reader, errh func(line, col uint32, msg string)) *Scanner {
	return &Scanner{source: *newSource(filename, src, errh)}
}

// Token returns the most recently scanned token.
func (s *Scanner) Token() Token {
	return s.tok
}

// Next scans the next token. After EOF it keeps returning EOF.
// Malformed input yields an Error token after reporting through errh.
func (s *Scanner) Next() {
redo:
	for isWhitespace(s.ch) {
		s.nextch()
	}

	pos, from := s.pos(), s.start
	kind := s.scan()
	if kind < 0 {
		goto redo // comment
	}

	s.tok = Token{Kind: Kind(kind), Text: s.segment(from), Pos: pos, End: s.pos()}
	if s.tok.Kind == EOF {
		s.tok.Text = ""
	}
}

// scan consumes one token and returns its kind, or -1 after a comment.
func (s *Scanner) scan() int {
	ch := s.ch
	switch {
	case ch < 0:
		return int(EOF)
	case isLetter(ch):
		return int(s.ident())
	case isDigit(ch):
		for isDigit(s.ch) {
			s.nextch()
		}
		return int(Number)
	}

	s.nextch()
	switch ch {
	case '?':
		return int(Input)
	case '(':
		return int(LeftParen)
	case ')':
		return int(RightParen)
	case '{':
		return int(LeftBrace)
	case '}':
		return int(RightBrace)
	case ',':
		return int(Comma)
	case ';':
		return int(Semicolon)
	case ':':
		return int(Colon)
	case '*':
		return int(Star)
	case '+':
		return int(s.pair('+', PlusPlus, Plus))
	case '-':
		return int(s.pair('-', MinusMinus, Minus))
	case '=':
		return int(s.pair('=', EqualEqual, Equal))
	case '<':
		return int(s.pair('=', LessEqual, Less))
	case '>':
		return int(s.pair('=', GreaterEqual, Greater))
	case '!':
		if s.ch == '=' {
			s.nextch()
			return int(NotEqual)
		}
		s.error("expected '=' after '!'")
		return int(Error)
	case '/':
		switch s.ch {
		case '/':
			s.lineComment()
			return -1
		case '*':
			if !s.blockComment() {
				return int(Error)
			}
			return -1
		}
		return int(Slash)
	}

	s.error(fmt.Sprintf("unexpected character %q", ch))
	return int(Error)
}

// pair returns two if the current character is next (consuming it),
// otherwise one.
func (s *Scanner) pair(next rune, two, one Kind) Kind {
	if s.ch == next {
		s.nextch()
		return two
	}
	return one
}

func (s *Scanner) ident() Kind {
	from := s.start
	for isLetter(s.ch) || isDigit(s.ch) {
		s.nextch()
	}
	return LookupKeyword(s.segment(from))
}

// lineComment skips from the second '/' to the end of the line.
func (s *Scanner) lineComment() {
	for s.ch != '\n' && s.ch >= 0 {
		s.nextch()
	}
}

// blockComment skips a /* */ comment. The opening '/' is consumed and ch
// is the '*'. Block comments do not nest.
func (s *Scanner) blockComment() bool {
	line, col := s.line, s.col-1
	s.nextch()
	for s.ch >= 0 {
		if s.ch == '*' && s.peek() == '/' {
			s.nextch()
			s.nextch()
			return true
		}
		s.nextch()
	}
	if s.errh != nil {
		s.errh(line, col, "multiline comment has no termination")
	}
	return false
}

// Tokenize scans all of src and returns its tokens, ending with EOF.
func Tokenize(filename string, src io.Reader, errh func(line, col uint32, msg string)) []Token {
	s := NewScanner(filename, src, errh)
	var toks []Token
	for {
		s.Next()
		toks = append(toks, s.tok)
		if s.tok.Kind == EOF {
			return toks
		}
	}
}
