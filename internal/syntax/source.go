package syntax

import (
	"io"
	"unicode/utf8"
)

// source reads a UTF-8 buffer one rune at a time and tracks line and column.
type source struct {
	buf      []byte
	filename string

	line, col uint32 // position of ch
	ch        rune   // current character, -1 at EOF
	offs      int    // byte offset just past ch
	start     int    // byte offset of ch

	errh func(line, col uint32, msg string)
}

// newSource reads all of src into memory. Read failures are reported
// through errh and leave the source empty.
func newSource(filename string, src io.Reader, errh func(line, col uint32, msg string)) *source {
	s := &source{
		filename: filename,
		line:     1,
		ch:       -1, // before the first character: nextch must not advance the line
		errh:     errh,
	}

	var err error
	s.buf, err = io.ReadAll(src)
	if err != nil {
		s.error("error reading source: " + err.Error())
		s.buf = nil
	}

	s.nextch()
	return s
}

// nextch advances to the next character.
//
// (line, col) describe ch after the call. The first call moves from the
// initial col 0 to col 1.
func (s *source) nextch() {
	if s.ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}

	s.start = s.offs
	if s.offs >= len(s.buf) {
		s.ch = -1
		return
	}

	r, width := utf8.DecodeRune(s.buf[s.offs:])
	if r == utf8.RuneError && width == 1 {
		s.error("invalid UTF-8 encoding")
	}
	s.ch = r
	s.offs += width
}

// peek returns the character after ch without consuming anything.
func (s *source) peek() rune {
	if s.offs >= len(s.buf) {
		return -1
	}
	r, _ := utf8.DecodeRune(s.buf[s.offs:])
	return r
}

func (s *source) pos() Pos {
	return NewPos(s.filename, s.line, s.col)
}

// segment returns a copy of buf[from:s.start].
func (s *source) segment(from int) string {
	return string(s.buf[from:s.start])
}

func (s *source) error(msg string) {
	if s.errh != nil {
		s.errh(s.line, s.col, msg)
	}
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_'
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
