package codegen

import (
	"bytes"
	"fmt"
)

// emitter accumulates the IR text of one function body and tracks whether
// the current basic block already has its terminator.
type emitter struct {
	buf        bytes.Buffer
	tmp        int  // counter for anonymous temporaries (%t0, %t1, ...)
	dead       int  // counter for unreachable blocks (dead.0, dead.1, ...)
	terminated bool // the open block ends in br, ret or unreachable
}

// emit writes a formatted line to the output (no indentation).
func (e *emitter) emit(format string, args ...interface{}) {
	fmt.Fprintf(&e.buf, format+"\n", args...)
}

// emitComment writes a comment line.
func (e *emitter) emitComment(text string) {
	e.emitInst("; %s", text)
}

// emitLabel opens the block name. An open block falls through into it.
func (e *emitter) emitLabel(name string) {
	if !e.terminated {
		e.emitInst("br label %%%s", name)
	}
	e.emit("%s:", name)
	e.terminated = false
}

// emitInst writes an indented instruction line. Code following a
// terminator lands in a fresh unreachable block.
func (e *emitter) emitInst(format string, args ...interface{}) {
	if e.terminated {
		e.emit("dead.%d:", e.dead)
		e.dead++
		e.terminated = false
	}
	fmt.Fprintf(&e.buf, "  "+format+"\n", args...)
}

// emitTerm writes a terminator and closes the block.
func (e *emitter) emitTerm(format string, args ...interface{}) {
	e.emitInst(format, args...)
	e.terminated = true
}

// emitBranch jumps to label unless the block is already closed.
func (e *emitter) emitBranch(label string) {
	if !e.terminated {
		e.emitTerm("br label %%%s", label)
	}
}

// nextTmp returns the next anonymous temporary name (%t0, %t1, ...).
func (e *emitter) nextTmp() string {
	name := fmt.Sprintf("%%t%d", e.tmp)
	e.tmp++
	return name
}

func (e *emitter) String() string {
	return e.buf.String()
}
