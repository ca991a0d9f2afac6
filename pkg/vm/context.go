package vm

import (
	"github.com/n3ledger/n3core/pkg/vm/opcode"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// slots is a fixed-size, independently-indexable register file backing
// local variables, arguments, or static fields (INITSLOT/INITSSLOT).
type slots []stackitem.Item

func newSlots(n int) slots {
	if n == 0 {
		return nil
	}
	return make(slots, n)
}

func (s slots) get(i int) stackitem.Item {
	if i < 0 || i >= len(s) {
		panic(ErrInvalidOpcode)
	}
	v := s[i]
	if v == nil {
		return stackitem.Null{}
	}
	return v
}

func (s slots) set(i int, v stackitem.Item) {
	if i < 0 || i >= len(s) {
		panic(ErrInvalidOpcode)
	}
	s[i] = v
}

// tryBlock records one active TRY region's catch/finally targets and
// progress, enough to drive ENDTRY/ENDFINALLY/uncaught propagation.
type tryBlock struct {
	catchOffset   int
	hasCatch      bool
	finallyOffset int
	hasFinally    bool
	endOffset     int // where ENDTRY eventually jumps once finally (if any) completes
	inFinally     bool
	caught        bool // catch handler already entered once for this block
}

// Context is one invocation frame: a script plus its instruction pointer,
// register slots, and exception-handling state. Multiple contexts share a
// single evaluation stack and RefCounter via the owning VM, matching the
// engine's CALL semantics (a call pushes a new frame but keeps operands
// flowing through the same stack).
type Context struct {
	script     []byte
	ip         int
	callFlags  int
	statics    *slots
	locals     slots
	args       slots
	tryStack   []tryBlock
	scriptHash [20]byte // set by the VM on Load from the script's Hash160

	// NEF/manifest linkage is intentionally absent here: a Context is pure
	// VM state. The interop layer maps scriptHash to contract metadata.
}

// NewContext creates a fresh frame over script, with its own static slot
// set (used when loading a new, unrelated script).
func NewContext(script []byte) *Context {
	st := newSlots(0)
	return &Context{script: script, statics: &st}
}

// Next decodes the opcode at ip without advancing the instruction pointer.
func (c *Context) Next() opcode.Opcode {
	if c.ip >= len(c.script) {
		return opcode.RET
	}
	return opcode.Opcode(c.script[c.ip])
}

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// ScriptHash returns the Hash160 of this frame's script, as set by the
// VM on Load.
func (c *Context) ScriptHash() [20]byte { return c.scriptHash }

// CallFlags returns this frame's granted call-flag mask.
func (c *Context) CallFlags() int { return c.callFlags }

// Script returns this frame's underlying bytecode.
func (c *Context) Script() []byte { return c.script }

// Jump sets the instruction pointer to an absolute offset, validating
// bounds.
func (c *Context) Jump(pos int) {
	if pos < 0 || pos > len(c.script) {
		panic(ErrInvalidJumpTarget)
	}
	c.ip = pos
}

// atEnd reports whether the frame has run off the end of its script.
func (c *Context) atEnd() bool { return c.ip >= len(c.script) }

// readInstruction reads the opcode at ip plus any fixed or length-prefixed
// operand, returning the operand bytes and advancing ip past the whole
// instruction. The caller is responsible for interpreting the operand.
func (c *Context) readInstruction() (opcode.Opcode, []byte) {
	if c.ip >= len(c.script) {
		panic(ErrInvalidJumpTarget)
	}
	op := opcode.Opcode(c.script[c.ip])
	pos := c.ip + 1
	size := operandSize(op)
	var operand []byte
	switch {
	case size >= 0:
		if pos+size > len(c.script) {
			panic(ErrInvalidOpcode)
		}
		operand = c.script[pos : pos+size]
		pos += size
	default:
		lenBytes := -size
		if pos+lenBytes > len(c.script) {
			panic(ErrInvalidOpcode)
		}
		n := 0
		for i := 0; i < lenBytes; i++ {
			n |= int(c.script[pos+i]) << (8 * i)
		}
		pos += lenBytes
		if pos+n > len(c.script) {
			panic(ErrInvalidOpcode)
		}
		operand = c.script[pos : pos+n]
		pos += n
	}
	c.ip = pos
	return op, operand
}

// initSlot allocates fresh local/argument slots for INITSLOT; INITSSLOT's
// static slot set is allocated by initStaticSlot.
func (c *Context) initSlot(nLocal, nArg int) {
	c.locals = newSlots(nLocal)
	c.args = newSlots(nArg)
}

func (c *Context) initStaticSlot(n int) {
	st := newSlots(n)
	c.statics = &st
}

// Clone creates a new frame sharing this context's script, static slots,
// and call flags but with a fresh instruction pointer and empty
// local/argument slots and try-stack — used by CALL.
func (c *Context) Clone(entry int) *Context {
	return &Context{
		script:     c.script,
		ip:         entry,
		callFlags:  c.callFlags,
		statics:    c.statics,
		scriptHash: c.scriptHash,
	}
}
