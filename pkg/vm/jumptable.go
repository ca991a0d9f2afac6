package vm

import (
	"encoding/binary"
	"math/big"

	"github.com/n3ledger/n3core/pkg/vm/opcode"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
	"github.com/n3ledger/n3core/pkg/vm/vmstate"
)

// decodeLE interprets b as a little-endian two's-complement signed
// integer, mirroring the PUSHINT family's wire format.
func decodeLE(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	v := new(big.Int).SetBytes(be)
	if be[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		v.Sub(v, mod)
	}
	return v
}

func int8s(b []byte) int { return int(int8(b[0])) }
func int32le(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}
func uint16le(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func uint32le(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// throw drives exception propagation, unwinding try blocks in the current
// frame before falling back to the caller frame's, and faulting the VM
// only once no frame has an active handler left.
func (v *VM) throw(item stackitem.Item) {
	for {
		ctx := v.Context()
		if ctx == nil {
			v.uncaught = item
			v.state = vmstate.Fault
			return
		}
		for len(ctx.tryStack) > 0 {
			idx := len(ctx.tryStack) - 1
			block := ctx.tryStack[idx]
			switch block.caught {
			case false:
				if block.hasCatch {
					block.caught = true
					ctx.tryStack[idx] = block
					if err := v.estack.Push(item); err != nil {
						v.uncaught = item
						v.state = vmstate.Fault
						return
					}
					ctx.ip = block.catchOffset
					return
				}
				fallthrough
			case true:
				if !block.inFinally && block.hasFinally {
					block.inFinally = true
					v.pendingExc = item
					ctx.tryStack[idx] = block
					ctx.ip = block.finallyOffset
					return
				}
			}
			ctx.tryStack = ctx.tryStack[:idx]
		}
		v.istack = v.istack[:len(v.istack)-1]
	}
}

// execute dispatches a single decoded instruction. start is the byte
// offset of the instruction itself (jump/try offsets are relative to it).
func (v *VM) execute(ctx *Context, op opcode.Opcode, operand []byte, start int) {
	switch {
	case op == opcode.PUSHINT8 || op == opcode.PUSHINT16 || op == opcode.PUSHINT32 ||
		op == opcode.PUSHINT64 || op == opcode.PUSHINT128 || op == opcode.PUSHINT256:
		v.push(stackitem.NewBigInteger(decodeLE(operand)))
		return
	case opcode.IsPush(op):
		v.push(stackitem.NewBigInteger(big.NewInt(opcode.PushVal(op))))
		return
	}

	switch op {
	case opcode.PUSHT:
		v.push(stackitem.Boolean(true))
	case opcode.PUSHF:
		v.push(stackitem.Boolean(false))
	case opcode.PUSHNULL:
		v.push(stackitem.Null{})
	case opcode.PUSHA:
		off := int(int32le(operand))
		v.push(stackitem.NewPointer(start+off, ctx.script))
	case opcode.PUSHDATA1, opcode.PUSHDATA2, opcode.PUSHDATA4:
		v.push(stackitem.NewByteArray(operand))

	case opcode.NOP:

	// --- Flow control ---
	case opcode.JMP:
		ctx.Jump(start + int8s(operand))
	case opcode.JMPL:
		ctx.Jump(start + int(int32le(operand)))
	case opcode.JMPIF:
		v.jumpCond(ctx, start+int8s(operand), true)
	case opcode.JMPIFL:
		v.jumpCond(ctx, start+int(int32le(operand)), true)
	case opcode.JMPIFNOT:
		v.jumpCond(ctx, start+int8s(operand), false)
	case opcode.JMPIFNOTL:
		v.jumpCond(ctx, start+int(int32le(operand)), false)
	case opcode.JMPEQ, opcode.JMPNE, opcode.JMPGT, opcode.JMPGE, opcode.JMPLT, opcode.JMPLE:
		v.jumpCompare(ctx, op, start+int8s(operand))
	case opcode.CALL:
		v.call(ctx.Clone(start + int8s(operand)))
	case opcode.CALLL:
		v.call(ctx.Clone(start + int(int32le(operand))))
	case opcode.CALLA:
		p, ok := v.pop().(*stackitem.Pointer)
		if !ok {
			panic(ErrInvalidOpcode)
		}
		v.call(&Context{script: p.Script, ip: p.Position, statics: ctx.statics, scriptHash: ctx.scriptHash})
	case opcode.CALLT:
		if v.TokenHandler == nil {
			panic(ErrUnknownSyscall)
		}
		if err := v.TokenHandler(v, uint16le(operand)); err != nil {
			panic(err)
		}
	case opcode.ABORT:
		v.state = vmstate.Fault
	case opcode.ASSERT:
		if !v.pop().Bool() {
			v.state = vmstate.Fault
		}
	case opcode.THROW:
		v.throw(v.pop())
	case opcode.TRY:
		v.beginTry(ctx, start, int8s(operand[:1]), int8s(operand[1:2]))
	case opcode.TRYL:
		v.beginTry(ctx, start, int(int32le(operand[0:4])), int(int32le(operand[4:8])))
	case opcode.ENDTRY:
		v.endTry(ctx, start+int8s(operand))
	case opcode.ENDTRYL:
		v.endTry(ctx, start+int(int32le(operand)))
	case opcode.ENDFINALLY:
		v.endFinally(ctx)
	case opcode.RET:
		v.istack = v.istack[:len(v.istack)-1]
		if len(v.istack) == 0 {
			v.state = vmstate.Halt
		}
	case opcode.SYSCALL:
		if v.SyscallHandler == nil {
			panic(ErrNoSyscallHandler)
		}
		if err := v.SyscallHandler(v, uint32le(operand)); err != nil {
			panic(err)
		}

	// --- Stack manipulation ---
	case opcode.DEPTH:
		v.push(stackitem.NewBigInteger(big.NewInt(int64(v.estack.Len()))))
	case opcode.DROP:
		v.pop()
	case opcode.NIP:
		v.estack.RemoveAt(1)
	case opcode.XDROP:
		n := int(v.popBigInt().Int64())
		v.estack.RemoveAt(n)
	case opcode.CLEAR:
		v.estack.Clear()
	case opcode.DUP:
		v.push(v.estack.Peek(0))
	case opcode.OVER:
		v.push(v.estack.Peek(1))
	case opcode.PICK:
		n := int(v.popBigInt().Int64())
		v.push(v.estack.Peek(n))
	case opcode.TUCK:
		if err := v.estack.InsertAt(v.estack.Peek(0), 2); err != nil {
			panic(err)
		}
	case opcode.SWAP:
		v.estack.Swap(1)
	case opcode.XSWAP:
		n := int(v.popBigInt().Int64())
		v.estack.Swap(n)
	case opcode.ROT:
		v.estack.Roll(2)
	case opcode.ROLL:
		n := int(v.popBigInt().Int64())
		v.estack.Roll(n)
	case opcode.REVERSE3:
		v.estack.ReverseTop(3)
	case opcode.REVERSE4:
		v.estack.ReverseTop(4)
	case opcode.REVERSEN:
		n := int(v.popBigInt().Int64())
		v.estack.ReverseTop(n)

	// --- Slot operations ---
	case opcode.INITSSLOT:
		ctx.initStaticSlot(int(operand[0]))
	case opcode.INITSLOT:
		ctx.initSlot(int(operand[0]), int(operand[1]))
	case opcode.LDSFLD0, opcode.LDSFLD:
		v.push((*ctx.statics).get(slotIndex(op, opcode.LDSFLD0, operand)))
	case opcode.STSFLD0, opcode.STSFLD:
		(*ctx.statics).set(slotIndex(op, opcode.STSFLD0, operand), v.pop())
	case opcode.LDLOC0, opcode.LDLOC:
		v.push(ctx.locals.get(slotIndex(op, opcode.LDLOC0, operand)))
	case opcode.STLOC0, opcode.STLOC:
		ctx.locals.set(slotIndex(op, opcode.STLOC0, operand), v.pop())
	case opcode.LDARG0, opcode.LDARG:
		v.push(ctx.args.get(slotIndex(op, opcode.LDARG0, operand)))
	case opcode.STARG0, opcode.STARG:
		ctx.args.set(slotIndex(op, opcode.STARG0, operand), v.pop())

	// --- Splice ---
	case opcode.NEWBUFFER:
		n := int(v.popBigInt().Int64())
		v.push(stackitem.NewBuffer(make([]byte, n)))
	case opcode.MEMCPY:
		count := int(v.popBigInt().Int64())
		srcIdx := int(v.popBigInt().Int64())
		src := v.popBytes()
		dstIdx := int(v.popBigInt().Int64())
		dstBuf, ok := v.pop().(*stackitem.Buffer)
		if !ok {
			panic(ErrInvalidOpcode)
		}
		copy((*dstBuf)[dstIdx:dstIdx+count], src[srcIdx:srcIdx+count])
	case opcode.CAT:
		b := v.popBytes()
		a := v.popBytes()
		out := append(append([]byte{}, a...), b...)
		v.push(stackitem.NewByteArray(out))
	case opcode.SUBSTR:
		l := int(v.popBigInt().Int64())
		i := int(v.popBigInt().Int64())
		s := v.popBytes()
		v.push(stackitem.NewByteArray(s[i : i+l]))
	case opcode.LEFT:
		l := int(v.popBigInt().Int64())
		s := v.popBytes()
		v.push(stackitem.NewByteArray(s[:l]))
	case opcode.RIGHT:
		l := int(v.popBigInt().Int64())
		s := v.popBytes()
		v.push(stackitem.NewByteArray(s[len(s)-l:]))

	// --- Bitwise logic ---
	case opcode.INVERT:
		v.push(stackitem.NewBigInteger(new(big.Int).Not(v.popBigInt())))
	case opcode.AND:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).And(a, b)))
	case opcode.OR:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Or(a, b)))
	case opcode.XOR:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Xor(a, b)))
	case opcode.EQUAL:
		b, a := v.pop(), v.pop()
		v.push(stackitem.Boolean(a.Equals(b)))
	case opcode.NOTEQUAL:
		b, a := v.pop(), v.pop()
		v.push(stackitem.Boolean(!a.Equals(b)))

	// --- Arithmetic ---
	case opcode.SIGN:
		v.push(stackitem.NewBigInteger(big.NewInt(int64(v.popBigInt().Sign()))))
	case opcode.ABS:
		v.push(stackitem.NewBigInteger(new(big.Int).Abs(v.popBigInt())))
	case opcode.NEGATE:
		v.push(stackitem.NewBigInteger(new(big.Int).Neg(v.popBigInt())))
	case opcode.INC:
		v.push(stackitem.NewBigInteger(new(big.Int).Add(v.popBigInt(), big.NewInt(1))))
	case opcode.DEC:
		v.push(stackitem.NewBigInteger(new(big.Int).Sub(v.popBigInt(), big.NewInt(1))))
	case opcode.ADD:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Add(a, b)))
	case opcode.SUB:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Sub(a, b)))
	case opcode.MUL:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Mul(a, b)))
	case opcode.DIV:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Quo(a, b)))
	case opcode.MOD:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Rem(a, b)))
	case opcode.POW:
		e, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Exp(a, e, nil)))
	case opcode.SQRT:
		v.push(stackitem.NewBigInteger(new(big.Int).Sqrt(v.popBigInt())))
	case opcode.MODMUL:
		m, b, a := v.popBigInt(), v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Mod(new(big.Int).Mul(a, b), m)))
	case opcode.MODPOW:
		m, e, a := v.popBigInt(), v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Exp(a, e, m)))
	case opcode.SHL:
		n, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Lsh(a, uint(n.Int64()))))
	case opcode.SHR:
		n, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.NewBigInteger(new(big.Int).Rsh(a, uint(n.Int64()))))
	case opcode.NOT:
		v.push(stackitem.Boolean(!v.pop().Bool()))
	case opcode.BOOLAND:
		b, a := v.pop().Bool(), v.pop().Bool()
		v.push(stackitem.Boolean(a && b))
	case opcode.BOOLOR:
		b, a := v.pop().Bool(), v.pop().Bool()
		v.push(stackitem.Boolean(a || b))
	case opcode.NZ:
		v.push(stackitem.Boolean(v.popBigInt().Sign() != 0))
	case opcode.NUMEQUAL:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) == 0))
	case opcode.NUMNOTEQUAL:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) != 0))
	case opcode.LT:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) < 0))
	case opcode.LE:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) <= 0))
	case opcode.GT:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) > 0))
	case opcode.GE:
		b, a := v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(a.Cmp(b) >= 0))
	case opcode.MIN:
		b, a := v.popBigInt(), v.popBigInt()
		if a.Cmp(b) < 0 {
			v.push(stackitem.NewBigInteger(a))
		} else {
			v.push(stackitem.NewBigInteger(b))
		}
	case opcode.MAX:
		b, a := v.popBigInt(), v.popBigInt()
		if a.Cmp(b) > 0 {
			v.push(stackitem.NewBigInteger(a))
		} else {
			v.push(stackitem.NewBigInteger(b))
		}
	case opcode.WITHIN:
		b, a, x := v.popBigInt(), v.popBigInt(), v.popBigInt()
		v.push(stackitem.Boolean(x.Cmp(a) >= 0 && x.Cmp(b) < 0))

	// --- Compound types ---
	case opcode.PACKMAP:
		n := int(v.popBigInt().Int64())
		m := stackitem.NewMap()
		for i := 0; i < n; i++ {
			val := v.pop()
			key := v.pop()
			if err := m.Set(key, val); err != nil {
				panic(err)
			}
		}
		v.push(m)
	case opcode.PACKSTRUCT:
		v.push(stackitem.NewStruct(v.popN()))
	case opcode.PACK:
		v.push(stackitem.NewArray(v.popN()))
	case opcode.UNPACK:
		arr := v.popArray()
		for i := arr.Len() - 1; i >= 0; i-- {
			v.push(arr.Value().([]stackitem.Item)[i])
		}
		v.push(stackitem.NewBigInteger(big.NewInt(int64(arr.Len()))))
	case opcode.NEWARRAY0:
		v.push(stackitem.NewArray(nil))
	case opcode.NEWARRAY:
		n := int(v.popBigInt().Int64())
		v.push(stackitem.NewArray(make([]stackitem.Item, n)))
	case opcode.NEWARRAYT:
		n := int(v.popBigInt().Int64())
		v.push(stackitem.NewArray(make([]stackitem.Item, n)))
	case opcode.NEWSTRUCT0:
		v.push(stackitem.NewStruct(nil))
	case opcode.NEWSTRUCT:
		n := int(v.popBigInt().Int64())
		v.push(stackitem.NewStruct(make([]stackitem.Item, n)))
	case opcode.NEWMAP:
		v.push(stackitem.NewMap())
	case opcode.SIZE:
		v.push(stackitem.NewBigInteger(big.NewInt(int64(v.itemSize(v.pop())))))
	case opcode.HASKEY:
		v.haskey()
	case opcode.KEYS:
		m := v.popMap()
		v.push(stackitem.NewArray(m.Keys()))
	case opcode.VALUES:
		switch c := v.pop().(type) {
		case *stackitem.Map:
			v.push(stackitem.NewArray(c.Values()))
		case *stackitem.Array:
			v.push(stackitem.NewArray(append([]stackitem.Item(nil), c.Value().([]stackitem.Item)...)))
		default:
			panic(ErrInvalidOpcode)
		}
	case opcode.PICKITEM:
		v.pickItem()
	case opcode.APPEND:
		item := v.pop()
		arr := v.popArray()
		if err := arr.Append(item); err != nil {
			panic(err)
		}
	case opcode.SETITEM:
		v.setItem()
	case opcode.REVERSEITEMS:
		arr := v.popArray()
		arr.Reverse()
	case opcode.REMOVE:
		key := v.pop()
		switch c := v.pop().(type) {
		case *stackitem.Array:
			c.Remove(int(mustInt(key)))
		case *stackitem.Map:
			c.Delete(key)
		default:
			panic(ErrInvalidOpcode)
		}
	case opcode.CLEARITEMS:
		switch c := v.pop().(type) {
		case *stackitem.Array:
			for c.Len() > 0 {
				c.Remove(c.Len() - 1)
			}
		case *stackitem.Map:
			for _, k := range c.Keys() {
				c.Delete(k)
			}
		default:
			panic(ErrInvalidOpcode)
		}
	case opcode.POPITEM:
		arr := v.popArray()
		items := arr.Value().([]stackitem.Item)
		last := items[len(items)-1]
		arr.Remove(len(items) - 1)
		v.push(last)

	// --- Type operations ---
	case opcode.ISNULL:
		_, ok := v.pop().(stackitem.Null)
		v.push(stackitem.Boolean(ok))
	case opcode.ISTYPE:
		item := v.pop()
		v.push(stackitem.Boolean(item.Type() == stackitem.Type(operand[0])))
	case opcode.CONVERT:
		item := v.pop()
		res, err := item.Convert(stackitem.Type(operand[0]))
		if err != nil {
			panic(err)
		}
		v.push(res)

	default:
		panic(ErrInvalidOpcode)
	}
}

func slotIndex(op, zeroOp opcode.Opcode, operand []byte) int {
	if op == zeroOp {
		return 0
	}
	return int(operand[0])
}

func (v *VM) push(i stackitem.Item) {
	if err := v.estack.Push(i); err != nil {
		panic(err)
	}
}
func (v *VM) pop() stackitem.Item      { return v.estack.Pop() }
func (v *VM) popBigInt() *big.Int      { return v.estack.PopBigInt() }
func (v *VM) popBytes() []byte         { return v.estack.PopBytes() }
func (v *VM) popN() []stackitem.Item {
	n := int(v.popBigInt().Int64())
	items := make([]stackitem.Item, n)
	for i := 0; i < n; i++ {
		items[i] = v.pop()
	}
	return items
}
func (v *VM) popArray() *stackitem.Array {
	switch c := v.pop().(type) {
	case *stackitem.Array:
		return c
	case *stackitem.Struct:
		return &c.Array
	default:
		panic(ErrInvalidOpcode)
	}
}
func (v *VM) popMap() *stackitem.Map {
	m, ok := v.pop().(*stackitem.Map)
	if !ok {
		panic(ErrInvalidOpcode)
	}
	return m
}

func mustInt(i stackitem.Item) int64 {
	b, err := i.TryInteger()
	if err != nil {
		panic(err)
	}
	return b.Int64()
}

func (v *VM) itemSize(i stackitem.Item) int {
	switch c := i.(type) {
	case *stackitem.ByteString:
		return len(*c)
	case *stackitem.Buffer:
		return len(*c)
	case *stackitem.Array:
		return c.Len()
	case *stackitem.Struct:
		return c.Len()
	case *stackitem.Map:
		return c.Len()
	default:
		return 0
	}
}

func (v *VM) haskey() {
	key := v.pop()
	switch c := v.pop().(type) {
	case *stackitem.Array:
		idx := mustInt(key)
		v.push(stackitem.Boolean(idx >= 0 && int(idx) < c.Len()))
	case *stackitem.Map:
		v.push(stackitem.Boolean(c.Has(key)))
	default:
		panic(ErrInvalidOpcode)
	}
}

func (v *VM) pickItem() {
	key := v.pop()
	switch c := v.pop().(type) {
	case *stackitem.Array:
		idx := mustInt(key)
		v.push(c.Value().([]stackitem.Item)[idx])
	case *stackitem.Struct:
		idx := mustInt(key)
		v.push(c.Value().([]stackitem.Item)[idx])
	case *stackitem.Map:
		val := c.Get(key)
		if val == nil {
			panic(ErrInvalidOpcode)
		}
		v.push(val)
	case *stackitem.ByteString:
		idx := mustInt(key)
		v.push(stackitem.NewBigInteger(big.NewInt(int64((*c)[idx]))))
	default:
		panic(ErrInvalidOpcode)
	}
}

func (v *VM) setItem() {
	val := v.pop()
	key := v.pop()
	switch c := v.pop().(type) {
	case *stackitem.Array:
		idx := mustInt(key)
		c.Value().([]stackitem.Item)[idx] = val
	case *stackitem.Map:
		if err := c.Set(key, val); err != nil {
			panic(err)
		}
	default:
		panic(ErrInvalidOpcode)
	}
}

func (v *VM) jumpCond(ctx *Context, target int, want bool) {
	if v.pop().Bool() == want {
		ctx.Jump(target)
	}
}

func (v *VM) jumpCompare(ctx *Context, op opcode.Opcode, target int) {
	b, a := v.popBigInt(), v.popBigInt()
	cmp := a.Cmp(b)
	var take bool
	switch op {
	case opcode.JMPEQ:
		take = cmp == 0
	case opcode.JMPNE:
		take = cmp != 0
	case opcode.JMPGT:
		take = cmp > 0
	case opcode.JMPGE:
		take = cmp >= 0
	case opcode.JMPLT:
		take = cmp < 0
	case opcode.JMPLE:
		take = cmp <= 0
	}
	if take {
		ctx.Jump(target)
	}
}

// call pushes a new frame, enforcing the invocation-stack depth limit.
func (v *VM) call(next *Context) {
	if len(v.istack) >= v.invocationLimit {
		panic(ErrInvocationLimit)
	}
	v.istack = append(v.istack, next)
}

func (v *VM) beginTry(ctx *Context, start, catchRel, finallyRel int) {
	b := tryBlock{}
	if catchRel != 0 {
		b.hasCatch = true
		b.catchOffset = start + catchRel
	}
	if finallyRel != 0 {
		b.hasFinally = true
		b.finallyOffset = start + finallyRel
	}
	ctx.tryStack = append(ctx.tryStack, b)
}

func (v *VM) endTry(ctx *Context, target int) {
	idx := len(ctx.tryStack) - 1
	if idx < 0 {
		panic(ErrInvalidOpcode)
	}
	b := ctx.tryStack[idx]
	if b.hasFinally && !b.inFinally {
		b.inFinally = true
		b.endOffset = target
		ctx.tryStack[idx] = b
		ctx.ip = b.finallyOffset
		return
	}
	ctx.tryStack = ctx.tryStack[:idx]
	ctx.ip = target
}

func (v *VM) endFinally(ctx *Context) {
	idx := len(ctx.tryStack) - 1
	if idx < 0 {
		panic(ErrInvalidOpcode)
	}
	b := ctx.tryStack[idx]
	ctx.tryStack = ctx.tryStack[:idx]
	if v.pendingExc != nil {
		e := v.pendingExc
		v.pendingExc = nil
		v.throw(e)
		return
	}
	ctx.ip = b.endOffset
}
