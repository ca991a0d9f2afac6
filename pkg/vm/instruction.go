package vm

import "github.com/n3ledger/n3core/pkg/vm/opcode"

// operandSize returns the fixed operand length in bytes that follows op, or,
// for the PUSHDATA family, the negated width of its little-endian length
// prefix (-1, -2 or -4); that prefix is read from the script at decode time.
func operandSize(op opcode.Opcode) int {
	switch op {
	case opcode.PUSHINT8:
		return 1
	case opcode.PUSHINT16:
		return 2
	case opcode.PUSHINT32, opcode.PUSHA:
		return 4
	case opcode.PUSHINT64:
		return 8
	case opcode.PUSHINT128:
		return 16
	case opcode.PUSHINT256:
		return 32
	case opcode.PUSHDATA1:
		return -1
	case opcode.PUSHDATA2:
		return -2
	case opcode.PUSHDATA4:
		return -4
	case opcode.JMP, opcode.JMPIF, opcode.JMPIFNOT, opcode.JMPEQ, opcode.JMPNE,
		opcode.JMPGT, opcode.JMPGE, opcode.JMPLT, opcode.JMPLE, opcode.CALL,
		opcode.ENDTRY:
		return 1
	case opcode.CALLT:
		return 2
	case opcode.TRY:
		return 2
	case opcode.JMPL, opcode.JMPIFL, opcode.JMPIFNOTL, opcode.CALLL,
		opcode.ENDTRYL, opcode.SYSCALL:
		return 4
	case opcode.TRYL:
		return 8
	case opcode.INITSSLOT:
		return 1
	case opcode.INITSLOT:
		return 2
	case opcode.LDSFLD, opcode.STSFLD, opcode.LDLOC, opcode.STLOC,
		opcode.LDARG, opcode.STARG, opcode.NEWARRAYT, opcode.ISTYPE,
		opcode.CONVERT:
		return 1
	default:
		return 0
	}
}
