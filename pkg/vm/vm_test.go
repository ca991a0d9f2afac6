package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/vm/opcode"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
	"github.com/n3ledger/n3core/pkg/vm/vmstate"
)

func runScript(t *testing.T, script []byte) *VM {
	t.Helper()
	v := New()
	require.NoError(t, v.Load(script))
	require.NoError(t, v.Run())
	return v
}

func TestAddHalts(t *testing.T) {
	script := []byte{byte(opcode.PUSH2), byte(opcode.PUSH3), byte(opcode.ADD), byte(opcode.RET)}
	v := runScript(t, script)
	require.True(t, v.HasHalted())
	require.Equal(t, 1, v.Estack().Len())
	n, err := v.Estack().Peek(0).TryInteger()
	require.NoError(t, err)
	require.EqualValues(t, 5, n.Int64())
}

func TestDivByZeroFaults(t *testing.T) {
	script := []byte{byte(opcode.PUSH1), byte(opcode.PUSH0), byte(opcode.DIV), byte(opcode.RET)}
	v := New()
	require.NoError(t, v.Load(script))
	err := v.Run()
	require.Error(t, err)
	require.True(t, v.HasFailed())
}

func TestGasLimitFaults(t *testing.T) {
	script := []byte{byte(opcode.PUSH1), byte(opcode.PUSH1), byte(opcode.ADD), byte(opcode.RET)}
	v := New()
	v.SetGasLimit(1)
	require.NoError(t, v.Load(script))
	err := v.Run()
	require.ErrorIs(t, err, ErrUncaughtException)
	require.True(t, v.HasFailed())
}

func TestTryCatchRecovers(t *testing.T) {
	// TRY catch=+5 finally=0; ABORT-equivalent THROW in body; catch pushes
	// a marker and falls through to ENDTRY.
	script := []byte{
		byte(opcode.TRY), 5, 0,
		byte(opcode.PUSH0),
		byte(opcode.THROW),
		byte(opcode.DROP), // catch: discard thrown value
		byte(opcode.PUSH9),
		byte(opcode.ENDTRY), 2,
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.True(t, v.HasHalted())
	require.Equal(t, 1, v.Estack().Len())
}

func TestSyscallHandlerInvoked(t *testing.T) {
	script := []byte{byte(opcode.SYSCALL), 1, 0, 0, 0, byte(opcode.RET)}
	v := New()
	called := false
	v.SyscallHandler = func(vm *VM, id uint32) error {
		called = true
		require.EqualValues(t, 1, id)
		return vm.Estack().PushVal(true)
	}
	require.NoError(t, v.Load(script))
	require.NoError(t, v.Run())
	require.True(t, called)
	require.True(t, v.Estack().Pop().Bool())
}

func TestPackArray(t *testing.T) {
	v := New()
	require.NoError(t, v.Load([]byte{byte(opcode.RET)}))
	require.NoError(t, v.Estack().PushVal(int64(1)))
	require.NoError(t, v.Estack().PushVal(int64(2)))
	require.NoError(t, v.Estack().PushVal(int64(3)))
	require.NoError(t, v.Estack().PushVal(int64(3)))
	v.execute(v.Context(), opcode.PACK, nil, 0)
	arr, ok := v.Estack().Peek(0).(*stackitem.Array)
	require.True(t, ok)
	require.Equal(t, 3, arr.Len())
	require.Equal(t, vmstate.None, v.State())
}
