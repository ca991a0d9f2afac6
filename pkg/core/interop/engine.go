package interop

import (
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/vm"
)

// Run loads script into a fresh VM under ic, wires its SyscallHandler to
// registry, and executes it to completion (Halt or Fault). script's
// Hash160 becomes the executing frame's scriptHash, as interop functions
// like System.Runtime.GetExecutingScriptHash and CheckWitness rely on it.
func Run(ic *Context, registry *Registry, script []byte, gasLimit int64) error {
	v := vm.New()
	v.SetGasLimit(gasLimit)
	v.SyscallHandler = func(vv *vm.VM, id uint32) error {
		fn := registry.Lookup(id)
		if fn == nil {
			return vm.ErrUnknownSyscall
		}
		if err := vv.AddGas(fn.Price); err != nil {
			return err
		}
		return fn.Func(ic, vv)
	}
	ic.VM = v

	scriptHash := hash.Hash160(script)
	if err := v.LoadWithHash(script, scriptHash); err != nil {
		return err
	}
	return v.Run()
}
