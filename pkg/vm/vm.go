// Package vm implements the stack-based NeoVM engine described in spec
// §4.1: a script interpreter over the stackitem value domain, metered by
// gas and bounded by a shared reference counter.
package vm

import (
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
	"github.com/n3ledger/n3core/pkg/vm/vmstate"
)

const (
	// DefaultRefCounterLimit bounds total live stack items across every
	// frame (spec §9, cyclic references).
	DefaultRefCounterLimit = 2048

	// DefaultInvocationStackLimit bounds CALL recursion depth.
	DefaultInvocationStackLimit = 1024

	// MaxStackSize is the engine's item-count ceiling, equal to
	// DefaultRefCounterLimit. Nothing checks it directly: the evaluation
	// stack is bounded only through the reference counter.
	MaxStackSize = 2048
)

// PriceGetter returns the gas cost of executing a single instruction. The
// host (application engine) supplies this; the bare VM defaults to a flat
// per-opcode cost of 1.
type PriceGetter func(v *VM) int64

// SyscallHandler resolves and invokes a SYSCALL by its 4-byte interop
// method hash, mutating the VM's stacks directly. Returning an error
// drives the VM to vmstate.Fault.
type SyscallHandler func(v *VM, id uint32) error

// TokenHandler resolves a CALLT token index against the currently loaded
// script's NEF method-token table, pushing a new context for the callee.
type TokenHandler func(v *VM, tokenID uint16) error

// VM is one instance of the NeoVM interpreter. It is not safe for
// concurrent use; callers run one VM per goroutine.
type VM struct {
	istack []*Context
	estack *Stack
	refs   *stackitem.RefCounter

	state      vmstate.State
	uncaught   stackitem.Item
	pendingExc stackitem.Item

	gasConsumed int64
	gasLimit    int64

	invocationLimit int

	SyscallHandler SyscallHandler
	TokenHandler   TokenHandler
	getPrice       PriceGetter
}

// New constructs a VM with default limits and a flat gas price of 1 per
// instruction.
func New() *VM {
	refs := stackitem.NewRefCounter(DefaultRefCounterLimit)
	return &VM{
		estack:          NewStack(refs),
		refs:            refs,
		gasLimit:        -1,
		invocationLimit: DefaultInvocationStackLimit,
		getPrice:        func(*VM) int64 { return 1 },
	}
}

// SetPriceGetter overrides the per-instruction gas cost function.
func (v *VM) SetPriceGetter(f PriceGetter) { v.getPrice = f }

// SetGasLimit sets the maximum gas this VM may consume; a negative value
// disables the limit.
func (v *VM) SetGasLimit(limit int64) { v.gasLimit = limit }

// GasLimit returns the configured gas limit.
func (v *VM) GasLimit() int64 { return v.gasLimit }

// GasConsumed returns the gas spent so far.
func (v *VM) GasConsumed() int64 { return v.gasConsumed }

// AddGas charges n units of gas, failing the VM if the limit is exceeded.
func (v *VM) AddGas(n int64) error {
	v.gasConsumed += n
	if v.gasLimit >= 0 && v.gasConsumed > v.gasLimit {
		v.state = vmstate.Fault
		return ErrOutOfGas
	}
	return nil
}

// State returns the current VM state.
func (v *VM) State() vmstate.State { return v.state }

// HasFailed reports whether the VM is in the Fault state.
func (v *VM) HasFailed() bool { return v.state.HasFlag(vmstate.Fault) }

// HasHalted reports whether the VM halted normally.
func (v *VM) HasHalted() bool { return v.state.HasFlag(vmstate.Halt) }

// UncaughtException returns the exception value that faulted the VM, if
// any.
func (v *VM) UncaughtException() stackitem.Item { return v.uncaught }

// Estack returns the shared evaluation stack.
func (v *VM) Estack() *Stack { return v.estack }

// Istack returns the invocation stack, outermost frame first.
func (v *VM) Istack() []*Context { return v.istack }

// Context returns the currently executing frame, or nil if none.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// Load pushes script as a brand-new invocation frame with its own static
// slot set, as happens when a transaction's entry script or a
// cross-contract CALL target begins executing.
func (v *VM) Load(script []byte) error {
	if len(v.istack) >= v.invocationLimit {
		v.state = vmstate.Fault
		return ErrInvocationLimit
	}
	v.istack = append(v.istack, NewContext(script))
	v.state = vmstate.None
	return nil
}

// LoadWithHash is Load but additionally records the script's own hash,
// used by interop functions that need the executing contract's identity.
func (v *VM) LoadWithHash(script []byte, hash [20]byte) error {
	if err := v.Load(script); err != nil {
		return err
	}
	v.Context().scriptHash = hash
	return nil
}

// Ready reports whether the VM has at least one frame left to execute and
// has not halted or faulted.
func (v *VM) Ready() bool {
	return v.state == vmstate.None && len(v.istack) > 0
}

// Run executes instructions until the VM halts, faults, or breaks (a
// debugger breakpoint, unused outside of step-by-step tooling). Every
// fault, whatever its cause, is reported as ErrUncaughtException.
func (v *VM) Run() error {
	for v.Ready() {
		if err := v.Step(); err != nil {
			break
		}
	}
	if v.HasFailed() {
		return ErrUncaughtException
	}
	return nil
}

// Step executes a single instruction, recovering from panics raised by
// opcode handlers (stack underflow, bad operands, etc.) and turning them
// into a Fault state rather than a Go-level crash — a malformed script
// must never take down the host process.
func (v *VM) Step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			v.state = vmstate.Fault
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = ErrInvalidOpcode
			}
		}
	}()

	ctx := v.Context()
	if ctx == nil {
		v.state = vmstate.Halt
		return nil
	}

	if err := v.AddGas(v.getPrice(v)); err != nil {
		return err
	}

	start := ctx.ip
	op, operand := ctx.readInstruction()
	v.execute(ctx, op, operand, start)
	return nil
}
