// Package interop implements the bridge between the NeoVM interpreter
// and ledger/native-contract state: the per-invocation Context, the
// syscall Function registry, and native-contract method dispatch (spec
// §4.2 "Application Engine").
package interop

import (
	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/dao"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/smartcontract/manifest"
	"github.com/n3ledger/n3core/pkg/smartcontract/trigger"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// Ledger is the subset of blockchain state interop functions need,
// implemented by the concrete Blockchain type.
type Ledger interface {
	BlockHeight() uint32
	CurrentBlockHash() util.Uint256
	GetHeaderHash(index uint32) util.Uint256
	MaxTraceableBlocks() uint32
	Network() uint32
}

// Context carries everything one VM invocation needs beyond the
// interpreter itself: the DAO snapshot it reads/writes through, the
// transaction or block that triggered it, and the notification log it
// accumulates.
type Context struct {
	Chain         Ledger
	Container     io.Serializable
	Natives       []Contract
	Trigger       trigger.Type
	Block         *block.Block
	Tx            *transaction.Transaction
	DAO           *dao.Simple
	Notifications []state.NotificationEvent
	Invocations   map[util.Uint160]int
	VM            *vm.VM

	// CallNative dispatches a System.Contract.Call against a native
	// contract by hash/method/args. It is a closure rather than a
	// native.Set field directly to avoid interop<->native importing each
	// other: the engine wires it in when it builds the Context.
	CallNative func(h util.Uint160, method string, args []stackitem.Item) (stackitem.Item, error)
}

// NewContext builds a fresh interop Context for one trigger invocation.
func NewContext(trig trigger.Type, chain Ledger, d *dao.Simple, natives []Contract, b *block.Block, tx *transaction.Transaction) *Context {
	return &Context{
		Chain:       chain,
		Natives:     natives,
		Trigger:     trig,
		Block:       b,
		Tx:          tx,
		DAO:         d,
		Invocations: make(map[util.Uint160]int),
	}
}

// BlockHeight delegates to Chain.
func (c *Context) BlockHeight() uint32 { return c.Chain.BlockHeight() }

// Notify appends a notification raised by the currently executing
// contract.
func (c *Context) Notify(scriptHash util.Uint160, name string, item *stackitem.Array) {
	c.Notifications = append(c.Notifications, state.NotificationEvent{
		ScriptHash: scriptHash,
		Name:       name,
		Item:       item,
	})
}

// Function binds a syscall name/id to its Go implementation, price, and
// the call flags it declares. RequiredFlags is recorded only: no syscall
// dispatch compares it with the calling frame's flags, and a script
// lacking them does not fault.
type Function struct {
	ID            uint32
	Name          string
	Func          func(*Context, *vm.VM) error
	Price         int64
	RequiredFlags callflag.CallFlag
}

// Method is a native contract method's Go implementation.
type Method = func(ic *Context, args []stackitem.Item) stackitem.Item

// MethodAndPrice pairs a native method with its gas price and declared
// call flags; native dispatch does not check RequiredFlags.
type MethodAndPrice struct {
	Func          Method
	Price         int64
	RequiredFlags callflag.CallFlag
}

// Contract is implemented by every native contract (Ledger, NEO, GAS,
// Policy, ContractManagement, ...).
type Contract interface {
	Initialize(*Context) error
	OnPersist(*Context) error
	PostPersist(*Context) error
	Metadata() *ContractMD
}

// ContractMD is the shared identity/method-table scaffold every native
// contract embeds.
type ContractMD struct {
	Manifest   manifest.Manifest
	Name       string
	ContractID int32
	Hash       util.Uint160
	Methods    map[string]MethodAndPrice
}

// NewContractMD builds the identity half of a native contract: a
// deterministic pseudo-hash derived from its name (native contracts
// have no real script, only a registry entry) and an empty manifest
// ready for AddMethod/AddEvent.
func NewContractMD(name string, id int32) *ContractMD {
	c := &ContractMD{
		Name:       name,
		ContractID: id,
		Methods:    make(map[string]MethodAndPrice),
	}
	h := hash.Hash160([]byte(name))
	c.Hash, _ = util.Uint160DecodeBytesLE(h[:])
	c.Manifest = *manifest.DefaultManifest(name, nil, nil)
	return c
}

// AddMethod registers a native method and its ABI descriptor.
func (c *ContractMD) AddMethod(md MethodAndPrice, desc manifest.Method) {
	c.Manifest.ABI.Methods = append(c.Manifest.ABI.Methods, desc)
	c.Methods[desc.Name] = md
}

// AddEvent registers a notification event descriptor.
func (c *ContractMD) AddEvent(name string, params ...manifest.Parameter) {
	c.Manifest.ABI.Events = append(c.Manifest.ABI.Events, manifest.Event{Name: name, Parameters: params})
}
