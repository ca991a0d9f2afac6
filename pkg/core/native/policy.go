package native

import (
	"errors"
	"sync"

	"github.com/n3ledger/n3core/pkg/core/dao"
	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const policyContractID = -7

const (
	defaultExecFeeFactor = 30
	defaultFeePerByte    = 1000
	defaultStoragePrice  = 100000
	maxExecFeeFactor     = 100
	maxFeePerByte        = 100_000_000
	maxStoragePrice      = 10_000_000
)

var (
	execFeeFactorKey = []byte{18}
	feePerByteKey    = []byte{10}
	storagePriceKey  = []byte{19}
	blockedAcctPfx   = byte(15)
)

// Policy is the PolicyContract native: fee-per-byte, exec-fee-factor,
// storage price, and the blocked-account list. Every mutator requires
// committee witness (spec §4.3).
type Policy struct {
	interop.ContractMD
	NEO *NEO

	mu sync.RWMutex
}

var _ interop.Contract = (*Policy)(nil)

func newPolicy() *Policy {
	p := &Policy{ContractMD: *interop.NewContractMD(nativenames.Policy, policyContractID)}

	p.AddMethod(newMethodAndPrice(p.getFeePerByte, 1<<15, callflag.ReadStates),
		newDescriptor("getFeePerByte", "Integer"))
	p.AddMethod(newMethodAndPrice(p.getExecFeeFactor, 1<<15, callflag.ReadStates),
		newDescriptor("getExecFeeFactor", "Integer"))
	p.AddMethod(newMethodAndPrice(p.getStoragePrice, 1<<15, callflag.ReadStates),
		newDescriptor("getStoragePrice", "Integer"))
	p.AddMethod(newMethodAndPrice(p.isBlocked, 1<<15, callflag.ReadStates),
		newDescriptor("isBlocked", "Boolean", newParam("account", "Hash160")))
	p.AddMethod(newMethodAndPrice(p.setFeePerByte, 1<<15, callflag.States),
		newDescriptor("setFeePerByte", "Void", newParam("value", "Integer")))
	p.AddMethod(newMethodAndPrice(p.setExecFeeFactor, 1<<15, callflag.States),
		newDescriptor("setExecFeeFactor", "Void", newParam("value", "Integer")))
	p.AddMethod(newMethodAndPrice(p.setStoragePrice, 1<<15, callflag.States),
		newDescriptor("setStoragePrice", "Void", newParam("value", "Integer")))
	p.AddMethod(newMethodAndPrice(p.blockAccount, 1<<15, callflag.States),
		newDescriptor("blockAccount", "Boolean", newParam("account", "Hash160")))
	p.AddMethod(newMethodAndPrice(p.unblockAccount, 1<<15, callflag.States),
		newDescriptor("unblockAccount", "Boolean", newParam("account", "Hash160")))

	return p
}

// Metadata implements interop.Contract.
func (p *Policy) Metadata() *interop.ContractMD { return &p.ContractMD }

// Initialize implements interop.Contract.
func (p *Policy) Initialize(ic *interop.Context) error {
	setIntWithKey(p.ContractID, ic.DAO, feePerByteKey, defaultFeePerByte)
	setIntWithKey(p.ContractID, ic.DAO, execFeeFactorKey, defaultExecFeeFactor)
	setIntWithKey(p.ContractID, ic.DAO, storagePriceKey, defaultStoragePrice)
	return nil
}

// OnPersist implements interop.Contract.
func (p *Policy) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract.
func (p *Policy) PostPersist(*interop.Context) error { return nil }

func (p *Policy) getFeePerByte(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(p.FeePerByte(ic.DAO))
}

// FeePerByte returns the minimum required fee per transaction byte.
func (p *Policy) FeePerByte(d *dao.Simple) int64 {
	return getIntWithKey(p.ContractID, d, feePerByteKey)
}

func (p *Policy) getExecFeeFactor(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(p.ExecFeeFactor(ic.DAO))
}

// ExecFeeFactor returns the multiplier applied to every opcode's base
// gas price, the GetBaseExecFee the mempool's Feer needs.
func (p *Policy) ExecFeeFactor(d *dao.Simple) int64 {
	return getIntWithKey(p.ContractID, d, execFeeFactorKey)
}

func (p *Policy) getStoragePrice(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(getIntWithKey(p.ContractID, ic.DAO, storagePriceKey))
}

func (p *Policy) isBlocked(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	return stackitem.Make(p.IsBlocked(ic.DAO, toUint160(args[0])))
}

// IsBlocked reports whether account is barred from sending transactions.
func (p *Policy) IsBlocked(d *dao.Simple, account util.Uint160) bool {
	key := append([]byte{blockedAcctPfx}, account.BytesLE()...)
	_, err := d.GetStorageItem(p.ContractID, key)
	return err == nil
}

func (p *Policy) setFeePerByte(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	value := toBigInt(args[0]).Int64()
	if value < 0 || value > maxFeePerByte {
		panic(errors.New("policy: fee per byte out of range"))
	}
	if !p.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	setIntWithKey(p.ContractID, ic.DAO, feePerByteKey, value)
	return stackitem.Null{}
}

func (p *Policy) setExecFeeFactor(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	value := toUint32(args[0])
	if value == 0 || value > maxExecFeeFactor {
		panic(errors.New("policy: exec fee factor out of range"))
	}
	if !p.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	setIntWithKey(p.ContractID, ic.DAO, execFeeFactorKey, int64(value))
	return stackitem.Null{}
}

func (p *Policy) setStoragePrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	value := toUint32(args[0])
	if value == 0 || value > maxStoragePrice {
		panic(errors.New("policy: storage price out of range"))
	}
	if !p.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	setIntWithKey(p.ContractID, ic.DAO, storagePriceKey, int64(value))
	return stackitem.Null{}
}

func (p *Policy) blockAccount(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	account := toUint160(args[0])
	for _, c := range ic.Natives {
		if c.Metadata().Hash.Equals(account) {
			panic(errors.New("policy: cannot block a native contract"))
		}
	}
	if p.IsBlocked(ic.DAO, account) {
		return stackitem.Make(false)
	}
	key := append([]byte{blockedAcctPfx}, account.BytesLE()...)
	_ = ic.DAO.PutStorageItem(p.ContractID, key, state.StorageItem{})
	return stackitem.Make(true)
}

func (p *Policy) unblockAccount(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !p.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	account := toUint160(args[0])
	if !p.IsBlocked(ic.DAO, account) {
		return stackitem.Make(false)
	}
	key := append([]byte{blockedAcctPfx}, account.BytesLE()...)
	_ = ic.DAO.DeleteStorageItem(p.ContractID, key)
	return stackitem.Make(true)
}

// CheckPolicy validates tx against current policy: no signer may be a
// blocked account.
func (p *Policy) CheckPolicy(d *dao.Simple, tx *transaction.Transaction) error {
	for _, signer := range tx.Signers {
		if p.IsBlocked(d, signer.Account) {
			return errors.New("policy: signer account is blocked")
		}
	}
	return nil
}

var errInvalidWitness = errors.New("native: missing required committee witness")
