package native

import (
	"math/big"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const notaryContractID = -10

const defaultMaxNotValidBeforeDelta = 140

var (
	maxNVBDeltaKey   = []byte{10}
	notaryDepositPfx = byte(1)
)

// notaryDeposit is one account's locked GAS collateral backing
// notary-assisted transactions, released after till expires.
type notaryDeposit struct {
	Amount big.Int
	Till   uint32
}

// EncodeBinary implements io.Serializable.
func (d *notaryDeposit) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(d.Amount.Bytes())
	w.WriteU32LE(d.Till)
}

// DecodeBinary implements io.Serializable.
func (d *notaryDeposit) DecodeBinary(r *io.BinReader) {
	d.Amount.SetBytes(r.ReadVarBytes(64))
	d.Till = r.ReadU32LE()
}

// Notary is the Notary native: accounts lock GAS collateral here so a
// designated P2PNotary node can co-sign and relay transactions on their
// behalf before the deposit expires (spec §4.3). Grounded on general
// Neo N3 domain knowledge — no notary.go was retrieved in the example
// pack.
type Notary struct {
	interop.ContractMD
	GAS *GAS
}

var _ interop.Contract = (*Notary)(nil)

func newNotary() *Notary {
	n := &Notary{ContractMD: *interop.NewContractMD(nativenames.Notary, notaryContractID)}

	n.AddMethod(newMethodAndPrice(n.lockDepositUntil, 1<<17, callflag.States),
		newDescriptor("lockDepositUntil", "Boolean", newParam("account", "Hash160"), newParam("till", "Integer")))
	n.AddMethod(newMethodAndPrice(n.withdraw, 1<<17, callflag.States|callflag.AllowNotify),
		newDescriptor("withdraw", "Boolean", newParam("from", "Hash160"), newParam("to", "Hash160")))
	n.AddMethod(newMethodAndPrice(n.balanceOf, 1<<15, callflag.ReadStates),
		newDescriptor("balanceOf", "Integer", newParam("account", "Hash160")))
	n.AddMethod(newMethodAndPrice(n.expirationOf, 1<<15, callflag.ReadStates),
		newDescriptor("expirationOf", "Integer", newParam("account", "Hash160")))
	n.AddMethod(newMethodAndPrice(n.getMaxNotValidBeforeDelta, 1<<15, callflag.ReadStates),
		newDescriptor("getMaxNotValidBeforeDelta", "Integer"))
	n.AddEvent("Transfer", newParam("from", "Hash160"), newParam("to", "Hash160"), newParam("amount", "Integer"))

	return n
}

// Metadata implements interop.Contract.
func (n *Notary) Metadata() *interop.ContractMD { return &n.ContractMD }

// Initialize implements interop.Contract.
func (n *Notary) Initialize(ic *interop.Context) error {
	setIntWithKey(n.ContractID, ic.DAO, maxNVBDeltaKey, defaultMaxNotValidBeforeDelta)
	return nil
}

// OnPersist implements interop.Contract.
func (n *Notary) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract: expired deposits whose
// owner never withdrew are left in place for the owner to reclaim
// (spec is silent on forced sweep, so this stays a no-op rather than
// inventing a forfeiture rule).
func (n *Notary) PostPersist(*interop.Context) error { return nil }

func (n *Notary) getMaxNotValidBeforeDelta(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(getIntWithKey(n.ContractID, ic.DAO, maxNVBDeltaKey))
}

func (n *Notary) lockDepositUntil(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	account := toUint160(args[0])
	till := toUint32(args[1])
	if !checkWitnessAccount(ic, account) {
		return stackitem.Make(false)
	}
	dep := n.getDeposit(ic, account)
	if dep != nil && till < dep.Till {
		return stackitem.Make(false)
	}
	if dep == nil {
		dep = &notaryDeposit{}
	}
	dep.Till = till
	n.putDeposit(ic, account, dep)
	return stackitem.Make(true)
}

func (n *Notary) withdraw(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	from := toUint160(args[0])
	to := toUint160(args[1])
	if !checkWitnessAccount(ic, from) {
		return stackitem.Make(false)
	}
	dep := n.getDeposit(ic, from)
	if dep == nil || dep.Amount.Sign() == 0 {
		return stackitem.Make(false)
	}
	if ic.BlockHeight() < dep.Till {
		return stackitem.Make(false)
	}
	amount := new(big.Int).Set(&dep.Amount)
	_ = ic.DAO.DeleteStorageItem(n.ContractID, depositKey(from))
	n.GAS.mint(ic, to, amount)
	ic.Notify(n.Hash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(from.BytesLE()), stackitem.Make(to.BytesLE()), stackitem.Make(amount),
	}))
	return stackitem.Make(true)
}

func (n *Notary) balanceOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	dep := n.getDeposit(ic, toUint160(args[0]))
	if dep == nil {
		return stackitem.Make(big.NewInt(0))
	}
	return stackitem.Make(&dep.Amount)
}

func (n *Notary) expirationOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	dep := n.getDeposit(ic, toUint160(args[0]))
	if dep == nil {
		return stackitem.Make(int64(0))
	}
	return stackitem.Make(int64(dep.Till))
}

// Deposit credits account's locked collateral. It is exported for Go
// callers; GAS.transfer does not call it, so GAS sent to the Notary
// contract hash is not credited as a deposit.
func (n *Notary) Deposit(ic *interop.Context, account util.Uint160, amount *big.Int, till uint32) {
	dep := n.getDeposit(ic, account)
	if dep == nil {
		dep = &notaryDeposit{}
	}
	dep.Amount.Add(&dep.Amount, amount)
	if till > dep.Till {
		dep.Till = till
	}
	n.putDeposit(ic, account, dep)
}

func (n *Notary) getDeposit(ic *interop.Context, account util.Uint160) *notaryDeposit {
	item, err := ic.DAO.GetStorageItem(n.ContractID, depositKey(account))
	if err != nil {
		return nil
	}
	d := &notaryDeposit{}
	r := io.NewBinReaderFromBuf(item)
	d.DecodeBinary(r)
	if r.Err != nil {
		return nil
	}
	return d
}

func (n *Notary) putDeposit(ic *interop.Context, account util.Uint160, d *notaryDeposit) {
	w := io.NewBufBinWriter()
	d.EncodeBinary(w.BinWriter)
	_ = ic.DAO.PutStorageItem(n.ContractID, depositKey(account), state.StorageItem(w.Bytes()))
}

func depositKey(account util.Uint160) []byte {
	return append([]byte{notaryDepositPfx}, account.BytesLE()...)
}
