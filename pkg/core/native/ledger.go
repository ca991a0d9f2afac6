package native

import (
	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const ledgerContractID = -4

// Ledger is the LedgerContract native: read-only queries over blocks
// and transactions already committed to the chain. It is a pure proxy
// over the DAO/Chain — the actual block/tx writes happen in the
// persistence pipeline, not here (spec §4.3/§4.4).
type Ledger struct {
	interop.ContractMD
}

var _ interop.Contract = (*Ledger)(nil)

func newLedger() *Ledger {
	l := &Ledger{ContractMD: *interop.NewContractMD(nativenames.Ledger, ledgerContractID)}

	l.AddMethod(newMethodAndPrice(l.currentHash, 1<<15, callflag.ReadStates),
		newDescriptor("currentHash", "Hash256"))
	l.AddMethod(newMethodAndPrice(l.currentIndex, 1<<15, callflag.ReadStates),
		newDescriptor("currentIndex", "Integer"))
	l.AddMethod(newMethodAndPrice(l.getTransaction, 1<<15, callflag.ReadStates),
		newDescriptor("getTransaction", "Array", newParam("hash", "Hash256")))
	l.AddMethod(newMethodAndPrice(l.getTransactionHeight, 1<<15, callflag.ReadStates),
		newDescriptor("getTransactionHeight", "Integer", newParam("hash", "Hash256")))

	return l
}

// Metadata implements interop.Contract.
func (l *Ledger) Metadata() *interop.ContractMD { return &l.ContractMD }

// Initialize implements interop.Contract.
func (l *Ledger) Initialize(*interop.Context) error { return nil }

// OnPersist implements interop.Contract: block/tx storage itself
// happens in the blockchain's persistence pipeline, not here, matching
// the reference engine's split (smart contracts never observe the
// in-flight block until PostPersist).
func (l *Ledger) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract.
func (l *Ledger) PostPersist(*interop.Context) error { return nil }

func (l *Ledger) currentHash(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	h := ic.Chain.CurrentBlockHash()
	return stackitem.Make(h.BytesLE())
}

func (l *Ledger) currentIndex(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(int64(ic.Chain.BlockHeight()))
}

func (l *Ledger) getTransaction(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	hash := toHash256(args[0])
	tx, _, err := ic.DAO.GetTransaction(hash)
	if err != nil {
		return stackitem.Null{}
	}
	return TransactionToStackItem(tx)
}

func (l *Ledger) getTransactionHeight(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	hash := toHash256(args[0])
	_, blockHash, err := ic.DAO.GetTransaction(hash)
	if err != nil {
		return stackitem.Make(int64(-1))
	}
	b, err := ic.DAO.GetBlock(blockHash)
	if err != nil {
		return stackitem.Make(int64(-1))
	}
	return stackitem.Make(int64(b.Index()))
}

func toHash256(item stackitem.Item) util.Uint256 {
	b, err := item.TryBytes()
	if err != nil {
		panic(err)
	}
	h, err := util.Uint256DecodeBytesLE(b)
	if err != nil {
		panic(err)
	}
	return h
}

// TransactionToStackItem renders a Transaction the way contract code
// observes it through LedgerContract.getTransaction.
func TransactionToStackItem(t *transaction.Transaction) stackitem.Item {
	h := t.Hash()
	return stackitem.NewArray([]stackitem.Item{
		stackitem.Make(h.BytesLE()),
		stackitem.Make(int64(t.Version)),
		stackitem.Make(int64(t.Nonce)),
		stackitem.Make(t.Sender().BytesLE()),
		stackitem.Make(t.SystemFee),
		stackitem.Make(t.NetworkFee),
		stackitem.Make(int64(t.ValidUntilBlock)),
		stackitem.Make(t.Script),
	})
}
