package mempool

import (
	"bytes"

	"github.com/n3ledger/n3core/pkg/core/transaction"
)

// item wraps a pooled transaction with the bookkeeping the pool needs
// beyond the transaction itself: arbitrary caller-attached data (e.g. the
// P2PNotaryRequest a fallback transaction arrived with) and the height at
// which it was last offered to a RemoveStale resend callback.
type item struct {
	txn          *transaction.Transaction
	data         interface{}
	resendHeight uint32
}

// CompareTo orders two items by the spec §4.5 priority rule: HighPriority
// transactions sort above all normal ones; within a tier, fee_per_byte
// descending, then network_fee descending, then hash as a final
// deterministic tiebreaker. A positive result means i outranks o.
func (i item) CompareTo(o item) int {
	_, ihp := i.txn.HasAttribute(transaction.AttrHighPriority)
	_, ohp := o.txn.HasAttribute(transaction.AttrHighPriority)
	if ihp != ohp {
		if ihp {
			return 1
		}
		return -1
	}

	if f1, f2 := i.txn.FeePerByte(), o.txn.FeePerByte(); f1 != f2 {
		if f1 > f2 {
			return 1
		}
		return -1
	}

	if i.txn.NetworkFee != o.txn.NetworkFee {
		if i.txn.NetworkFee > o.txn.NetworkFee {
			return 1
		}
		return -1
	}

	ih, oh := i.txn.Hash(), o.txn.Hash()
	return bytes.Compare(oh.BytesLE(), ih.BytesLE())
}

// items is a priority-ascending sort.Interface view; the pool itself
// stores its backing slice in priority-descending order (best first, so
// the least-prioritised entry — the one eviction removes — sits last).
type items []*item

func (p items) Len() int           { return len(p) }
func (p items) Less(i, j int) bool { return p[i].CompareTo(*p[j]) < 0 }
func (p items) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
