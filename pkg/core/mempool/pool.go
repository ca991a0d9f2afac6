// Package mempool implements the bounded pool of valid-but-unconfirmed
// transactions a node holds between blocks (spec §4.5): fee-ordered
// admission and eviction, HighPriority precedence, Conflicts-attribute and
// OracleResponse-id collision handling, per-sender fee accounting, and an
// optional change-notification feed for RPC/consensus consumers.
package mempool

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/util"
)

// Feer supplies the chain state the pool needs to verify and order
// transactions without depending on the full blockchain interface.
type Feer interface {
	GetBaseExecFee() int64
	FeePerByte() int64
	BlockHeight() uint32
	GetUtilityTokenBalance(util.Uint160) *big.Int
	P2PSigExtensionsEnabled() bool
}

// Errors returned by Add.
var (
	ErrDup                = errors.New("mempool: transaction already in pool")
	ErrInsufficientFunds  = errors.New("mempool: insufficient GAS balance")
	ErrConflictsAttribute = errors.New("mempool: conflicts attribute resolution failed")
	ErrOracleResponse     = errors.New("mempool: lower-fee duplicate oracle response")
	ErrOutOfCapacity      = errors.New("mempool: pool is full and transaction does not outrank the minimum")
)

// utilityBalanceAndFees is the per-sender accounting the pool uses to
// reject transactions that would overdraw GAS across several pooled
// transactions from the same account.
type utilityBalanceAndFees struct {
	balance *big.Int
	feeSum  *big.Int
}

// Pool is the mempool itself. All mutating operations serialize through
// mtx, matching the single-logical-writer model spec §5 describes;
// readers (GetVerifiedTransactions, TryGetValue) take the read lock.
type Pool struct {
	mtx sync.RWMutex

	capacity     int
	reservedSlots int

	verifiedMap  map[util.Uint256]*item
	verifiedTxes items

	conflicts  *lru.Cache // util.Uint256 -> []util.Uint256
	oracleResp map[uint64]util.Uint256
	fees       map[util.Uint160]utilityBalanceAndFees

	resendThreshold uint32
	resendFunc      func(*transaction.Transaction, interface{})

	subscriptionsEnabled bool
	subscribersMtx       sync.RWMutex
	subscribers          map[chan<- Event]struct{}
	subRunning           bool
	events               chan Event
	stopCh               chan struct{}
}

// New builds an empty pool with the given capacity. reservedSlots is
// stored on the pool but not consulted: capacity eviction treats every
// transaction alike and keeps no headroom for any kind of transaction.
func New(capacity, reservedSlots int, enableSubscriptions bool) *Pool {
	conflictCache, _ := lru.New(capacity * 4)
	mp := &Pool{
		capacity:      capacity,
		reservedSlots: reservedSlots,
		verifiedMap:   make(map[util.Uint256]*item),
		conflicts:     conflictCache,
		oracleResp:    make(map[uint64]util.Uint256),
		fees:          make(map[util.Uint160]utilityBalanceAndFees),

		subscriptionsEnabled: enableSubscriptions,
		subscribers:          make(map[chan<- Event]struct{}),
	}
	if enableSubscriptions {
		mp.events = make(chan Event, subChanCapacity)
		mp.stopCh = make(chan struct{})
	}
	return mp
}

// Count returns the number of transactions currently pooled.
func (mp *Pool) Count() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return len(mp.verifiedTxes)
}

// ContainsKey reports whether h is pooled.
func (mp *Pool) ContainsKey(h util.Uint256) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.containsKey(h)
}

func (mp *Pool) containsKey(h util.Uint256) bool {
	_, ok := mp.verifiedMap[h]
	return ok
}

// TryGetValue returns the pooled transaction for h, if any.
func (mp *Pool) TryGetValue(h util.Uint256) (*transaction.Transaction, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	it, ok := mp.verifiedMap[h]
	if !ok {
		return nil, false
	}
	return it.txn, true
}

// TryGetData returns the caller-attached data for h, if the transaction
// is still tracked (verifiedMap) even if it has since fallen out of the
// priority-ordered verifiedTxes slice.
func (mp *Pool) TryGetData(h util.Uint256) (interface{}, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	it, ok := mp.verifiedMap[h]
	if !ok {
		return nil, false
	}
	return it.data, true
}

// GetVerifiedTransactions returns every pooled transaction, best-priority
// first.
func (mp *Pool) GetVerifiedTransactions() []*transaction.Transaction {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	out := make([]*transaction.Transaction, len(mp.verifiedTxes))
	for i, it := range mp.verifiedTxes {
		out[i] = it.txn
	}
	return out
}

// Verify reports whether tx's sender can afford it, given everything
// already pooled from that sender, without mutating any pool state.
func (mp *Pool) Verify(tx *transaction.Transaction, feer Feer) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	_, ok := mp.checkBalance(tx, feer)
	return ok
}

func (mp *Pool) checkBalance(tx *transaction.Transaction, feer Feer) (utilityBalanceAndFees, bool) {
	sender := tx.Sender()
	need := new(big.Int).Add(big.NewInt(tx.SystemFee), big.NewInt(tx.NetworkFee))

	existing, has := mp.fees[sender]
	if !has {
		existing = utilityBalanceAndFees{
			balance: feer.GetUtilityTokenBalance(sender),
			feeSum:  big.NewInt(0),
		}
	}
	total := new(big.Int).Add(existing.feeSum, need)
	if total.Cmp(existing.balance) > 0 {
		return existing, false
	}
	return utilityBalanceAndFees{balance: existing.balance, feeSum: total}, true
}

// Add verifies and admits tx, optionally carrying caller-attached data
// (the P2PNotaryRequest a fallback transaction arrived wrapped in). See
// spec §4.5 "Insertion protocol".
func (mp *Pool) Add(tx *transaction.Transaction, feer Feer, data ...interface{}) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	h := tx.Hash()
	if mp.containsKey(h) {
		return ErrDup
	}

	if respID, ok := mp.oracleResponseID(tx); ok {
		if owner, exists := mp.oracleResp[respID]; exists {
			if ownerIt := mp.verifiedMap[owner]; ownerIt != nil && ownerIt.txn.NetworkFee >= tx.NetworkFee {
				return ErrOracleResponse
			}
			mp.removeLocked(owner, feer, "replaced")
		}
	}

	if err := mp.checkConflicts(tx); err != nil {
		return err
	}

	newFees, ok := mp.checkBalance(tx, feer)
	if !ok {
		return ErrInsufficientFunds
	}

	it := &item{txn: tx, resendHeight: feer.BlockHeight()}
	if len(data) > 0 {
		it.data = data[0]
	}

	if len(mp.verifiedTxes) >= mp.capacity {
		min := mp.verifiedTxes[len(mp.verifiedTxes)-1]
		if it.CompareTo(*min) <= 0 {
			return ErrOutOfCapacity
		}
		mp.removeLocked(min.txn.Hash(), feer, "evicted")
	}

	mp.insertLocked(it)
	mp.fees[tx.Sender()] = newFees
	mp.registerConflicts(tx)
	if respID, ok := mp.oracleResponseID(tx); ok {
		mp.oracleResp[respID] = h
	}
	mp.notify(TransactionAdded, tx, "")
	return nil
}

func (mp *Pool) insertLocked(it *item) {
	mp.verifiedMap[it.txn.Hash()] = it
	idx := sort.Search(len(mp.verifiedTxes), func(i int) bool {
		return mp.verifiedTxes[i].CompareTo(*it) <= 0
	})
	mp.verifiedTxes = append(mp.verifiedTxes, nil)
	copy(mp.verifiedTxes[idx+1:], mp.verifiedTxes[idx:])
	mp.verifiedTxes[idx] = it
}

// oracleResponseID extracts the OracleResponse attribute id, if present.
func (mp *Pool) oracleResponseID(tx *transaction.Transaction) (uint64, bool) {
	a, ok := tx.HasAttribute(transaction.AttrOracleResponse)
	if !ok {
		return 0, false
	}
	return a.OracleID, true
}

// checkConflicts applies spec §4.5's two-step Conflicts resolution: the
// incoming transaction's own Conflicts attributes against what is
// currently pooled (step 2), and whatever already-pooled transactions
// have previously declared a conflict against the incoming hash (step 1).
func (mp *Pool) checkConflicts(tx *transaction.Transaction) error {
	h := tx.Hash()

	if v, ok := mp.conflicts.Get(h); ok {
		for _, attacker := range v.([]util.Uint256) {
			if it, ok := mp.verifiedMap[attacker]; ok && it.txn.NetworkFee >= tx.NetworkFee {
				return ErrConflictsAttribute
			}
		}
	}

	for _, a := range tx.Attributes {
		if a.Type != transaction.AttrConflicts {
			continue
		}
		if it, ok := mp.verifiedMap[a.Hash]; ok {
			if it.txn.NetworkFee >= tx.NetworkFee {
				return ErrConflictsAttribute
			}
		}
	}

	// Step 2 positive: evict any outranked conflict targets now that we
	// know this transaction is admissible.
	for _, a := range tx.Attributes {
		if a.Type != transaction.AttrConflicts {
			continue
		}
		if it, ok := mp.verifiedMap[a.Hash]; ok && it.txn.NetworkFee < tx.NetworkFee {
			mp.removeLocked(a.Hash, noopFeer{}, "conflict")
		}
	}
	return nil
}

func (mp *Pool) registerConflicts(tx *transaction.Transaction) {
	h := tx.Hash()
	for _, a := range tx.Attributes {
		if a.Type != transaction.AttrConflicts {
			continue
		}
		var list []util.Uint256
		if v, ok := mp.conflicts.Get(a.Hash); ok {
			list = v.([]util.Uint256)
		}
		list = append(list, h)
		mp.conflicts.Add(a.Hash, list)
	}
}

func (mp *Pool) unregisterConflicts(tx *transaction.Transaction) {
	h := tx.Hash()
	for _, a := range tx.Attributes {
		if a.Type != transaction.AttrConflicts {
			continue
		}
		v, ok := mp.conflicts.Get(a.Hash)
		if !ok {
			continue
		}
		list := v.([]util.Uint256)
		out := list[:0]
		for _, x := range list {
			if !x.Equals(h) {
				out = append(out, x)
			}
		}
		if len(out) == 0 {
			mp.conflicts.Remove(a.Hash)
		} else {
			mp.conflicts.Add(a.Hash, out)
		}
	}
}

// Remove drops h from the pool, if present.
func (mp *Pool) Remove(h util.Uint256, feer Feer) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.removeLocked(h, feer, "removed")
}

func (mp *Pool) removeLocked(h util.Uint256, feer Feer, reason string) {
	it, ok := mp.verifiedMap[h]
	if !ok {
		return
	}
	delete(mp.verifiedMap, h)
	for i, x := range mp.verifiedTxes {
		if x == it {
			mp.verifiedTxes = append(mp.verifiedTxes[:i], mp.verifiedTxes[i+1:]...)
			break
		}
	}
	mp.unregisterConflicts(it.txn)
	if respID, ok := mp.oracleResponseID(it.txn); ok {
		if owner, exists := mp.oracleResp[respID]; exists && owner.Equals(h) {
			delete(mp.oracleResp, respID)
		}
	}

	sender := it.txn.Sender()
	if fb, ok := mp.fees[sender]; ok {
		paid := new(big.Int).Add(big.NewInt(it.txn.SystemFee), big.NewInt(it.txn.NetworkFee))
		remaining := new(big.Int).Sub(fb.feeSum, paid)
		if remaining.Sign() <= 0 {
			delete(mp.fees, sender)
		} else {
			mp.fees[sender] = utilityBalanceAndFees{balance: fb.balance, feeSum: remaining}
		}
	}

	mp.notify(TransactionRemoved, it.txn, reason)
}

// RemoveStale drops every pooled transaction isValid rejects, and asks
// resendFunc (if configured via SetResendThreshold) to re-broadcast any
// surviving transaction that has waited resendThreshold blocks since it
// was last offered.
func (mp *Pool) RemoveStale(isValid func(*transaction.Transaction) bool, feer Feer) {
	mp.mtx.Lock()
	var toResend []*item
	height := feer.BlockHeight()
	for _, it := range append(items{}, mp.verifiedTxes...) {
		if !isValid(it.txn) {
			mp.removeLocked(it.txn.Hash(), feer, "stale")
			continue
		}
		if mp.resendThreshold > 0 && height-it.resendHeight >= mp.resendThreshold {
			it.resendHeight = height
			toResend = append(toResend, it)
		}
	}
	resendFunc := mp.resendFunc
	mp.mtx.Unlock()

	if resendFunc == nil {
		return
	}
	for _, it := range toResend {
		go resendFunc(it.txn, it.data)
	}
}

// SetResendThreshold configures RemoveStale to invoke f for any
// transaction that has sat in the pool for at least n blocks without
// being re-broadcast.
func (mp *Pool) SetResendThreshold(n uint32, f func(*transaction.Transaction, interface{})) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.resendThreshold = n
	mp.resendFunc = f
}

// noopFeer is used internally where Remove's feer parameter is unused
// beyond satisfying removeLocked's signature (the conflict-eviction path
// never consults balances).
type noopFeer struct{}

func (noopFeer) GetBaseExecFee() int64                            { return 0 }
func (noopFeer) FeePerByte() int64                                { return 0 }
func (noopFeer) BlockHeight() uint32                              { return 0 }
func (noopFeer) GetUtilityTokenBalance(util.Uint160) *big.Int     { return big.NewInt(0) }
func (noopFeer) P2PSigExtensionsEnabled() bool                    { return false }
