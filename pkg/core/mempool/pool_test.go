package mempool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/util"
)

type feerStub struct {
	height  uint32
	balance int64
}

func (f *feerStub) GetBaseExecFee() int64 { return 30 }
func (f *feerStub) FeePerByte() int64     { return 0 }
func (f *feerStub) BlockHeight() uint32   { return f.height }
func (f *feerStub) GetUtilityTokenBalance(util.Uint160) *big.Int {
	return big.NewInt(f.balance)
}
func (f *feerStub) P2PSigExtensionsEnabled() bool { return true }

func newTx(nonce uint32, netFee int64, sender util.Uint160) *transaction.Transaction {
	return &transaction.Transaction{
		Nonce:      nonce,
		NetworkFee: netFee,
		Signers:    []transaction.Signer{{Account: sender}},
	}
}

func TestAddRemove(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	mp := New(10, 0, false)
	sender := util.Uint160{1, 2, 3}
	tx := newTx(0, 100, sender)

	_, ok := mp.TryGetValue(tx.Hash())
	require.False(t, ok)

	require.NoError(t, mp.Add(tx, fs))
	require.Error(t, mp.Add(tx, fs))

	got, ok := mp.TryGetValue(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx, got)

	mp.Remove(tx.Hash(), fs)
	_, ok = mp.TryGetValue(tx.Hash())
	require.False(t, ok)
	require.Equal(t, 0, mp.Count())
}

func TestCapacityEviction(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp := New(3, 0, false)

	for i := uint32(0); i < 3; i++ {
		require.NoError(t, mp.Add(newTx(i, int64(i+1), sender), fs))
	}
	require.Equal(t, 3, mp.Count())

	// Lower fee than everything pooled: rejected.
	require.ErrorIs(t, mp.Add(newTx(10, 0, sender), fs), ErrOutOfCapacity)

	// Higher fee than the current minimum: admitted, minimum evicted.
	require.NoError(t, mp.Add(newTx(11, 100, sender), fs))
	require.Equal(t, 3, mp.Count())
}

func TestInsufficientFunds(t *testing.T) {
	fs := &feerStub{balance: 50}
	sender := util.Uint160{1, 2, 3}
	mp := New(10, 0, false)

	tx := newTx(0, 100, sender)
	require.False(t, mp.Verify(tx, fs))
	require.ErrorIs(t, mp.Add(tx, fs), ErrInsufficientFunds)
	require.Equal(t, 0, len(mp.fees))
}

func TestOracleResponseCollision(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp := New(10, 0, false)

	oracleTx := func(nonce uint32, fee int64, id uint64) *transaction.Transaction {
		tx := newTx(nonce, fee, sender)
		tx.Attributes = []transaction.Attribute{{Type: transaction.AttrOracleResponse, OracleID: id}}
		return tx
	}

	tx1 := oracleTx(0, 10, 1)
	require.NoError(t, mp.Add(tx1, fs))

	tx2 := oracleTx(1, 5, 1)
	require.ErrorIs(t, mp.Add(tx2, fs), ErrOracleResponse)

	tx3 := oracleTx(2, 20, 1)
	require.NoError(t, mp.Add(tx3, fs))
	_, ok := mp.TryGetValue(tx1.Hash())
	require.False(t, ok)
}

func TestConflictsAttribute(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp := New(10, 0, false)

	tx1 := newTx(0, 10, sender)
	require.NoError(t, mp.Add(tx1, fs))

	conflictTx := func(nonce uint32, fee int64, target util.Uint256) *transaction.Transaction {
		tx := newTx(nonce, fee, sender)
		tx.Attributes = []transaction.Attribute{{Type: transaction.AttrConflicts, Hash: target}}
		return tx
	}

	// Lower fee than tx1: rejected.
	tx2 := conflictTx(1, 5, tx1.Hash())
	require.ErrorIs(t, mp.Add(tx2, fs), ErrConflictsAttribute)

	// Higher fee than tx1: admitted, tx1 evicted.
	tx3 := conflictTx(2, 20, tx1.Hash())
	require.NoError(t, mp.Add(tx3, fs))
	_, ok := mp.TryGetValue(tx1.Hash())
	require.False(t, ok)
}

func TestRemoveStale(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp := New(10, 0, false)

	keep := newTx(0, 10, sender)
	drop := newTx(1, 10, sender)
	require.NoError(t, mp.Add(keep, fs))
	require.NoError(t, mp.Add(drop, fs))

	mp.RemoveStale(func(tx *transaction.Transaction) bool {
		return tx.Hash() == keep.Hash()
	}, fs)

	require.Equal(t, 1, mp.Count())
	_, ok := mp.TryGetValue(keep.Hash())
	require.True(t, ok)
}

func TestSubscriptionsDisabledPanics(t *testing.T) {
	mp := New(5, 0, false)
	require.Panics(t, func() { mp.RunSubscriptions() })
	require.Panics(t, func() { mp.StopSubscriptions() })
}

func TestSubscriptionsDeliverEvents(t *testing.T) {
	fs := &feerStub{balance: 1000000}
	sender := util.Uint160{1, 2, 3}
	mp := New(2, 0, true)
	mp.RunSubscriptions()
	t.Cleanup(mp.StopSubscriptions)

	ch := make(chan Event, 4)
	mp.SubscribeForTransactions(ch)

	tx := newTx(0, 10, sender)
	require.NoError(t, mp.Add(tx, fs))

	ev := <-ch
	assert.Equal(t, TransactionAdded, ev.Type)
	assert.Equal(t, tx, ev.Tx)

	mp.Remove(tx.Hash(), fs)
	ev = <-ch
	assert.Equal(t, TransactionRemoved, ev.Type)
	assert.Equal(t, tx, ev.Tx)
}
