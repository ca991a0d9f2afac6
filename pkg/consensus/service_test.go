package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/mempool"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/util"
)

// fakeLedger is a minimal Ledger stand-in: a fixed validator set and a
// single AddBlock call the test asserts on, enough to drive one full
// dBFT round without a real Blockchain.
type fakeLedger struct {
	validators keys.PublicKeys
	quorum     int
	height     uint32
	tip        util.Uint256
	committed  *block.Block
}

func (f *fakeLedger) BlockHeight() uint32                    { return f.height }
func (f *fakeLedger) CurrentBlockHash() util.Uint256         { return f.tip }
func (f *fakeLedger) GetValidators() (keys.PublicKeys, int)  { return f.validators, f.quorum }
func (f *fakeLedger) Network() uint32                        { return 0x334F454E }
func (f *fakeLedger) AddBlock(b *block.Block) error {
	f.committed = b
	f.height++
	return nil
}

func newTestValidators(t *testing.T, n int) []*keys.PrivateKey {
	t.Helper()
	sks := make([]*keys.PrivateKey, n)
	for i := range sks {
		sk, err := keys.NewPrivateKey()
		require.NoError(t, err)
		sks[i] = sk
	}
	return sks
}

// TestServiceSingleRoundFinalizes wires up 4 validators (the minimum
// dBFT committee, quorum 3) and drives messages between their Services
// directly (no network), confirming a block is committed once enough
// PrepareResponses and Commits have circulated.
func TestServiceSingleRoundFinalizes(t *testing.T) {
	sks := newTestValidators(t, 4)
	pubs := make(keys.PublicKeys, len(sks))
	for i, sk := range sks {
		pubs[i] = sk.Pub
	}

	ledgers := make([]*fakeLedger, len(sks))
	services := make([]*Service, len(sks))

	var broadcast func(*Payload)
	for i, sk := range sks {
		ledgers[i] = &fakeLedger{validators: pubs, quorum: 3}
		pool := mempool.New(50, 5, false)
		idx := i
		services[idx] = NewService(Config{
			Chain: ledgers[idx],
			Pool:  pool,
			Key:   sk,
			Broadcast: func(p *Payload) {
				broadcast(p)
			},
		})
	}

	// Deliver every relayed payload to every other validator's service,
	// mimicking an in-process fully-connected network.
	broadcast = func(p *Payload) {
		for _, svc := range services {
			_ = svc.OnPayload(p)
		}
	}

	for _, svc := range services {
		require.NoError(t, svc.Start())
	}

	for _, l := range ledgers {
		require.NotNil(t, l.committed, "every validator's ledger should observe the finalized block")
		require.Equal(t, uint32(1), l.height)
	}

	ref := ledgers[0].committed
	for _, l := range ledgers[1:] {
		require.Equal(t, ref.Header.Hash(), l.committed.Header.Hash())
	}
	require.NotEmpty(t, ref.Header.Witness.VerificationScript)
	require.NotEmpty(t, ref.Header.Witness.InvocationScript)
}
