package consensus

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/util"
)

// neoBlock wraps a proposed block.Block with the extra Sign/Verify surface
// dbft needs to drive consensus over it, without teaching block.Block
// itself about the committee key material.
type neoBlock struct {
	block.Block

	signature []byte
}

// Sign implements dbft's Block interface: signs the header hash (the same
// value block.Header.Hash returns, witness excluded) with key.
func (n *neoBlock) Sign(key *privateKey) error {
	sig, err := key.PrivateKey.Sign(n.Block.Header.Hash().BytesBE())
	if err != nil {
		return err
	}
	n.signature = sig
	return nil
}

// Verify implements dbft's Block interface.
func (n *neoBlock) Verify(key *publicKey, sig []byte) error {
	if key.PublicKey.Verify(n.Block.Header.Hash().BytesBE(), sig) {
		return nil
	}
	return errBlockVerificationFailed
}

// Transactions returns the block's transaction list.
func (n *neoBlock) Transactions() []*transaction.Transaction { return n.Block.Transactions }

// SetTransactions replaces the block's transaction list, called once dBFT
// has assembled the final set a PrepareRequest proposed.
func (n *neoBlock) SetTransactions(txs []*transaction.Transaction) { n.Block.Transactions = txs }

// PrevHash implements dbft's Block interface.
func (n *neoBlock) PrevHash() util.Uint256 { return n.Block.Header.PrevHash }

// MerkleRoot implements dbft's Block interface.
func (n *neoBlock) MerkleRoot() util.Uint256 { return n.Block.Header.MerkleRoot }

// Timestamp implements dbft's Block interface, in milliseconds.
func (n *neoBlock) Timestamp() uint64 { return n.Block.Header.TimestampMS }

// Index implements dbft's Block interface.
func (n *neoBlock) Index() uint32 { return n.Block.Header.Index }

// Signature returns the signature produced by the most recent Sign call.
func (n *neoBlock) Signature() []byte { return n.signature }

// Hash implements dbft's Block interface.
func (n *neoBlock) Hash() util.Uint256 { return n.Block.Hash() }

var errBlockVerificationFailed = errors.New("consensus: block signature verification failed")
