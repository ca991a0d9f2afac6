// Package block implements the Neo3 block and header wire format (spec §3
// "Block").
package block

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

var (
	ErrMerkleRootMismatch = errors.New("block: computed merkle root does not match header")
	ErrEmptyWitness       = errors.New("block: header witness is required")
)

// Header is a block's fixed-size metadata plus the single witness proving
// the previous committee signed off on next_consensus.
type Header struct {
	Version       uint8 // always 0
	PrevHash      util.Uint256
	MerkleRoot    util.Uint256
	TimestampMS   uint64
	Nonce         uint64
	Index         uint32
	PrimaryIndex  uint8
	NextConsensus util.Uint160
	Witness       transaction.Witness

	hash *util.Uint256
}

func (h *Header) encodeUnsigned(w *io.BinWriter) {
	w.WriteB(h.Version)
	w.WriteBytes(h.PrevHash.BytesLE())
	w.WriteBytes(h.MerkleRoot.BytesLE())
	w.WriteU64LE(h.TimestampMS)
	w.WriteU64LE(h.Nonce)
	w.WriteU32LE(h.Index)
	w.WriteB(h.PrimaryIndex)
	w.WriteBytes(h.NextConsensus.BytesLE())
}

// Hash returns Hash256 of the header with its witness excluded, per spec
// §3 ("Hash is Hash256 of the header minus its witness").
func (h *Header) Hash() util.Uint256 {
	if h.hash == nil {
		w := io.NewBufBinWriter()
		h.encodeUnsigned(w.BinWriter)
		raw := hash.Hash256(w.Bytes())
		v, _ := util.Uint256DecodeBytesLE(raw[:])
		h.hash = &v
	}
	return *h.hash
}

// EncodeBinary implements io.Serializable.
func (h *Header) EncodeBinary(w *io.BinWriter) {
	h.encodeUnsigned(w)
	w.WriteB(1) // witness count is always 1 for a header
	h.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (h *Header) DecodeBinary(r *io.BinReader) {
	h.Version = r.ReadB()
	h.PrevHash, _ = util.Uint256DecodeBytesLE(r.ReadBytes(32))
	h.MerkleRoot, _ = util.Uint256DecodeBytesLE(r.ReadBytes(32))
	h.TimestampMS = r.ReadU64LE()
	h.Nonce = r.ReadU64LE()
	h.Index = r.ReadU32LE()
	h.PrimaryIndex = r.ReadB()
	h.NextConsensus, _ = util.Uint160DecodeBytesLE(r.ReadBytes(20))
	n := r.ReadB()
	if n != 1 {
		r.Err = ErrEmptyWitness
		return
	}
	h.Witness.DecodeBinary(r)
}

// Block is a Header plus its transaction list.
type Block struct {
	Header       Header
	Transactions []*transaction.Transaction
}

// ComputeMerkleRoot recomputes the Merkle root of this block's transaction
// hashes.
func (b *Block) ComputeMerkleRoot() util.Uint256 {
	leaves := make([][32]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		h := tx.Hash()
		leaves[i] = [32]byte(h)
	}
	raw := hash.MerkleRoot(leaves)
	root, _ := util.Uint256DecodeBytesLE(raw[:])
	return root
}

// VerifyMerkleRoot checks the header's declared root against the actual
// transaction list (spec §4.4 "structural" block checks).
func (b *Block) VerifyMerkleRoot() error {
	if b.ComputeMerkleRoot() != b.Header.MerkleRoot {
		return ErrMerkleRootMismatch
	}
	return nil
}

// Hash delegates to the header.
func (b *Block) Hash() util.Uint256 { return b.Header.Hash() }

// Index delegates to the header.
func (b *Block) Index() uint32 { return b.Header.Index }

// EncodeBinary implements io.Serializable.
func (b *Block) EncodeBinary(w *io.BinWriter) {
	b.Header.EncodeBinary(w)
	io.WriteArray(w, b.Transactions)
}

// DecodeBinary implements io.Serializable.
func (b *Block) DecodeBinary(r *io.BinReader) {
	b.Header.DecodeBinary(r)
	b.Transactions = io.ReadArray(r, func() *transaction.Transaction { return &transaction.Transaction{} })
}
