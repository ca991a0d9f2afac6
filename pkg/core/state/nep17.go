package state

import (
	"math/big"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// NEOBalance is the per-account state the NEO native contract keeps:
// balance plus the voting/gas-accrual bookkeeping needed to compute GAS
// distribution on transfer (spec §4.3 "NEO token").
type NEOBalance struct {
	Balance       big.Int
	BalanceHeight uint32
	VoteTo        *util.Uint160 // candidate public key hash, nil if unvoted
	LastGasPerVote big.Int
}

// EncodeBinary implements io.Serializable.
func (b *NEOBalance) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(b.Balance.Bytes())
	w.WriteBool(b.Balance.Sign() < 0)
	w.WriteU32LE(b.BalanceHeight)
	w.WriteBool(b.VoteTo != nil)
	if b.VoteTo != nil {
		w.WriteBytes(b.VoteTo.BytesLE())
	}
	w.WriteVarBytes(b.LastGasPerVote.Bytes())
	w.WriteBool(b.LastGasPerVote.Sign() < 0)
}

// DecodeBinary implements io.Serializable.
func (b *NEOBalance) DecodeBinary(r *io.BinReader) {
	mag := r.ReadVarBytes(64)
	neg := r.ReadBool()
	b.Balance.SetBytes(mag)
	if neg {
		b.Balance.Neg(&b.Balance)
	}
	b.BalanceHeight = r.ReadU32LE()
	if r.ReadBool() {
		h, _ := util.Uint160DecodeBytesLE(r.ReadBytes(20))
		b.VoteTo = &h
	}
	mag2 := r.ReadVarBytes(64)
	neg2 := r.ReadBool()
	b.LastGasPerVote.SetBytes(mag2)
	if neg2 {
		b.LastGasPerVote.Neg(&b.LastGasPerVote)
	}
}

// GASBalance is the per-account state the GAS native contract keeps.
type GASBalance struct {
	Balance big.Int
}

// EncodeBinary implements io.Serializable.
func (b *GASBalance) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(b.Balance.Bytes())
	w.WriteBool(b.Balance.Sign() < 0)
}

// DecodeBinary implements io.Serializable.
func (b *GASBalance) DecodeBinary(r *io.BinReader) {
	mag := r.ReadVarBytes(64)
	neg := r.ReadBool()
	b.Balance.SetBytes(mag)
	if neg {
		b.Balance.Neg(&b.Balance)
	}
}

// Validator is one registered NEO committee candidate.
type Validator struct {
	PublicKey []byte
	Votes     big.Int
	Registered bool
}

// EncodeBinary implements io.Serializable.
func (v *Validator) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(v.PublicKey)
	w.WriteVarBytes(v.Votes.Bytes())
	w.WriteBool(v.Votes.Sign() < 0)
	w.WriteBool(v.Registered)
}

// DecodeBinary implements io.Serializable.
func (v *Validator) DecodeBinary(r *io.BinReader) {
	v.PublicKey = r.ReadVarBytes(33)
	mag := r.ReadVarBytes(64)
	neg := r.ReadBool()
	v.Votes.SetBytes(mag)
	if neg {
		v.Votes.Neg(&v.Votes)
	}
	v.Registered = r.ReadBool()
}
