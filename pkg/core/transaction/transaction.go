// Package transaction implements the Neo3 transaction wire format and its
// structural invariants (spec §3 "Transaction"). Legacy Neo2 transaction
// types are out of scope (see design note in DESIGN.md): this package
// models Neo3 only.
package transaction

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// MaxTransactionSize bounds a transaction's total serialised size.
const MaxTransactionSize = 102400

var (
	ErrWitnessSignerMismatch = errors.New("transaction: witness count must equal signer count")
	ErrNoSigners             = errors.New("transaction: at least one signer is required")
	ErrDuplicateSigner       = errors.New("transaction: duplicate signer account")
	ErrNegativeFee           = errors.New("transaction: fees must be non-negative")
	ErrTooLarge              = errors.New("transaction: exceeds MaxTransactionSize")
	ErrDuplicateAttrType     = errors.New("transaction: attribute type does not allow duplicates")
)

// Transaction is the Neo3 transaction envelope.
type Transaction struct {
	Version         uint8 // always 0
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Attributes      []Attribute
	Script          []byte
	Witnesses       []Witness

	hash      *util.Uint256
	size      int
}

// Sender returns signers[0], the fee payer (spec §3).
func (t *Transaction) Sender() util.Uint160 {
	return t.Signers[0].Account
}

// HasAttribute reports whether an attribute of the given type is present,
// returning it if so.
func (t *Transaction) HasAttribute(at AttrType) (*Attribute, bool) {
	for i := range t.Attributes {
		if t.Attributes[i].Type == at {
			return &t.Attributes[i], true
		}
	}
	return nil, false
}

// Conflicts returns the hashes declared via Conflicts attributes.
func (t *Transaction) Conflicts() []util.Uint256 {
	var out []util.Uint256
	for i := range t.Attributes {
		if t.Attributes[i].Type == AttrConflicts {
			out = append(out, t.Attributes[i].Hash)
		}
	}
	return out
}

// bodyBytes serialises every field except the witnesses, the payload that
// is both hashed (tx hash) and signed (witness verification).
func (t *Transaction) bodyBytes() []byte {
	w := io.NewBufBinWriter()
	t.encodeUnsigned(w.BinWriter)
	return w.Bytes()
}

func (t *Transaction) encodeUnsigned(w *io.BinWriter) {
	w.WriteB(t.Version)
	w.WriteU32LE(t.Nonce)
	w.WriteI64LE(t.SystemFee)
	w.WriteI64LE(t.NetworkFee)
	w.WriteU32LE(t.ValidUntilBlock)
	io.WriteArray(w, signerPtrs(t.Signers))
	io.WriteArray(w, attrPtrs(t.Attributes))
	w.WriteVarBytes(t.Script)
}

func signerPtrs(s []Signer) []*Signer {
	out := make([]*Signer, len(s))
	for i := range s {
		out[i] = &s[i]
	}
	return out
}

func attrPtrs(a []Attribute) []*Attribute {
	out := make([]*Attribute, len(a))
	for i := range a {
		out[i] = &a[i]
	}
	return out
}

// Hash returns Hash256 of the unsigned body, computed once and cached.
func (t *Transaction) Hash() util.Uint256 {
	if t.hash == nil {
		raw := hash.Hash256(t.bodyBytes())
		h, _ := util.Uint256DecodeBytesLE(raw[:])
		t.hash = &h
	}
	return *t.hash
}

// EncodeBinary implements io.Serializable.
func (t *Transaction) EncodeBinary(w *io.BinWriter) {
	t.encodeUnsigned(w)
	io.WriteArray(w, witnessPtrs(t.Witnesses))
}

func witnessPtrs(ws []Witness) []*Witness {
	out := make([]*Witness, len(ws))
	for i := range ws {
		out[i] = &ws[i]
	}
	return out
}

// DecodeBinary implements io.Serializable.
func (t *Transaction) DecodeBinary(r *io.BinReader) {
	t.Version = r.ReadB()
	t.Nonce = r.ReadU32LE()
	t.SystemFee = r.ReadI64LE()
	t.NetworkFee = r.ReadI64LE()
	t.ValidUntilBlock = r.ReadU32LE()
	signers := io.ReadArray(r, func() *Signer { return &Signer{} })
	t.Signers = derefSigners(signers)
	attrs := io.ReadArray(r, func() *Attribute { return &Attribute{} })
	t.Attributes = derefAttrs(attrs)
	t.Script = r.ReadVarBytes(64 * 1024)
	witnesses := io.ReadArray(r, func() *Witness { return &Witness{} })
	t.Witnesses = derefWitnesses(witnesses)
}

func derefSigners(s []*Signer) []Signer {
	out := make([]Signer, len(s))
	for i, p := range s {
		out[i] = *p
	}
	return out
}
func derefAttrs(a []*Attribute) []Attribute {
	out := make([]Attribute, len(a))
	for i, p := range a {
		out[i] = *p
	}
	return out
}
func derefWitnesses(ws []*Witness) []Witness {
	out := make([]Witness, len(ws))
	for i, p := range ws {
		out[i] = *p
	}
	return out
}

// Validate checks the structural invariants from spec §3/§4.4 that do not
// require chain state (fee sufficiency, witness verification, conflict
// detection belong to the ledger/mempool layer which has that state).
func (t *Transaction) Validate() error {
	if len(t.Signers) == 0 {
		return ErrNoSigners
	}
	seen := make(map[util.Uint160]bool, len(t.Signers))
	for _, s := range t.Signers {
		if seen[s.Account] {
			return ErrDuplicateSigner
		}
		seen[s.Account] = true
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if len(t.Witnesses) != len(t.Signers) {
		return ErrWitnessSignerMismatch
	}
	if t.SystemFee < 0 || t.NetworkFee < 0 {
		return ErrNegativeFee
	}
	counts := make(map[AttrType]int)
	for _, a := range t.Attributes {
		counts[a.Type]++
		if counts[a.Type] > 1 && !AllowMultiple(a.Type) {
			return ErrDuplicateAttrType
		}
	}
	if len(t.bodyBytes())+witnessesSize(t.Witnesses) > MaxTransactionSize {
		return ErrTooLarge
	}
	return nil
}

func witnessesSize(ws []Witness) int {
	n := 1
	for _, w := range ws {
		n += len(w.InvocationScript) + len(w.VerificationScript) + 2
	}
	return n
}

// Size returns the cached or freshly computed serialised size in bytes,
// used by fee-per-byte calculations.
func (t *Transaction) Size() int {
	if t.size == 0 {
		t.size = len(io.ToSerializable(t))
	}
	return t.size
}

// FeePerByte returns NetworkFee / Size(), the mempool's primary ordering
// key (spec §4.5).
func (t *Transaction) FeePerByte() int64 {
	sz := t.Size()
	if sz == 0 {
		return 0
	}
	return t.NetworkFee / int64(sz)
}
