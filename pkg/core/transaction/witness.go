package transaction

import (
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// MaxScriptLength bounds a single invocation/verification script.
const MaxScriptLength = 64 * 1024

// Witness is the (invocation, verification) script pair proving a signer
// authorised a transaction (spec §3 "Witness").
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// ScriptHash returns Hash160(VerificationScript), the account this witness
// authenticates.
func (w *Witness) ScriptHash() util.Uint160 {
	h := hash.Hash160(w.VerificationScript)
	u, _ := util.Uint160DecodeBytesLE(h[:])
	return u
}

// EncodeBinary implements io.Serializable.
func (w *Witness) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(w.InvocationScript)
	bw.WriteVarBytes(w.VerificationScript)
}

// DecodeBinary implements io.Serializable.
func (w *Witness) DecodeBinary(br *io.BinReader) {
	w.InvocationScript = br.ReadVarBytes(MaxScriptLength)
	w.VerificationScript = br.ReadVarBytes(MaxScriptLength)
}
