package payload

import (
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// Extensible carries an arbitrary witnessed message outside the
// transaction/block/consensus structure, identified by Category (spec
// §4.7 lists "Extensible" as a command without fixing its contents):
// consensus dBFT payloads ride inside one of these, tagged "dBFT". The
// server relays each Extensible whole, as a CMDExtensible message, to every
// peer that has not yet seen its hash, without reading Category or Data;
// Extensibles are not announced through Inv/GetData.
type Extensible struct {
	Category        string
	ValidBlockStart uint32
	ValidBlockEnd   uint32
	Sender          util.Uint160
	Data            []byte
	Witness         transaction.Witness

	hash *util.Uint256
}

func (p *Extensible) encodeUnsigned(w *io.BinWriter) {
	w.WriteVarString(p.Category)
	w.WriteU32LE(p.ValidBlockStart)
	w.WriteU32LE(p.ValidBlockEnd)
	w.WriteBytes(p.Sender.BytesLE())
	w.WriteVarBytes(p.Data)
}

// Hash returns Hash256 of the payload with its witness excluded, the
// value diffused in Inv/GetData and the value the witness authenticates.
func (p *Extensible) Hash() util.Uint256 {
	if p.hash == nil {
		w := io.NewBufBinWriter()
		p.encodeUnsigned(w.BinWriter)
		h := hash.Hash256(w.Bytes())
		u, _ := util.Uint256DecodeBytesLE(h[:])
		p.hash = &u
	}
	return *p.hash
}

// EncodeBinary implements io.Serializable.
func (p *Extensible) EncodeBinary(w *io.BinWriter) {
	p.encodeUnsigned(w)
	p.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *Extensible) DecodeBinary(r *io.BinReader) {
	p.Category = r.ReadVarString()
	p.ValidBlockStart = r.ReadU32LE()
	p.ValidBlockEnd = r.ReadU32LE()
	sender, err := util.Uint160DecodeBytesLE(r.ReadBytes(util.Uint160Size))
	if err != nil {
		r.Err = err
		return
	}
	p.Sender = sender
	p.Data = r.ReadVarBytes()
	p.Witness.DecodeBinary(r)
}
