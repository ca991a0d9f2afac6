package payload

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// InventoryType identifies the kind of object an Inventory payload's
// hashes refer to.
type InventoryType byte

const (
	TXType               InventoryType = 0x2b
	BlockType             InventoryType = 0x2c
	ExtensibleType         InventoryType = 0x2e
	P2PNotaryRequestType   InventoryType = 0x2d
)

var errMaxInventoryHashes = errors.New("payload: inventory hash count exceeds maximum")

// maxHashesCount bounds a single Inv/GetData/NotFound message, mirroring
// the limit on how many items one GetData round trip may request.
const maxHashesCount = 500

// Inventory is the shared body of Inv, GetData, and NotFound (spec §4.7
// "Inventory diffusion"): a typed list of object hashes, interpreted
// differently by each command (announce / request / report-missing).
type Inventory struct {
	Type   InventoryType
	Hashes []util.Uint256
}

// NewInventory builds an Inventory payload for the given type and hashes.
func NewInventory(t InventoryType, hashes []util.Uint256) *Inventory {
	return &Inventory{Type: t, Hashes: hashes}
}

// EncodeBinary implements io.Serializable.
func (p *Inventory) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(p.Type))
	w.WriteVarUint(uint64(len(p.Hashes)))
	for _, h := range p.Hashes {
		w.WriteBytes(h.BytesLE())
	}
}

// DecodeBinary implements io.Serializable.
func (p *Inventory) DecodeBinary(r *io.BinReader) {
	p.Type = InventoryType(r.ReadB())
	n := r.ReadVarUint()
	if n > maxHashesCount {
		r.Err = errMaxInventoryHashes
		return
	}
	p.Hashes = make([]util.Uint256, n)
	for i := range p.Hashes {
		h, err := util.Uint256DecodeBytesLE(r.ReadBytes(util.Uint256Size))
		if err != nil {
			r.Err = err
			return
		}
		p.Hashes[i] = h
	}
}
