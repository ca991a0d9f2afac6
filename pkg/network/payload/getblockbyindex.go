package payload

import "github.com/n3ledger/n3core/pkg/io"

// MaxHeadersAllowed bounds how many headers a single GetBlockByIndex or
// GetHeaders request may pull in one round trip.
const MaxHeadersAllowed = 2000

// GetBlockByIndex requests Count consecutive blocks/headers starting at
// IndexStart, the batched step of headers-first sync (spec §4.7
// "Inventory diffusion"). Count of -1 means "as many as the responder
// allows" (capped at MaxHeadersAllowed).
type GetBlockByIndex struct {
	IndexStart uint32
	Count      int16
}

// EncodeBinary implements io.Serializable.
func (p *GetBlockByIndex) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.IndexStart)
	w.WriteU16LE(uint16(p.Count))
}

// DecodeBinary implements io.Serializable.
func (p *GetBlockByIndex) DecodeBinary(r *io.BinReader) {
	p.IndexStart = r.ReadU32LE()
	p.Count = int16(r.ReadU16LE())
}
