package payload

import (
	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/io"
)

// Headers answers GetHeaders/GetBlockByIndex with a batch of block
// headers, the basis of headers-first sync (spec §4.7).
type Headers struct {
	Headers []*block.Header
}

// EncodeBinary implements io.Serializable.
func (p *Headers) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(p.Headers)))
	for _, h := range p.Headers {
		h.EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (p *Headers) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	if n > MaxHeadersAllowed {
		n = MaxHeadersAllowed
	}
	p.Headers = make([]*block.Header, n)
	for i := range p.Headers {
		h := &block.Header{}
		h.DecodeBinary(r)
		p.Headers[i] = h
	}
}
