package payload

import "github.com/n3ledger/n3core/pkg/io"

// Ping is both the Ping and Pong payload body: announces the sender's
// current height alongside a nonce the Pong echoes back, letting the
// sender measure round-trip latency and detect an unresponsive peer
// (spec §4.7 "Connection management" — ping_timeout enforcement).
type Ping struct {
	LastBlockIndex uint32
	Timestamp      uint32
	Nonce          uint32
}

// NewPing builds a Ping/Pong payload.
func NewPing(height, nonce uint32, timestamp uint32) *Ping {
	return &Ping{LastBlockIndex: height, Timestamp: timestamp, Nonce: nonce}
}

// EncodeBinary implements io.Serializable.
func (p *Ping) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.LastBlockIndex)
	w.WriteU32LE(p.Timestamp)
	w.WriteU32LE(p.Nonce)
}

// DecodeBinary implements io.Serializable.
func (p *Ping) DecodeBinary(r *io.BinReader) {
	p.LastBlockIndex = r.ReadU32LE()
	p.Timestamp = r.ReadU32LE()
	p.Nonce = r.ReadU32LE()
}
