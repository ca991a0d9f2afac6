package payload

import (
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/capability"
)

// Version is the first payload exchanged on every connection (spec §4.7
// "Handshake"): identifies the peer's network, software, and the
// transports/history it offers via Capabilities. The FullNode capability
// (when present) carries the height spec.md calls start_height, rather
// than duplicating it as a top-level field.
type Version struct {
	Network      uint32
	Timestamp    uint32
	Nonce        uint32
	UserAgent    string
	Capabilities []capability.Capability
}

// NewVersion builds a Version payload for an outbound handshake.
func NewVersion(network, timestamp, nonce uint32, userAgent string, startHeight uint32, tcpPort uint16) *Version {
	return &Version{
		Network:   network,
		Timestamp: timestamp,
		Nonce:     nonce,
		UserAgent: userAgent,
		Capabilities: []capability.Capability{
			{Type: capability.TCPServer, Data: &capability.Server{Port: tcpPort}},
			{Type: capability.FullNode, Data: &capability.Node{StartHeight: startHeight}},
		},
	}
}

// StartHeight returns the height advertised by this Version's FullNode
// capability, or 0 if none is present (a pruned or light peer).
func (v *Version) StartHeight() uint32 {
	for _, c := range v.Capabilities {
		if c.Type == capability.FullNode {
			return c.Data.(*capability.Node).StartHeight
		}
	}
	return 0
}

// EncodeBinary implements io.Serializable.
func (v *Version) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(v.Network)
	w.WriteU32LE(v.Timestamp)
	w.WriteU32LE(v.Nonce)
	w.WriteVarString(v.UserAgent)
	w.WriteVarUint(uint64(len(v.Capabilities)))
	for i := range v.Capabilities {
		v.Capabilities[i].EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (v *Version) DecodeBinary(r *io.BinReader) {
	v.Network = r.ReadU32LE()
	v.Timestamp = r.ReadU32LE()
	v.Nonce = r.ReadU32LE()
	v.UserAgent = r.ReadVarString()
	n := r.ReadVarUint()
	v.Capabilities = make([]capability.Capability, n)
	for i := range v.Capabilities {
		v.Capabilities[i].DecodeBinary(r)
	}
}
