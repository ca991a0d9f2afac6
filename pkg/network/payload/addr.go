package payload

import (
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/capability"
)

// AddressAndTime is one entry of an Addr payload: a peer's address, the
// time it was last seen active, and the capabilities it advertised.
type AddressAndTime struct {
	Timestamp    uint32
	IP           [16]byte
	Capabilities []capability.Capability
}

// EncodeBinary implements io.Serializable.
func (a *AddressAndTime) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(a.Timestamp)
	w.WriteBytes(a.IP[:])
	w.WriteVarUint(uint64(len(a.Capabilities)))
	for i := range a.Capabilities {
		a.Capabilities[i].EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (a *AddressAndTime) DecodeBinary(r *io.BinReader) {
	a.Timestamp = r.ReadU32LE()
	copy(a.IP[:], r.ReadBytes(16))
	n := r.ReadVarUint()
	a.Capabilities = make([]capability.Capability, n)
	for i := range a.Capabilities {
		a.Capabilities[i].DecodeBinary(r)
	}
}

// Port returns the TCP port this entry's TCPServer capability advertises,
// or 0 if it carries none.
func (a *AddressAndTime) Port() uint16 {
	for _, c := range a.Capabilities {
		if c.Type == capability.TCPServer {
			return c.Data.(*capability.Server).Port
		}
	}
	return 0
}

// Addr is the reply to GetAddr: a sample of the sender's known address
// book, used to grow a thin node's peer set (spec §4.7 "Connection
// management").
type Addr struct {
	Addresses []AddressAndTime
}

// EncodeBinary implements io.Serializable.
func (a *Addr) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(a.Addresses)))
	for i := range a.Addresses {
		a.Addresses[i].EncodeBinary(w)
	}
}

// DecodeBinary implements io.Serializable.
func (a *Addr) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	a.Addresses = make([]AddressAndTime, n)
	for i := range a.Addresses {
		a.Addresses[i].DecodeBinary(r)
	}
}
