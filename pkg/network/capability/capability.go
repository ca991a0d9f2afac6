// Package capability describes the services a peer advertises in its
// Version handshake payload (spec §4.7 "Handshake"): which transports it
// listens on and whether it archives full history.
package capability

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/io"
)

// Type identifies one capability entry.
type Type byte

const (
	// TCPServer means the peer accepts inbound TCP connections on Data.Port.
	TCPServer Type = 0x01
	// WSServer means the peer accepts inbound WebSocket connections on Data.Port.
	WSServer Type = 0x02
	// FullNode means the peer keeps the full block history back to genesis,
	// tracked alongside the height it had last announced.
	FullNode Type = 0x10
)

var errUnknownCapability = errors.New("capability: unknown type")

// Server carries the port a TCPServer/WSServer capability listens on.
type Server struct {
	Port uint16
}

func (s *Server) EncodeBinary(w *io.BinWriter) { w.WriteU16LE(s.Port) }
func (s *Server) DecodeBinary(r *io.BinReader)  { s.Port = r.ReadU16LE() }

// Node carries the block height a FullNode capability claims to archive.
type Node struct {
	StartHeight uint32
}

func (n *Node) EncodeBinary(w *io.BinWriter) { w.WriteU32LE(n.StartHeight) }
func (n *Node) DecodeBinary(r *io.BinReader)  { n.StartHeight = r.ReadU32LE() }

// Capability pairs a Type tag with its type-specific body.
type Capability struct {
	Type Type
	Data io.Serializable
}

// EncodeBinary implements io.Serializable.
func (c *Capability) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(c.Type))
	c.Data.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (c *Capability) DecodeBinary(r *io.BinReader) {
	c.Type = Type(r.ReadB())
	switch c.Type {
	case TCPServer, WSServer:
		c.Data = &Server{}
	case FullNode:
		c.Data = &Node{}
	default:
		r.Err = errUnknownCapability
		return
	}
	c.Data.DecodeBinary(r)
}
