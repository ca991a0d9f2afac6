// Package network implements the P2P transport (spec §4.7): message
// framing, the handshake, inventory diffusion, and connection management
// that keeps a node's ledger and mempool in sync with its peers.
package network

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/payload"
)

// CommandType identifies a message's payload kind (spec §4.7 "Commands").
type CommandType byte

const (
	CMDVersion CommandType = iota
	CMDVerack
	CMDGetAddr
	CMDAddr
	CMDPing
	CMDPong
	CMDGetHeaders
	CMDHeaders
	CMDGetBlocks
	CMDGetBlockByIndex
	CMDMempool
	CMDInv
	CMDGetData
	CMDNotFound
	CMDTransaction
	CMDBlock
	CMDExtensible
	CMDReject
	CMDFilterLoad
	CMDFilterAdd
	CMDFilterClear
	CMDMerkleBlock
	CMDAlert
)

func (c CommandType) String() string {
	switch c {
	case CMDVersion:
		return "version"
	case CMDVerack:
		return "verack"
	case CMDGetAddr:
		return "getaddr"
	case CMDAddr:
		return "addr"
	case CMDPing:
		return "ping"
	case CMDPong:
		return "pong"
	case CMDGetHeaders:
		return "getheaders"
	case CMDHeaders:
		return "headers"
	case CMDGetBlocks:
		return "getblocks"
	case CMDGetBlockByIndex:
		return "getblockbyindex"
	case CMDMempool:
		return "mempool"
	case CMDInv:
		return "inv"
	case CMDGetData:
		return "getdata"
	case CMDNotFound:
		return "notfound"
	case CMDTransaction:
		return "tx"
	case CMDBlock:
		return "block"
	case CMDExtensible:
		return "extensible"
	case CMDReject:
		return "reject"
	case CMDFilterLoad:
		return "filterload"
	case CMDFilterAdd:
		return "filteradd"
	case CMDFilterClear:
		return "filterclear"
	case CMDMerkleBlock:
		return "merkleblock"
	case CMDAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// MaxPayloadSize bounds a single message's payload (spec §4.7 "Framing").
const MaxPayloadSize = 0x2000000

var (
	errChecksum       = errors.New("network: message checksum mismatch")
	errPayloadTooBig  = errors.New("network: payload exceeds MaxPayloadSize")
	errUnknownCommand = errors.New("network: unknown command type")
)

// Message is one P2P frame: magic ‖ command ‖ payload_length ‖ checksum ‖
// payload, exactly as spec §4.7 "Framing" describes.
type Message struct {
	Magic   uint32
	Command CommandType
	Payload io.Serializable
}

// NewMessage wraps a payload for a given network magic and command.
func NewMessage(magic uint32, cmd CommandType, p io.Serializable) *Message {
	if p == nil {
		p = &payload.Empty{}
	}
	return &Message{Magic: magic, Command: cmd, Payload: p}
}

// EncodeBinary implements io.Serializable.
func (m *Message) EncodeBinary(w *io.BinWriter) {
	body := io.NewBufBinWriter()
	m.Payload.EncodeBinary(body.BinWriter)
	raw := body.Bytes()

	sum := hash.Hash256(raw)

	w.WriteU32LE(m.Magic)
	w.WriteB(byte(m.Command))
	w.WriteU32LE(uint32(len(raw)))
	w.WriteBytes(sum[:4])
	w.WriteBytes(raw)
}

// DecodeBinary implements io.Serializable. The payload is decoded
// according to Command, so Command must already be known to pick the
// right io.Serializable before calling this (DecodeBinary reads it off
// the wire itself, ahead of dispatch).
func (m *Message) DecodeBinary(r *io.BinReader) {
	m.Magic = r.ReadU32LE()
	m.Command = CommandType(r.ReadB())
	length := r.ReadU32LE()
	if length > MaxPayloadSize {
		r.Err = errPayloadTooBig
		return
	}
	checksum := r.ReadBytes(4)
	raw := r.ReadBytes(int(length))
	if r.Err != nil {
		return
	}

	sum := hash.Hash256(raw)
	for i := 0; i < 4; i++ {
		if checksum[i] != sum[i] {
			r.Err = errChecksum
			return
		}
	}

	p, err := newPayload(m.Command)
	if err != nil {
		r.Err = err
		return
	}
	pr := io.NewBinReaderFromBuf(raw)
	p.DecodeBinary(pr)
	if pr.Err != nil {
		r.Err = pr.Err
		return
	}
	m.Payload = p
}

// newPayload returns a zero-value payload body for cmd, the shape
// DecodeBinary unmarshals the frame's raw bytes into.
func newPayload(cmd CommandType) (io.Serializable, error) {
	switch cmd {
	case CMDVersion:
		return &payload.Version{}, nil
	case CMDVerack, CMDGetAddr, CMDMempool:
		return &payload.Empty{}, nil
	case CMDAddr:
		return &payload.Addr{}, nil
	case CMDPing, CMDPong:
		return &payload.Ping{}, nil
	case CMDGetHeaders, CMDGetBlockByIndex:
		return &payload.GetBlockByIndex{}, nil
	case CMDHeaders:
		return &payload.Headers{}, nil
	case CMDInv, CMDGetData, CMDNotFound:
		return &payload.Inventory{}, nil
	case CMDTransaction:
		return &transaction.Transaction{}, nil
	case CMDBlock:
		return &block.Block{}, nil
	case CMDExtensible:
		return &payload.Extensible{}, nil
	default:
		return nil, errUnknownCommand
	}
}
