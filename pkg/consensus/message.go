// Package consensus implements the dBFT message/payload wire format and the
// Service that drives block agreement among the committee (spec §4.6
// "dBFT Consensus").
package consensus

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// messageType identifies a dBFT message's payload kind, carried as the
// first byte after the view number in every consensus Payload.
type messageType byte

const (
	changeViewType      messageType = 0x00
	prepareRequestType  messageType = 0x20
	prepareResponseType messageType = 0x21
	commitType          messageType = 0x30
	recoveryRequestType messageType = 0x40
	recoveryMessageType messageType = 0x41
)

var errUnknownMessageType = errors.New("consensus: unknown message type")

// message is the common envelope every dBFT payload body rides inside:
// a type tag, the view it was produced in, and the type-specific body.
type message struct {
	Type       messageType
	ViewNumber byte

	payload io.Serializable
}

func (m *message) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(m.Type))
	w.WriteB(m.ViewNumber)
	m.payload.EncodeBinary(w)
}

func (m *message) DecodeBinary(r *io.BinReader) {
	m.Type = messageType(r.ReadB())
	m.ViewNumber = r.ReadB()
	m.payload = newPayloadBody(m.Type)
	if m.payload == nil {
		r.Err = errUnknownMessageType
		return
	}
	m.payload.DecodeBinary(r)
	if cv, ok := m.payload.(*changeView); ok {
		cv.newViewNumber = m.ViewNumber + 1
	}
}

func newPayloadBody(t messageType) io.Serializable {
	switch t {
	case changeViewType:
		return &changeView{}
	case prepareRequestType:
		return &prepareRequest{}
	case prepareResponseType:
		return &prepareResponse{}
	case commitType:
		return &commit{}
	case recoveryRequestType:
		return &recoveryRequest{}
	case recoveryMessageType:
		return &recoveryMessage{}
	default:
		return nil
	}
}

// Payload is one signed consensus network message: a message envelope
// plus the block/validator/timestamp context it was issued under and the
// witness authenticating the sending validator (spec §4.6, §4.7 — relayed
// over P2P the same way an inventory payload is).
type Payload struct {
	message

	Version        uint32
	ValidatorIndex uint16
	PrevHash       util.Uint256
	BlockIndex     uint32
	Timestamp      uint32

	Witness transaction.Witness

	hash *util.Uint256
}

// Hash returns Hash256 of the payload with its witness excluded, the
// identity relayCache keys payloads by and RecoveryMessage references by.
func (p *Payload) Hash() util.Uint256 {
	if p.hash == nil {
		w := io.NewBufBinWriter()
		p.encodeUnsigned(w.BinWriter)
		h := util.Uint256{}
		if w.Err == nil {
			raw := hash.Hash256(w.Bytes())
			h, _ = util.Uint256DecodeBytesLE(raw[:])
		}
		p.hash = &h
	}
	return *p.hash
}

func (p *Payload) encodeUnsigned(w *io.BinWriter) {
	w.WriteU32LE(p.Version)
	w.WriteBytes(p.PrevHash.BytesLE())
	w.WriteU32LE(p.BlockIndex)
	w.WriteU16LE(p.ValidatorIndex)
	w.WriteU32LE(p.Timestamp)
	p.message.EncodeBinary(w)
}

// EncodeBinary implements io.Serializable.
func (p *Payload) EncodeBinary(w *io.BinWriter) {
	p.encodeUnsigned(w)
	p.Witness.EncodeBinary(w)
}

// DecodeBinary implements io.Serializable.
func (p *Payload) DecodeBinary(r *io.BinReader) {
	p.Version = r.ReadU32LE()
	p.PrevHash, _ = util.Uint256DecodeBytesLE(r.ReadBytes(util.Uint256Size))
	p.BlockIndex = r.ReadU32LE()
	p.ValidatorIndex = r.ReadU16LE()
	p.Timestamp = r.ReadU32LE()
	p.message.DecodeBinary(r)
	p.Witness.DecodeBinary(r)
}

// GetChangeView returns the type-asserted body, valid only when
// Type == changeViewType.
func (p *Payload) GetChangeView() *changeView { return p.payload.(*changeView) }

// GetPrepareRequest returns the type-asserted body, valid only when
// Type == prepareRequestType.
func (p *Payload) GetPrepareRequest() *prepareRequest { return p.payload.(*prepareRequest) }

// GetPrepareResponse returns the type-asserted body, valid only when
// Type == prepareResponseType.
func (p *Payload) GetPrepareResponse() *prepareResponse { return p.payload.(*prepareResponse) }

// GetCommit returns the type-asserted body, valid only when
// Type == commitType.
func (p *Payload) GetCommit() *commit { return p.payload.(*commit) }

// GetRecoveryMessage returns the type-asserted body, valid only when
// Type == recoveryMessageType.
func (p *Payload) GetRecoveryMessage() *recoveryMessage { return p.payload.(*recoveryMessage) }

func newPrepareRequestPayload(viewNumber byte, body *prepareRequest) *message {
	return &message{Type: prepareRequestType, ViewNumber: viewNumber, payload: body}
}

func newPrepareResponsePayload(viewNumber byte, body *prepareResponse) *message {
	return &message{Type: prepareResponseType, ViewNumber: viewNumber, payload: body}
}

func newChangeViewPayload(viewNumber byte, body *changeView) *message {
	return &message{Type: changeViewType, ViewNumber: viewNumber, payload: body}
}

func newCommitPayload(viewNumber byte, body *commit) *message {
	return &message{Type: commitType, ViewNumber: viewNumber, payload: body}
}

func newRecoveryRequestPayload(viewNumber byte, body *recoveryRequest) *message {
	return &message{Type: recoveryRequestType, ViewNumber: viewNumber, payload: body}
}

func newRecoveryMessagePayload(viewNumber byte, body *recoveryMessage) *message {
	return &message{Type: recoveryMessageType, ViewNumber: viewNumber, payload: body}
}

// Bytes serializes the payload for transport inside a P2P Extensible
// message's Data field (category "dBFT"), the shape the network layer
// diffuses consensus votes in without needing to parse them.
func (p *Payload) Bytes() ([]byte, error) {
	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// PayloadFromBytes deserializes a Payload previously produced by Bytes,
// the inverse used when an Extensible message's Data is handed back to
// this package by the network layer.
func PayloadFromBytes(b []byte) (*Payload, error) {
	p := &Payload{}
	r := io.NewBinReaderFromBuf(b)
	p.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return p, nil
}
