package consensus

import (
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// prepareRequest is the dBFT PrepareRequest body: the primary's proposed
// block content, minus its transaction bodies (those follow separately
// over P2P and are looked up by hash in the mempool/blockchain).
type prepareRequest struct {
	timestamp         uint32
	nonce             uint64
	transactionHashes []util.Uint256
	nextConsensus     util.Uint160
}

// EncodeBinary implements io.Serializable.
func (p *prepareRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.timestamp)
	w.WriteU64LE(p.nonce)
	w.WriteBytes(p.nextConsensus.BytesLE())
	w.WriteVarUint(uint64(len(p.transactionHashes)))
	for _, h := range p.transactionHashes {
		w.WriteBytes(h.BytesLE())
	}
}

// DecodeBinary implements io.Serializable.
func (p *prepareRequest) DecodeBinary(r *io.BinReader) {
	p.timestamp = r.ReadU32LE()
	p.nonce = r.ReadU64LE()
	p.nextConsensus, _ = util.Uint160DecodeBytesLE(r.ReadBytes(util.Uint160Size))
	n := r.ReadVarUint()
	p.transactionHashes = make([]util.Uint256, 0, n)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		h, _ := util.Uint256DecodeBytesLE(r.ReadBytes(util.Uint256Size))
		p.transactionHashes = append(p.transactionHashes, h)
	}
}

// prepareResponse is a backup validator's PrepareResponse: agreement with
// the primary's proposal, identified by the PrepareRequest payload's hash.
type prepareResponse struct {
	preparationHash util.Uint256
}

// EncodeBinary implements io.Serializable.
func (p *prepareResponse) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.preparationHash.BytesLE())
}

// DecodeBinary implements io.Serializable.
func (p *prepareResponse) DecodeBinary(r *io.BinReader) {
	p.preparationHash, _ = util.Uint256DecodeBytesLE(r.ReadBytes(util.Uint256Size))
}

// commit carries a validator's signature over the finalized block header,
// the last message exchanged once 2f+1 prepare responses have arrived.
type commit struct {
	signature [64]byte
}

// EncodeBinary implements io.Serializable.
func (c *commit) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(c.signature[:])
}

// DecodeBinary implements io.Serializable.
func (c *commit) DecodeBinary(r *io.BinReader) {
	copy(c.signature[:], r.ReadBytes(64))
}

// changeView is sent by a validator giving up on the current view's
// primary (timeout, bad proposal) and asking for the next one.
type changeView struct {
	newViewNumber byte
	timestamp     uint64
}

// EncodeBinary implements io.Serializable.
func (c *changeView) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.timestamp)
}

// DecodeBinary implements io.Serializable.
func (c *changeView) DecodeBinary(r *io.BinReader) {
	c.timestamp = r.ReadU64LE()
}

// recoveryRequest asks every other validator to reply with a
// recoveryMessage, sent by a validator that just joined a view in
// progress (restart, network partition healing) with no local state.
type recoveryRequest struct {
	timestamp uint32
}

// EncodeBinary implements io.Serializable.
func (m *recoveryRequest) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(m.timestamp)
}

// DecodeBinary implements io.Serializable.
func (m *recoveryRequest) DecodeBinary(r *io.BinReader) {
	m.timestamp = r.ReadU32LE()
}

// changeViewCompact/commitCompact/preparationCompact are the condensed,
// per-validator records a recoveryMessage bundles: just enough (index,
// witness invocation script, and body-specific fields) to reconstruct a
// full Payload on the receiving end via fromRecovery.
type changeViewCompact struct {
	ValidatorIndex     uint8
	OriginalViewNumber byte
	Timestamp          uint64
	InvocationScript   []byte
}

func (c *changeViewCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.ValidatorIndex)
	w.WriteB(c.OriginalViewNumber)
	w.WriteU64LE(c.Timestamp)
	w.WriteVarBytes(c.InvocationScript)
}

func (c *changeViewCompact) DecodeBinary(r *io.BinReader) {
	c.ValidatorIndex = r.ReadB()
	c.OriginalViewNumber = r.ReadB()
	c.Timestamp = r.ReadU64LE()
	c.InvocationScript = r.ReadVarBytes(1024)
}

type commitCompact struct {
	ViewNumber       byte
	ValidatorIndex   uint8
	Signature        [64]byte
	InvocationScript []byte
}

func (c *commitCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.ViewNumber)
	w.WriteB(c.ValidatorIndex)
	w.WriteBytes(c.Signature[:])
	w.WriteVarBytes(c.InvocationScript)
}

func (c *commitCompact) DecodeBinary(r *io.BinReader) {
	c.ViewNumber = r.ReadB()
	c.ValidatorIndex = r.ReadB()
	copy(c.Signature[:], r.ReadBytes(64))
	c.InvocationScript = r.ReadVarBytes(1024)
}

type preparationCompact struct {
	ValidatorIndex   uint8
	InvocationScript []byte
}

func (p *preparationCompact) EncodeBinary(w *io.BinWriter) {
	w.WriteB(p.ValidatorIndex)
	w.WriteVarBytes(p.InvocationScript)
}

func (p *preparationCompact) DecodeBinary(r *io.BinReader) {
	p.ValidatorIndex = r.ReadB()
	p.InvocationScript = r.ReadVarBytes(1024)
}

// recoveryMessage lets a validator that missed messages (restart,
// temporary partition) reconstruct enough of the current view's state to
// rejoin: every change-view/prepare/commit seen so far, compacted.
type recoveryMessage struct {
	preparationHash     *util.Uint256
	preparationPayloads []*preparationCompact
	commitPayloads      []*commitCompact
	changeViewPayloads  []*changeViewCompact
	prepareRequest      *prepareRequest
}

// EncodeBinary implements io.Serializable.
func (m *recoveryMessage) EncodeBinary(w *io.BinWriter) {
	io.WriteArray(w, m.changeViewPayloads)

	hasReq := m.prepareRequest != nil
	w.WriteBool(hasReq)
	if hasReq {
		m.prepareRequest.EncodeBinary(w)
	} else if m.preparationHash != nil {
		w.WriteVarUint(util.Uint256Size)
		w.WriteBytes(m.preparationHash.BytesLE())
	} else {
		w.WriteVarUint(0)
	}

	io.WriteArray(w, m.preparationPayloads)
	io.WriteArray(w, m.commitPayloads)
}

// DecodeBinary implements io.Serializable.
func (m *recoveryMessage) DecodeBinary(r *io.BinReader) {
	m.changeViewPayloads = io.ReadArray(r, func() *changeViewCompact { return &changeViewCompact{} })

	hasReq := r.ReadBool()
	if hasReq {
		m.prepareRequest = &prepareRequest{}
		m.prepareRequest.DecodeBinary(r)
	} else {
		n := r.ReadVarUint()
		if n == util.Uint256Size {
			h, _ := util.Uint256DecodeBytesLE(r.ReadBytes(util.Uint256Size))
			m.preparationHash = &h
		} else if n != 0 {
			r.Err = errUnknownMessageType
			return
		}
	}

	m.preparationPayloads = io.ReadArray(r, func() *preparationCompact { return &preparationCompact{} })
	m.commitPayloads = io.ReadArray(r, func() *commitCompact { return &commitCompact{} })
}
