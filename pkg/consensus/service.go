package consensus

import (
	"errors"
	"sync"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/mempool"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/smartcontract"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/opcode"
)

// Ledger is the chain surface Service drives consensus against: enough
// to learn the current validator set and tip, and to commit a finished
// block once enough commits are collected.
type Ledger interface {
	BlockHeight() uint32
	CurrentBlockHash() util.Uint256
	GetValidators() (keys.PublicKeys, int)
	AddBlock(b *block.Block) error
	Network() uint32
}

var (
	errUnknownValidator  = errors.New("consensus: payload validator index out of range")
	errStalePayload      = errors.New("consensus: payload height/view does not match current state")
	errNoValidators      = errors.New("consensus: no validators configured")
	errQuorumUnreachable = errors.New("consensus: commit witness assembly failed")
)

// Config wires a Service to its chain, mempool, and committee key.
type Config struct {
	Chain     Ledger
	Pool      *mempool.Pool
	Key       *keys.PrivateKey
	Broadcast func(*Payload)
}

// Service runs one validator's side of dBFT (spec §4.6): propose when
// primary, vote prepare-response when backup, commit once a quorum of
// responses agree, and finalize the block once a quorum of commits is
// in. Single height/view worth of state lives here at a time; a view
// change or a finalized block resets it for the next round. The Service
// acts on ChangeView payloads it receives, but it runs no round timer and
// never sends a ChangeView of its own.
type Service struct {
	mu sync.Mutex

	chain     Ledger
	pool      *mempool.Pool
	key       *privateKey
	broadcast func(*Payload)
	cache     *relayCache

	height     uint32
	view       byte
	myIndex    int16
	validators keys.PublicKeys
	quorum     int

	proposal         *neoBlock
	prepareRequestP  *Payload
	prepareResponses map[uint16]*Payload
	commits          map[uint16]*Payload
	changeViews      map[uint16]*Payload
}

// NewService builds a Service for the validator identified by cfg.Key,
// idle until Start is called.
func NewService(cfg Config) *Service {
	return &Service{
		chain:     cfg.Chain,
		pool:      cfg.Pool,
		key:       &privateKey{cfg.Key},
		broadcast: cfg.Broadcast,
		cache:     newFIFOCache(cacheMaxCapacity),
	}
}

// Start begins a fresh round at the chain's current height, proposing
// immediately if this validator is the round's primary.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initRound(s.chain.BlockHeight(), 0)
}

// initRound resets all per-round state for (height, view) and, if this
// validator is primary, sends a PrepareRequest. Caller holds s.mu.
func (s *Service) initRound(height uint32, view byte) error {
	validators, m := s.chain.GetValidators()
	if len(validators) == 0 {
		return errNoValidators
	}
	s.height = height
	s.view = view
	s.validators = validators
	s.quorum = m
	s.myIndex = s.indexOf(s.key.Pub)
	s.proposal = nil
	s.prepareRequestP = nil
	s.prepareResponses = make(map[uint16]*Payload)
	s.commits = make(map[uint16]*Payload)
	s.changeViews = make(map[uint16]*Payload)

	if s.isPrimary() {
		return s.sendPrepareRequest()
	}
	return nil
}

func (s *Service) indexOf(pub *keys.PublicKey) int16 {
	for i, v := range s.validators {
		if v.Equals(pub) {
			return int16(i)
		}
	}
	return -1
}

func (s *Service) primaryIndex() int {
	n := len(s.validators)
	return (int(s.height) + int(s.view)) % n
}

func (s *Service) isPrimary() bool {
	return s.myIndex >= 0 && int(s.myIndex) == s.primaryIndex()
}

// sendPrepareRequest proposes the mempool's current verified
// transactions as the next block. Caller holds s.mu.
func (s *Service) sendPrepareRequest() error {
	txs := s.pool.GetVerifiedTransactions()
	hashes := make([]util.Uint256, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}

	prevHash := s.chain.CurrentBlockHash()
	nextConsensus, err := smartcontract.CreateMultiSigAccount(s.quorum, s.validators)
	if err != nil {
		return err
	}

	hdr := block.Header{
		PrevHash:      prevHash,
		Index:         s.height,
		PrimaryIndex:  uint8(s.primaryIndex()),
		NextConsensus: nextConsensus,
	}
	nb := &neoBlock{Block: block.Block{Header: hdr, Transactions: txs}}
	nb.Header.MerkleRoot = nb.Block.ComputeMerkleRoot()
	s.proposal = nb

	body := &prepareRequest{
		timestamp:         0,
		transactionHashes: hashes,
		nextConsensus:     nextConsensus,
	}
	msg := newPrepareRequestPayload(s.view, body)
	p := s.wrap(msg)
	s.prepareRequestP = p
	s.relay(p)

	return s.acceptPrepare(p)
}

// OnPayload processes a payload received from a peer (or echoed back to
// ourselves by relay). It is safe for concurrent callers.
func (s *Service) OnPayload(p *Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.BlockIndex != s.height {
		return errStalePayload
	}
	if int(p.ValidatorIndex) >= len(s.validators) {
		return errUnknownValidator
	}
	s.cache.Add(p)

	switch p.Type {
	case prepareRequestType:
		return s.onPrepareRequest(p)
	case prepareResponseType:
		return s.onPrepareResponse(p)
	case commitType:
		return s.onCommit(p)
	case changeViewType:
		return s.onChangeView(p)
	case recoveryRequestType:
		return s.onRecoveryRequest(p)
	case recoveryMessageType:
		return s.onRecoveryMessage(p)
	}
	return errUnknownMessageType
}

// GetPayload returns the cached payload with hash h, or nil, letting a
// peer's inventory request be answered without rebroadcasting.
func (s *Service) GetPayload(h util.Uint256) *Payload {
	return s.cache.Get(h)
}

func (s *Service) onPrepareRequest(p *Payload) error {
	if int(p.ValidatorIndex) != s.primaryIndex() || p.ViewNumber != s.view {
		return nil
	}
	s.prepareRequestP = p
	return s.acceptPrepare(p)
}

// acceptPrepare sends this validator's own PrepareResponse once a
// PrepareRequest for the current view is in hand (primary accepts its
// own proposal the same way a backup accepts the primary's).
func (s *Service) acceptPrepare(p *Payload) error {
	if s.myIndex < 0 {
		return nil
	}
	body := &prepareResponse{preparationHash: p.Hash()}
	msg := newPrepareResponsePayload(s.view, body)
	resp := s.wrap(msg)
	s.relay(resp)
	return s.onPrepareResponse(resp)
}

func (s *Service) onPrepareResponse(p *Payload) error {
	if p.ViewNumber != s.view {
		return nil
	}
	s.prepareResponses[p.ValidatorIndex] = p
	if s.prepareRequestP == nil || len(s.prepareResponses) < s.quorum {
		return nil
	}
	if s.proposal == nil {
		return nil
	}
	return s.sendCommit()
}

// sendCommit signs the proposed block's header hash and broadcasts a
// Commit payload once a quorum of PrepareResponses has agreed. Caller
// holds s.mu.
func (s *Service) sendCommit() error {
	if _, ok := s.commits[uint16(s.myIndex)]; ok {
		return nil
	}
	sig, err := s.key.PrivateKey.Sign(s.proposal.Block.Header.Hash().BytesLE())
	if err != nil {
		return err
	}
	var body commit
	copy(body.signature[:], sig)
	msg := newCommitPayload(s.view, &body)
	p := s.wrap(msg)
	s.relay(p)
	return s.onCommit(p)
}

func (s *Service) onCommit(p *Payload) error {
	if p.ViewNumber != s.view {
		return nil
	}
	s.commits[p.ValidatorIndex] = p
	if len(s.commits) < s.quorum || s.proposal == nil {
		return nil
	}
	return s.finalize()
}

// finalize assembles the multisig witness from collected commits (in
// ascending validator order, matching the order CheckMultisig expects
// its signatures in) and submits the block to the chain.
func (s *Service) finalize() error {
	sigs := make([][]byte, 0, s.quorum)
	for i := range s.validators {
		c, ok := s.commits[uint16(i)]
		if !ok {
			continue
		}
		body := c.GetCommit()
		sigs = append(sigs, append([]byte{}, body.signature[:]...))
		if len(sigs) == s.quorum {
			break
		}
	}
	if len(sigs) < s.quorum {
		return errQuorumUnreachable
	}

	verification, err := smartcontract.CreateMultiSigRedeemScript(s.quorum, s.validators)
	if err != nil {
		return err
	}
	s.proposal.Block.Header.Witness = transaction.Witness{
		InvocationScript:   multisigInvocationScript(sigs),
		VerificationScript: verification,
	}

	b := &s.proposal.Block
	if err := s.chain.AddBlock(b); err != nil {
		return err
	}
	return s.initRound(s.height+1, 0)
}

// multisigInvocationScript pushes each signature in turn, the shape a
// multisig verification script's CheckMultisig expects to consume.
func multisigInvocationScript(sigs [][]byte) []byte {
	var out []byte
	for _, sig := range sigs {
		out = append(out, byte(opcode.PUSHDATA1), byte(len(sig)))
		out = append(out, sig...)
	}
	return out
}

func (s *Service) onChangeView(p *Payload) error {
	s.changeViews[p.ValidatorIndex] = p
	if len(s.changeViews) < s.quorum {
		return nil
	}
	body := p.GetChangeView()
	return s.initRound(s.height, body.newViewNumber)
}

// onRecoveryRequest replies with everything this validator has seen so
// far for the round in progress, letting a validator that just
// (re)joined catch up without a fresh view change.
func (s *Service) onRecoveryRequest(p *Payload) error {
	if s.myIndex < 0 {
		return nil
	}
	msg := newRecoveryMessagePayload(s.view, s.buildRecoveryMessage())
	s.relay(s.wrap(msg))
	return nil
}

func (s *Service) buildRecoveryMessage() *recoveryMessage {
	m := &recoveryMessage{}
	if s.prepareRequestP != nil {
		m.prepareRequest = s.prepareRequestP.GetPrepareRequest()
	}
	for idx, p := range s.prepareResponses {
		m.preparationPayloads = append(m.preparationPayloads, &preparationCompact{
			ValidatorIndex:   uint8(idx),
			InvocationScript: p.Witness.InvocationScript,
		})
	}
	for idx, p := range s.commits {
		c := p.GetCommit()
		m.commitPayloads = append(m.commitPayloads, &commitCompact{
			ViewNumber:       p.ViewNumber,
			ValidatorIndex:   uint8(idx),
			Signature:        c.signature,
			InvocationScript: p.Witness.InvocationScript,
		})
	}
	return m
}

// onRecoveryMessage replays a recovery message's prepare request (if
// any and if not already known) into this validator's own state; full
// replay of every compacted payload is left to a future pass since it
// needs each compact entry rehydrated into a signed Payload, which
// requires knowing the sender validator's witness construction rules
// the compacted form alone doesn't carry.
func (s *Service) onRecoveryMessage(p *Payload) error {
	msg := p.GetRecoveryMessage()
	if msg.prepareRequest != nil && s.prepareRequestP == nil {
		body := msg.prepareRequest
		inner := newPrepareRequestPayload(p.ViewNumber, body)
		rebuilt := &Payload{
			message:        *inner,
			Version:        p.Version,
			ValidatorIndex: uint16(s.primaryIndex()),
			PrevHash:       p.PrevHash,
			BlockIndex:     p.BlockIndex,
			Timestamp:      p.Timestamp,
		}
		return s.onPrepareRequest(rebuilt)
	}
	return nil
}

// wrap finishes a message envelope into a full signed-by-self Payload
// (witness left empty; transport-level signing over the wire happens
// the same way a transaction witness does, out of this package's
// scope).
func (s *Service) wrap(msg *message) *Payload {
	return &Payload{
		message:        *msg,
		Version:        0,
		ValidatorIndex: uint16(s.myIndex),
		PrevHash:       s.chain.CurrentBlockHash(),
		BlockIndex:     s.height,
		Timestamp:      0,
	}
}

func (s *Service) relay(p *Payload) {
	s.cache.Add(p)
	if s.broadcast != nil {
		s.broadcast(p)
	}
}
