// Package node wires together the storage, chain, mempool, network, and
// consensus layers into the single running process a node operator
// starts (spec §6 "Environment" + the CLI-facing operations it lists:
// get_balance, show_state, show_pool, show_peers, show_block,
// show_transaction), grounded on the teacher's cmd/neoserver bootstrap
// but generalized from its hardcoded TestNet server into something
// config-driven.
package node

import (
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/n3ledger/n3core/pkg/address"
	"github.com/n3ledger/n3core/pkg/config"
	"github.com/n3ledger/n3core/pkg/consensus"
	"github.com/n3ledger/n3core/pkg/core"
	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/mempool"
	"github.com/n3ledger/n3core/pkg/core/storage"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/network"
	"github.com/n3ledger/n3core/pkg/network/payload"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/opcode"
)

// consensusCategory tags the dBFT payloads this node's Extensible
// messages carry, distinguishing them from a P2PSigExtensions-enabled
// chain's NotaryRequest Extensibles on the same wire.
const consensusCategory = "dBFT"

// mempoolReservedSlots is passed to mempool.New as its reservedSlots
// argument. The pool records the value but never consults it, so no part
// of MemPoolSize is held back for Oracle/Notary-attributed transactions.
const mempoolReservedSlots = 20

// Node owns one running instance: its store, chain, mempool, P2P server,
// and (if a validator key was supplied) its consensus service.
type Node struct {
	cfg            config.Config
	addressVersion byte

	store storage.Store
	chain *core.Blockchain
	pool  *mempool.Pool

	server    *network.Server
	consensus *consensus.Service
	validator *keys.PrivateKey

	log *zap.Logger

	blockCh chan *block.Block
	stopCh  chan struct{}
}

// New builds a Node from a loaded configuration document. validatorKeyHex,
// if non-empty, is this node's consensus signing key (hex-encoded
// secp256r1 scalar; wallet file formats are out of scope, see DESIGN.md)
// and causes a consensus.Service to be started alongside the P2P server.
func New(cfg config.Config, validatorKeyHex string, userAgentVersion string, log *zap.Logger) (*Node, error) {
	proto := cfg.ProtocolConfiguration
	app := cfg.ApplicationConfiguration

	store, err := storage.NewStore(storage.Engine(app.Storage.Engine), app.Storage.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("node: opening storage: %w", err)
	}

	standby, err := proto.StandbyCommitteeKeys()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("node: decoding standby committee: %w", err)
	}

	chain, err := core.NewBlockchain(store, core.Config{
		Network:              uint32(proto.Magic),
		MaxTraceableBlocks:   proto.MaxTraceableBlocks,
		MillisecondsPerBlock: uint32(proto.TimePerBlock / time.Millisecond),
		P2PSigExtensions:     proto.P2PSigExtensions,
		StandbyCommittee:     standby,
		CommitteeSize:        proto.GetCommitteeSize(),
		ValidatorsCount:      proto.GetNumOfCNs(),
		InitialGASSupply:     proto.InitialGASSupply,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("node: initializing chain: %w", err)
	}

	pool := mempool.New(proto.MemPoolSize, mempoolReservedSlots, true)

	n := &Node{
		cfg:            cfg,
		addressVersion: proto.AddressVersion,
		store:          store,
		chain:          chain,
		pool:           pool,
		log:            log,
		blockCh:        make(chan *block.Block, 16),
		stopCh:         make(chan struct{}),
	}

	n.server = network.NewServer(network.Config{
		Net:          uint32(proto.Magic),
		UserAgent:    config.UserAgent(userAgentVersion),
		ListenTCP:    app.P2P.ListenTCP,
		SeedList:     proto.SeedList,
		MinPeers:     app.P2P.MinPeers,
		MaxPeers:     app.P2P.MaxPeers,
		DialTimeout:  app.P2P.DialTimeout,
		ReadTimeout:  app.P2P.ReadTimeout,
		WriteTimeout: app.P2P.WriteTimeout,
		PingInterval: app.P2P.PingInterval,
		PingTimeout:  app.P2P.PingTimeout,
	}, chain, pool, log)
	n.server.OnExtensible(n.onExtensible)

	if validatorKeyHex != "" {
		key, err := keys.NewPrivateKeyFromHex(validatorKeyHex)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("node: decoding validator key: %w", err)
		}
		n.validator = key
		n.consensus = consensus.NewService(consensus.Config{
			Chain:     chain,
			Pool:      pool,
			Key:       key,
			Broadcast: n.broadcastPayload,
		})
	}

	chain.Subscribe(n.blockCh)
	return n, nil
}

// Start runs the mempool-pruning loop, the consensus service (if
// configured), and the P2P server, blocking until Shutdown is called.
func (n *Node) Start() error {
	go n.pruneLoop()
	if n.consensus != nil {
		if err := n.consensus.Start(); err != nil {
			return fmt.Errorf("node: starting consensus: %w", err)
		}
	}
	return n.server.Start()
}

// Shutdown stops the server and releases the store, unblocking Start.
func (n *Node) Shutdown() {
	close(n.stopCh)
	n.chain.Unsubscribe(n.blockCh)
	n.server.Shutdown()
	if err := n.store.Close(); err != nil {
		n.log.Warn("node: closing store", zap.Error(err))
	}
}

// pruneLoop removes stale transactions from the mempool on every
// persisted block, the mempool-side half of spec §4.4's "on success ...
// mempool is pruned" invariant (AddBlock itself only removes the
// transactions the new block actually carried).
func (n *Node) pruneLoop() {
	isValid := func(tx *transaction.Transaction) bool {
		return tx.ValidUntilBlock >= n.chain.BlockHeight() && !n.chain.HasTransaction(tx.Hash())
	}
	for {
		select {
		case <-n.stopCh:
			return
		case <-n.blockCh:
			n.pool.RemoveStale(isValid, n.chain)
		}
	}
}

// onExtensible dispatches an inbound consensus payload to the consensus
// service, ignoring anything that isn't this node's own dBFT traffic
// (e.g. a P2PSigExtensions chain's NotaryRequest Extensibles) or arriving
// while this node runs without a consensus service.
func (n *Node) onExtensible(ext *payload.Extensible) {
	if ext.Category != consensusCategory || n.consensus == nil {
		return
	}
	p, err := consensus.PayloadFromBytes(ext.Data)
	if err != nil {
		n.log.Warn("dbft: malformed payload", zap.Error(err))
		return
	}
	if err := n.consensus.OnPayload(p); err != nil {
		n.log.Debug("dbft: payload rejected", zap.Error(err))
	}
}

// broadcastPayload is consensus.Config.Broadcast: it witnesses p with
// this validator's own key (single-sig, distinct from the block's
// committee multisig witness finalize assembles), wraps it in a dBFT
// Extensible witnessed the same way, and diffuses it to every peer.
func (n *Node) broadcastPayload(p *consensus.Payload) {
	sig, err := n.validator.Sign(p.Hash().BytesLE())
	if err != nil {
		n.log.Error("dbft: failed to sign payload", zap.Error(err))
		return
	}
	verification := n.validator.PublicKey().VerificationScript()
	p.Witness = transaction.Witness{
		InvocationScript:   singleSigInvocationScript(sig),
		VerificationScript: verification,
	}

	data, err := p.Bytes()
	if err != nil {
		n.log.Error("dbft: failed to serialize payload", zap.Error(err))
		return
	}

	ext := &payload.Extensible{
		Category:        consensusCategory,
		ValidBlockStart: p.BlockIndex,
		ValidBlockEnd:   p.BlockIndex + 1,
		Sender:          util.Uint160(n.validator.PublicKey().ScriptHash()),
		Data:            data,
	}
	extSig, err := n.validator.Sign(ext.Hash().BytesLE())
	if err != nil {
		n.log.Error("dbft: failed to sign extensible wrapper", zap.Error(err))
		return
	}
	ext.Witness = transaction.Witness{
		InvocationScript:   singleSigInvocationScript(extSig),
		VerificationScript: verification,
	}

	n.server.BroadcastExtensible(ext)
}

// singleSigInvocationScript pushes sig, the one-signature case of the
// same PUSHDATA1-per-signature shape consensus's own multisig witnesses
// use.
func singleSigInvocationScript(sig []byte) []byte {
	return append([]byte{byte(opcode.PUSHDATA1), byte(len(sig))}, sig...)
}

// State is a snapshot of this node's view of the chain and its
// immediate peers, the "show_state" CLI-facing operation.
type State struct {
	Height       uint32
	CurrentBlock util.Uint256
	Network      uint32
	Peers        int
	PoolSize     int
}

// ShowState implements the "show_state" operation.
func (n *Node) ShowState() State {
	return State{
		Height:       n.chain.BlockHeight(),
		CurrentBlock: n.chain.CurrentBlockHash(),
		Network:      n.chain.Network(),
		Peers:        n.server.PeerCount(),
		PoolSize:     n.pool.Count(),
	}
}

// ShowPool implements the "show_pool" operation: every transaction
// currently verified and held in the mempool, fee-priority ordered.
func (n *Node) ShowPool() []*transaction.Transaction {
	return n.pool.GetVerifiedTransactions()
}

// ShowPeers implements the "show_peers" operation.
func (n *Node) ShowPeers() int {
	return n.server.PeerCount()
}

// ShowBlockByIndex implements the "show_block" operation for a block
// height.
func (n *Node) ShowBlockByIndex(index uint32) (*block.Block, error) {
	return n.chain.GetBlock(index)
}

// ShowBlockByHash implements the "show_block" operation for a block
// hash.
func (n *Node) ShowBlockByHash(h util.Uint256) (*block.Block, error) {
	return n.chain.GetBlockByHash(h)
}

// ShowTransaction implements the "show_transaction" operation.
func (n *Node) ShowTransaction(h util.Uint256) (*transaction.Transaction, uint32, error) {
	return n.chain.GetTransaction(h)
}

// Balance is an account's holdings of both native tokens, the
// "get_balance" operation's result shape.
type Balance struct {
	NEO *big.Int
	GAS *big.Int
}

// GetBalance implements the "get_balance" operation: it resolves addr
// (a Base58Check address in this chain's configured AddressVersion) to
// its NEO and GAS balances.
func (n *Node) GetBalance(addr string) (Balance, error) {
	u, err := address.StringToUint160(n.addressVersion, addr)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		NEO: n.chain.GetGoverningTokenBalance(u),
		GAS: n.chain.GetUtilityTokenBalance(u),
	}, nil
}

// IsConsensusNode reports whether this node was started with a
// validator key.
func (n *Node) IsConsensusNode() bool { return n.consensus != nil }
