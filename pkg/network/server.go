package network

import (
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/mempool"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/payload"
	"github.com/n3ledger/n3core/pkg/util"
)

// Ledger is the chain surface the Server needs: enough to answer
// inventory/header requests and admit a relayed block. It embeds
// mempool.Feer so the same Blockchain value passed in as chain can be
// handed straight to pool.Add without a second adapter.
type Ledger interface {
	mempool.Feer

	CurrentBlockHash() util.Uint256
	GetHeaderHash(index uint32) util.Uint256
	GetBlock(index uint32) (*block.Block, error)
	GetBlockByHash(h util.Uint256) (*block.Block, error)
	HasBlock(h util.Uint256) bool
	HasTransaction(h util.Uint256) bool
	AddBlock(b *block.Block) error
	Network() uint32
}

// Config configures a Server.
type Config struct {
	Net          uint32
	UserAgent    string
	ListenTCP    string
	SeedList     []string
	MinPeers     int
	MaxPeers     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	PingTimeout  time.Duration
}

var errAlreadyConnected = errors.New("network: already connected to this peer")

// Server owns the node's set of peer connections: it dials out to reach
// MinPeers, accepts inbound connections up to MaxPeers, runs the
// handshake, and diffuses inventory and consensus/notary Extensible
// payloads across the mesh (spec §4.7).
type Server struct {
	config Config
	chain  Ledger
	pool   *mempool.Pool
	log    *zap.Logger

	nonce uint32

	mtx         sync.RWMutex
	peers       map[*Peer]struct{}
	seenVersion map[uint32]struct{} // nonces of peers already connected, rejects self-connects

	onExtensible func(*payload.Extensible)

	quit     chan struct{}
	quitOnce sync.Once
}

// NewServer builds a Server around chain and pool, idle until Start.
func NewServer(cfg Config, chain Ledger, pool *mempool.Pool, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		config:      cfg,
		chain:       chain,
		pool:        pool,
		log:         log,
		nonce:       rand.Uint32(),
		peers:       make(map[*Peer]struct{}),
		seenVersion: make(map[uint32]struct{}),
		quit:        make(chan struct{}),
	}
}

// OnExtensible registers a callback invoked for every Extensible payload
// (consensus or notary) relayed by a peer, letting the consensus Service
// and notary actor subscribe without the Server importing either.
func (s *Server) OnExtensible(f func(*payload.Extensible)) {
	s.onExtensible = f
}

// Start begins listening (if ListenTCP is set) and dialing seeds,
// blocking until Shutdown is called.
func (s *Server) Start() error {
	var ln net.Listener
	if s.config.ListenTCP != "" {
		var err error
		ln, err = net.Listen("tcp", s.config.ListenTCP)
		if err != nil {
			return err
		}
		go s.acceptLoop(ln)
	}

	go s.maintainConnectionsLoop()
	go s.pingLoop()

	<-s.quit
	if ln != nil {
		_ = ln.Close()
	}
	return nil
}

// Shutdown stops the server and closes every peer connection.
func (s *Server) Shutdown() {
	s.quitOnce.Do(func() { close(s.quit) })
	s.mtx.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mtx.RUnlock()
	// disconnect unregisters under s.mtx, so it runs without the lock held.
	for _, p := range peers {
		p.disconnect(nil)
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn("accept failed", zap.Error(err))
				continue
			}
		}
		go s.handleConn(conn)
	}
}

// maintainConnectionsLoop dials from the seed list whenever connected <
// MinPeers (spec §4.7 "Connection management").
func (s *Server) maintainConnectionsLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			if s.PeerCount() >= s.config.MinPeers {
				continue
			}
			for _, addr := range s.seedList() {
				if s.PeerCount() >= s.config.MaxPeers {
					break
				}
				go s.dial(addr)
			}
		}
	}
}

func (s *Server) seedList() []string {
	addrs := make([]string, len(s.config.SeedList))
	copy(addrs, s.config.SeedList)
	rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
	return addrs
}

func (s *Server) dial(addr string) {
	timeout := s.config.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		s.log.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
		return
	}
	s.handleConn(conn)
}

// handleConn runs the handshake for a fresh connection (either accepted
// or dialed) and, on success, registers the peer and starts its read
// loop (spec §4.7 "Handshake").
func (s *Server) handleConn(conn net.Conn) {
	p := newPeer(conn, s)

	if s.PeerCount() >= s.config.MaxPeers {
		_ = conn.Close()
		return
	}

	ourVersion := payload.NewVersion(s.config.Net, uint32(time.Now().Unix()), s.nonce,
		s.config.UserAgent, s.chain.BlockHeight(), tcpPort(s.config.ListenTCP))
	if err := p.send(NewMessage(s.config.Net, CMDVersion, ourVersion)); err != nil {
		_ = conn.Close()
		return
	}

	r := readMessage(conn)
	if r == nil || r.Command != CMDVersion {
		_ = conn.Close()
		return
	}
	theirVersion := r.Payload.(*payload.Version)
	if err := s.acceptVersion(theirVersion); err != nil {
		_ = conn.Close()
		return
	}
	p.version = theirVersion

	if err := p.send(NewMessage(s.config.Net, CMDVerack, nil)); err != nil {
		_ = conn.Close()
		return
	}
	if r := readMessage(conn); r == nil || r.Command != CMDVerack {
		_ = conn.Close()
		return
	}

	if err := s.register(p); err != nil {
		_ = conn.Close()
		return
	}
	s.log.Info("peer connected", zap.String("addr", p.addr), zap.Uint32("nonce", theirVersion.Nonce))
	p.readLoop()
}

func readMessage(conn net.Conn) *Message {
	m := &Message{}
	br := io.NewBinReaderFromIO(conn)
	m.DecodeBinary(br)
	if br.Err != nil {
		return nil
	}
	return m
}

// acceptVersion enforces spec §4.7's handshake rejection rules: magic
// mismatch or a duplicate (self-connection) nonce.
func (s *Server) acceptVersion(v *payload.Version) error {
	if v.Network != s.config.Net {
		return errIncompatibleMagic
	}
	if v.Nonce == s.nonce {
		return errSelfConnection
	}
	s.mtx.RLock()
	_, dup := s.seenVersion[v.Nonce]
	s.mtx.RUnlock()
	if dup {
		return errAlreadyConnected
	}
	return nil
}

func (s *Server) register(p *Peer) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.peers) >= s.config.MaxPeers {
		return errors.New("network: max peers reached")
	}
	s.peers[p] = struct{}{}
	s.seenVersion[p.version.Nonce] = struct{}{}
	return nil
}

func (s *Server) unregister(p *Peer, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.peers, p)
	if p.version != nil {
		delete(s.seenVersion, p.version.Nonce)
	}
	if err != nil {
		s.log.Debug("peer disconnected", zap.String("addr", p.addr), zap.Error(err))
	}
}

// PeerCount returns the number of established peer connections.
func (s *Server) PeerCount() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.peers)
}

var (
	errIncompatibleMagic = errors.New("network: incompatible network magic")
	errSelfConnection    = errors.New("network: duplicate nonce (self-connection)")
)

func tcpPort(listenAddr string) uint16 {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return 0
	}
	var port int
	for _, c := range portStr {
		if c < '0' || c > '9' {
			return 0
		}
		port = port*10 + int(c-'0')
	}
	return uint16(port)
}

// handleMessage dispatches one decoded frame from p to the matching
// handler.
func (s *Server) handleMessage(p *Peer, msg *Message) {
	switch msg.Command {
	case CMDPing:
		s.onPing(p, msg.Payload.(*payload.Ping))
	case CMDPong:
		s.onPong(p, msg.Payload.(*payload.Ping))
	case CMDGetAddr:
		s.onGetAddr(p)
	case CMDAddr:
		// Addresses are informational only; dialing from them is left to
		// maintainConnectionsLoop's seed list for this node's bootstrap.
	case CMDInv:
		s.onInv(p, msg.Payload.(*payload.Inventory))
	case CMDGetData:
		s.onGetData(p, msg.Payload.(*payload.Inventory))
	case CMDTransaction:
		s.onTransaction(p, msg.Payload.(*transaction.Transaction))
	case CMDBlock:
		s.onBlock(p, msg.Payload.(*block.Block))
	case CMDGetBlockByIndex, CMDGetHeaders:
		s.onGetBlockByIndex(p, msg.Payload.(*payload.GetBlockByIndex), msg.Command)
	case CMDExtensible:
		s.onExtensiblePayload(p, msg.Payload.(*payload.Extensible))
	}
}

func (s *Server) onPing(p *Peer, ping *payload.Ping) {
	pong := payload.NewPing(s.chain.BlockHeight(), ping.Nonce, uint32(time.Now().Unix()))
	_ = p.send(NewMessage(s.config.Net, CMDPong, pong))
}

func (s *Server) onPong(p *Peer, pong *payload.Ping) {
	p.disarmPing()
}

func (s *Server) onGetAddr(p *Peer) {
	_ = p.send(NewMessage(s.config.Net, CMDAddr, &payload.Addr{}))
}

// onInv answers an announcement with GetData for every hash this node
// does not already have (spec §4.7 "Inventory diffusion").
func (s *Server) onInv(p *Peer, inv *payload.Inventory) {
	var want []util.Uint256
	for _, h := range inv.Hashes {
		p.markKnown(h)
		switch inv.Type {
		case payload.TXType:
			if !s.chain.HasTransaction(h) && !s.pool.ContainsKey(h) {
				want = append(want, h)
			}
		case payload.BlockType:
			if !s.chain.HasBlock(h) {
				want = append(want, h)
			}
		}
	}
	if len(want) > 0 {
		_ = p.send(NewMessage(s.config.Net, CMDGetData, payload.NewInventory(inv.Type, want)))
	}
}

func (s *Server) onGetData(p *Peer, inv *payload.Inventory) {
	var notFound []util.Uint256
	for _, h := range inv.Hashes {
		switch inv.Type {
		case payload.TXType:
			tx, ok := s.pool.TryGetValue(h)
			if !ok {
				notFound = append(notFound, h)
				continue
			}
			_ = p.send(NewMessage(s.config.Net, CMDTransaction, tx))
		case payload.BlockType:
			b, err := s.chain.GetBlockByHash(h)
			if err != nil {
				notFound = append(notFound, h)
				continue
			}
			_ = p.send(NewMessage(s.config.Net, CMDBlock, b))
		default:
			notFound = append(notFound, h)
		}
	}
	if len(notFound) > 0 {
		_ = p.send(NewMessage(s.config.Net, CMDNotFound, payload.NewInventory(inv.Type, notFound)))
	}
}

func (s *Server) onTransaction(p *Peer, tx *transaction.Transaction) {
	h := tx.Hash()
	p.markKnown(h)
	if err := s.pool.Add(tx, s.chain); err != nil {
		return
	}
	s.RelayInventory(payload.TXType, h)
}

func (s *Server) onBlock(p *Peer, b *block.Block) {
	h := b.Hash()
	p.markKnown(h)
	if err := s.chain.AddBlock(b); err != nil {
		return
	}
	s.RelayInventory(payload.BlockType, h)
}

// onGetBlockByIndex serves headers-first sync (spec §4.7): returns up to
// Count headers (or MaxHeadersAllowed, whichever is smaller) starting at
// IndexStart.
func (s *Server) onGetBlockByIndex(p *Peer, req *payload.GetBlockByIndex, cmd CommandType) {
	count := int(req.Count)
	if count <= 0 || count > payload.MaxHeadersAllowed {
		count = payload.MaxHeadersAllowed
	}
	top := s.chain.BlockHeight()
	var headers []*block.Header
	for i := 0; i < count; i++ {
		idx := req.IndexStart + uint32(i)
		if idx > top {
			break
		}
		b, err := s.chain.GetBlock(idx)
		if err != nil {
			break
		}
		headers = append(headers, &b.Header)
	}
	if len(headers) == 0 {
		return
	}
	_ = p.send(NewMessage(s.config.Net, CMDHeaders, &payload.Headers{Headers: headers}))
}

// onExtensiblePayload hands off a consensus/notary message to whatever
// subscriber registered via OnExtensible, then relays it onward to peers
// that have not already seen it.
func (s *Server) onExtensiblePayload(p *Peer, ext *payload.Extensible) {
	h := ext.Hash()
	p.markKnown(h)
	if s.onExtensible != nil {
		s.onExtensible(ext)
	}
	s.relayExtensible(ext, p)
}

// RelayInventory announces a locally-produced or newly-accepted object to
// every peer that has not already seen it.
func (s *Server) RelayInventory(t payload.InventoryType, h util.Uint256) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for p := range s.peers {
		if p.hasSeen(h) {
			continue
		}
		p.markKnown(h)
		_ = p.send(NewMessage(s.config.Net, CMDInv, payload.NewInventory(t, []util.Uint256{h})))
	}
}

// BroadcastExtensible diffuses a locally-produced Extensible payload
// (e.g. this node's own consensus vote) to every peer.
func (s *Server) BroadcastExtensible(ext *payload.Extensible) {
	s.relayExtensible(ext, nil)
}

func (s *Server) relayExtensible(ext *payload.Extensible, from *Peer) {
	h := ext.Hash()
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for p := range s.peers {
		if p == from || p.hasSeen(h) {
			continue
		}
		p.markKnown(h)
		_ = p.send(NewMessage(s.config.Net, CMDExtensible, ext))
	}
}

// pingLoop periodically pings every peer and disconnects one that has
// not answered within PingTimeout (spec §4.7 "Connection management").
func (s *Server) pingLoop() {
	interval := s.config.PingInterval
	if interval == 0 {
		interval = 30 * time.Second
	}
	timeout := s.config.PingTimeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.mtx.RLock()
			peers := make([]*Peer, 0, len(s.peers))
			for p := range s.peers {
				peers = append(peers, p)
			}
			s.mtx.RUnlock()

			for _, p := range peers {
				if p.pingOverdue(timeout) {
					p.disconnect(errors.New("network: ping timeout"))
					continue
				}
				nonce := rand.Uint32()
				p.armPing(nonce)
				_ = p.send(NewMessage(s.config.Net, CMDPing,
					payload.NewPing(s.chain.BlockHeight(), nonce, uint32(time.Now().Unix()))))
			}
		}
	}
}
