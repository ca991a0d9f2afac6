package network

import (
	"bufio"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/payload"
	"github.com/n3ledger/n3core/pkg/util"
)

// knownHashesCacheSize bounds the per-peer LRU of inventory hashes a peer
// has already announced or been sent, avoiding re-advertising the same
// block/transaction to a peer that already has it (spec §4.7 "Inventory
// diffusion": "per-peer LRU").
const knownHashesCacheSize = 20_000

// Peer is one established, post-handshake P2P connection.
type Peer struct {
	conn net.Conn
	s    *Server

	writeMtx sync.Mutex

	version *payload.Version
	addr    string

	known *lru.Cache

	pingMtx       sync.Mutex
	lastPingSent  time.Time
	lastPingNonce uint32
	pingInFlight  bool

	done chan struct{}
	once sync.Once
}

func newPeer(conn net.Conn, s *Server) *Peer {
	known, _ := lru.New(knownHashesCacheSize)
	return &Peer{
		conn:  conn,
		s:     s,
		addr:  conn.RemoteAddr().String(),
		known: known,
		done:  make(chan struct{}),
	}
}

// send writes one message frame to the peer. Safe for concurrent callers.
func (p *Peer) send(msg *Message) error {
	p.writeMtx.Lock()
	defer p.writeMtx.Unlock()

	w := io.NewBufBinWriter()
	msg.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	if dl := p.s.config.WriteTimeout; dl > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(dl))
	}
	_, err := p.conn.Write(w.Bytes())
	return err
}

// readLoop decodes frames off the wire until the connection fails or the
// peer is disconnected, dispatching each to the Server.
func (p *Peer) readLoop() {
	defer p.disconnect(nil)

	br := bufio.NewReaderSize(p.conn, 1<<20)
	for {
		if dl := p.s.config.ReadTimeout; dl > 0 {
			_ = p.conn.SetReadDeadline(time.Now().Add(dl))
		}
		r := io.NewBinReaderFromIO(br)
		msg := &Message{}
		msg.DecodeBinary(r)
		if r.Err != nil {
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
		p.s.handleMessage(p, msg)
	}
}

// armPing records that a Ping was just sent with the given nonce,
// arming the timeout pingLoop checks on its next tick.
func (p *Peer) armPing(nonce uint32) {
	p.pingMtx.Lock()
	defer p.pingMtx.Unlock()
	p.lastPingNonce = nonce
	p.lastPingSent = time.Now()
	p.pingInFlight = true
}

// disarmPing clears the in-flight flag once a matching Pong arrives.
func (p *Peer) disarmPing() {
	p.pingMtx.Lock()
	defer p.pingMtx.Unlock()
	p.pingInFlight = false
}

// pingOverdue reports whether a Ping was sent more than timeout ago and
// no Pong has disarmed it yet.
func (p *Peer) pingOverdue(timeout time.Duration) bool {
	p.pingMtx.Lock()
	defer p.pingMtx.Unlock()
	return p.pingInFlight && time.Since(p.lastPingSent) > timeout
}

// markKnown records that this peer already has the given hash, so a
// future broadcast skips re-announcing it.
func (p *Peer) markKnown(h util.Uint256) {
	p.known.Add(h, struct{}{})
}

// hasSeen reports whether markKnown has already been called for h.
func (p *Peer) hasSeen(h util.Uint256) bool {
	return p.known.Contains(h)
}

// disconnect closes the underlying connection once and unregisters the
// peer from its Server. Safe to call multiple times or concurrently.
func (p *Peer) disconnect(err error) {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
		p.s.unregister(p, err)
	})
}
