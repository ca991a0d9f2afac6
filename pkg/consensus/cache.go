package consensus

import (
	"container/list"
	"sync"

	"github.com/n3ledger/n3core/pkg/util"
)

// relayCache is a FIFO payload cache: the last cacheMaxCapacity consensus
// payloads seen, so a GetPayload request for one already relayed doesn't
// need to wait for it to come back around.
type relayCache struct {
	mu sync.RWMutex

	maxCap int
	elems  map[util.Uint256]*list.Element
	queue  *list.List
}

const cacheMaxCapacity = 100

func newFIFOCache(capacity int) *relayCache {
	return &relayCache{
		maxCap: capacity,
		elems:  make(map[util.Uint256]*list.Element),
		queue:  list.New(),
	}
}

// Add inserts p, evicting the oldest entry once at capacity. A duplicate
// (same hash) is a no-op.
func (c *relayCache) Add(p *Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := p.Hash()
	if c.elems[h] != nil {
		return
	}
	if c.queue.Len() >= c.maxCap {
		front := c.queue.Front()
		c.queue.Remove(front)
		delete(c.elems, front.Value.(*Payload).Hash())
	}
	c.elems[h] = c.queue.PushBack(p)
}

// Get returns the cached payload with hash h, or nil.
func (c *relayCache) Get(h util.Uint256) *Payload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.elems[h]
	if !ok {
		return nil
	}
	return e.Value.(*Payload)
}
