package mempool

import (
	"github.com/n3ledger/n3core/pkg/core/transaction"
)

// EventType tags a mempool change notification.
type EventType byte

const (
	// TransactionAdded fires once a transaction is admitted to the pool.
	TransactionAdded EventType = iota
	// TransactionRemoved fires whenever a transaction leaves the pool,
	// whatever the reason (manual removal, capacity eviction, conflict
	// replacement, staleness, or block persistence).
	TransactionRemoved
)

// Event is one mempool change, fanned out to every subscriber channel.
type Event struct {
	Type   EventType
	Tx     *transaction.Transaction
	Reason string
}

const subChanCapacity = 168

// RunSubscriptions starts the fan-out goroutine. Panics if the pool was
// built with subscriptions disabled — mirroring the cost-aware design
// that lets most callers (e.g. a node not serving a notification
// websocket) skip the channel plumbing entirely.
func (mp *Pool) RunSubscriptions() {
	if !mp.subscriptionsEnabled {
		panic("mempool: subscriptions are not enabled")
	}
	mp.subscribersMtx.Lock()
	defer mp.subscribersMtx.Unlock()
	if mp.subRunning {
		return
	}
	mp.subRunning = true
	go mp.notificationDispatcher()
}

// StopSubscriptions stops the fan-out goroutine.
func (mp *Pool) StopSubscriptions() {
	if !mp.subscriptionsEnabled {
		panic("mempool: subscriptions are not enabled")
	}
	mp.subscribersMtx.Lock()
	running := mp.subRunning
	mp.subscribersMtx.Unlock()
	if !running {
		return
	}
	mp.stopCh <- struct{}{}
}

// SubscribeForTransactions registers ch to receive every future Event.
func (mp *Pool) SubscribeForTransactions(ch chan<- Event) {
	mp.subscribersMtx.Lock()
	defer mp.subscribersMtx.Unlock()
	mp.subscribers[ch] = struct{}{}
}

// UnsubscribeFromTransactions removes a previously registered channel.
func (mp *Pool) UnsubscribeFromTransactions(ch chan<- Event) {
	mp.subscribersMtx.Lock()
	defer mp.subscribersMtx.Unlock()
	delete(mp.subscribers, ch)
}

func (mp *Pool) notificationDispatcher() {
	for {
		select {
		case <-mp.stopCh:
			mp.subscribersMtx.Lock()
			mp.subRunning = false
			mp.subscribersMtx.Unlock()
			return
		case event := <-mp.events:
			mp.subscribersMtx.RLock()
			for ch := range mp.subscribers {
				ch <- event
			}
			mp.subscribersMtx.RUnlock()
		}
	}
}

// notify enqueues an event for dispatch, a no-op when subscriptions are
// disabled so the hot Add/Remove path never blocks on it.
func (mp *Pool) notify(t EventType, tx *transaction.Transaction, reason string) {
	if !mp.subscriptionsEnabled {
		return
	}
	mp.events <- Event{Type: t, Tx: tx, Reason: reason}
}
