package eventbus

import (
	"sync"
	"sync/atomic"
)

type subscriberHolder struct {
	id     string
	policy DropPolicy
	stats  *SubscriberStats

	// For DropNew policy
	ch chan<- Event

	// For DropOld policy
	latest *latestEventHolder
}

type bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriberHolder
	published   uint64
	closed      bool
}

// New creates a new event bus
func New() Bus {
	return &bus{
		subscribers: make(map[string]*subscriberHolder),
	}
}

// Subscribe registers a channel with DropNew policy
func (b *bus) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriberHolder{
		id:     id,
		policy: DropNew,
		stats:  &SubscriberStats{},
		ch:     ch,
	}
	return nil
}

// SubscribeLatest registers a subscriber with DropOld policy
func (b *bus) SubscribeLatest(id string) (Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	holder := &subscriberHolder{
		id:     id,
		policy: DropOld,
		stats:  &SubscriberStats{},
		latest: newLatestEventHolder(),
	}
	b.subscribers[id] = holder
	return holder.latest, nil
}

// Publish stamps ev with the next sequence number and distributes it.
// Never blocks.
func (b *bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	ev.Sequence = atomic.AddUint64(&b.published, 1)

	for _, holder := range b.subscribers {
		switch holder.policy {
		case DropNew:
			select {
			case holder.ch <- ev:
				atomic.AddUint64(&holder.stats.Sent, 1)
			default:
				atomic.AddUint64(&holder.stats.Dropped, 1)
			}

		case DropOld:
			if holder.latest.set(ev) {
				atomic.AddUint64(&holder.stats.Dropped, 1)
			}
			atomic.AddUint64(&holder.stats.Sent, 1)
		}
	}
}

// Unsubscribe removes a subscriber
func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	if holder.policy == DropOld {
		holder.latest.Close()
	}
	delete(b.subscribers, id)
	return nil
}

// Stats returns statistics for a subscriber
func (b *bus) Stats(id string) (*SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return nil, ErrSubscriberNotFound
	}
	return &SubscriberStats{
		Sent:    atomic.LoadUint64(&holder.stats.Sent),
		Dropped: atomic.LoadUint64(&holder.stats.Dropped),
	}, nil
}

// Published returns the number of events published so far
func (b *bus) Published() uint64 {
	return atomic.LoadUint64(&b.published)
}

// Close shuts down the bus and all subscribers
func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, holder := range b.subscribers {
		if holder.policy == DropOld {
			holder.latest.Close()
		}
	}
	b.subscribers = nil
}

// latestEventHolder implements Receiver for DropOld policy
type latestEventHolder struct {
	mu     sync.Mutex
	cond   *sync.Cond
	event  Event
	has    bool
	unread bool
	closed bool
}

func newLatestEventHolder() *latestEventHolder {
	h := &latestEventHolder{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// set stores ev and reports whether an unread event was overwritten.
func (h *latestEventHolder) set(ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	overwrote := h.unread
	h.event, h.has, h.unread = ev, true, true
	h.cond.Broadcast()
	return overwrote
}

// Receive blocks until an unread event is available. Returns false once the
// receiver is closed.
func (h *latestEventHolder) Receive() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for !h.unread && !h.closed {
		h.cond.Wait()
	}
	if h.closed {
		return Event{}, false
	}
	h.unread = false
	return h.event, true
}

// TryReceive returns the latest event without blocking, read or not.
func (h *latestEventHolder) TryReceive() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.has {
		return Event{}, false
	}
	h.unread = false
	return h.event, true
}

// Close shuts down the receiver
func (h *latestEventHolder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.cond.Broadcast()
}
