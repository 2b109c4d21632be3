package runtime

import (
	"chat-relay/domain"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus broadcasts room-visible messages to every subscribed session.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. Publish never blocks on a slow subscriber: a
// full subscriber buffer counts a drop on that subscription instead, and
// the subscriber observes the gap through Lagged.
//
// Bus is safe for concurrent use by multiple goroutines.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	log    *slog.Logger
}

// Subscription is one session's independent cursor on the bus, starting
// at the moment Subscribe was called. It never replays history.
type Subscription struct {
	C       chan domain.Message
	dropped atomic.Int64
	bus     *Bus
}

func NewBus(log *slog.Logger, buffer int) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new consumer with its own bounded buffer.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		C:   make(chan domain.Message, b.buffer),
		bus: b,
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish fans the message out to every current subscriber without
// blocking. A subscriber whose buffer is full loses the message and
// accumulates lag instead.
func (b *Bus) Publish(m domain.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.C <- m:
		default:
			sub.dropped.Add(1)
			b.log.Debug("Subscriber lagging, message dropped", "room", m.Room, "kind", m.Kind)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Lagged returns the number of messages lost since the last call and
// resets the counter. The write loop turns it into a gap notice.
func (s *Subscription) Lagged() int64 {
	return s.dropped.Swap(0)
}

// Cancel removes the subscription from the bus. Messages already
// buffered remain readable from C.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}
