// Package runtime handles session routing state: the connection registry,
// the broadcast bus, per-client outbound queues, and room history.
// It propagates messages without containing business logic or domain rules.
package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
)

// Queue is the private outbound FIFO owned by a single session. It carries
// messages not suitable for the shared bus: history replay, private messages,
// and command errors. Push never blocks the producer; the session's write
// loop is the sole consumer and preserves enqueue order.
//
// The queue closes itself when it grows past its high-water mark. A queue
// that deep means the peer stopped draining its socket, and the overflow
// policy is to disconnect that client rather than hold its backlog forever.
type Queue struct {
	mu     sync.Mutex
	items  []domain.Message
	limit  int
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

// NewQueue creates a queue that tolerates up to limit pending messages.
// A limit of zero or less disables the overflow policy.
func NewQueue(limit int) *Queue {
	return &Queue{
		limit: limit,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends a message. It returns ErrQueueClosed if the session is gone
// and ErrQueueOverflow if this push crossed the high-water mark, in which
// case the queue is now closed.
func (q *Queue) Push(m domain.Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.ErrQueueClosed
	}
	q.items = append(q.items, m)
	overflow := q.limit > 0 && len(q.items) > q.limit
	if overflow {
		q.closeLocked()
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}

	if overflow {
		return errors.ErrQueueOverflow
	}
	return nil
}

// TryPop removes the oldest pending message. ok reports whether a message
// was returned; ErrQueueClosed is returned once the queue is closed and
// fully drained.
func (q *Queue) TryPop() (m domain.Message, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) > 0 {
		m = q.items[0]
		q.items = q.items[1:]
		return m, true, nil
	}
	if q.closed {
		return domain.Message{}, false, errors.ErrQueueClosed
	}
	return domain.Message{}, false, nil
}

// Ready signals that a message may be pending. Spurious wake-ups are
// possible; consumers loop on TryPop.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Done is closed when the queue is closed. Pending messages remain
// poppable so a final notification (e.g. a kick notice) still reaches
// the write loop.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close marks the queue terminated. Closing twice is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

func (q *Queue) closeLocked() {
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Len reports the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
