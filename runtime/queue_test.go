package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(16)

	// Given three pushes
	for i := 0; i < 3; i++ {
		req.NoError(queue.Push(domain.NewChat("alice", fmt.Sprintf("m%d", i), "general")))
	}
	req.Equal(3, queue.Len())

	// Then pops preserve enqueue order
	for i := 0; i < 3; i++ {
		m, ok, err := queue.TryPop()
		req.NoError(err)
		req.True(ok)
		req.Equal(fmt.Sprintf("m%d", i), m.Content)
	}

	// And an empty open queue yields nothing, without error
	_, ok, err := queue.TryPop()
	req.NoError(err)
	req.False(ok)
}

func TestQueue_ReadySignal(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(16)

	req.NoError(queue.Push(domain.NewChat("alice", "hello", "general")))

	select {
	case <-queue.Ready():
	default:
		req.Fail("Push should signal readiness")
	}
}

func TestQueue_Overflow_ClosesTheQueue(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(3)

	// Given the queue is at its high-water mark
	for i := 0; i < 3; i++ {
		req.NoError(queue.Push(domain.NewChat("alice", "x", "general")))
	}

	// When one more message arrives
	err := queue.Push(domain.NewChat("alice", "overflow", "general"))

	// Then the overflow policy closes the queue
	req.ErrorIs(err, errors.ErrQueueOverflow)
	req.ErrorIs(queue.Push(domain.NewChat("alice", "late", "general")), errors.ErrQueueClosed)

	select {
	case <-queue.Done():
	default:
		req.Fail("overflow should close Done")
	}
}

func TestQueue_Close_DrainsBeforeReportingClosed(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(16)
	req.NoError(queue.Push(domain.NewError("You have been kicked.")))

	// When the queue is closed with a pending kick notice
	queue.Close()

	// Then the notice is still delivered before the closed error
	m, ok, err := queue.TryPop()
	req.NoError(err)
	req.True(ok)
	req.Equal("You have been kicked.", m.Content)

	_, ok, err = queue.TryPop()
	req.False(ok)
	req.ErrorIs(err, errors.ErrQueueClosed)
}

func TestQueue_Close_Idempotent(t *testing.T) {
	queue := NewQueue(16)
	queue.Close()
	queue.Close()
}

func TestQueue_NoLimit(t *testing.T) {
	req := require.New(t)
	queue := NewQueue(0)

	for i := 0; i < 10000; i++ {
		req.NoError(queue.Push(domain.NewChat("alice", "x", "general")))
	}
	req.Equal(10000, queue.Len())
}
