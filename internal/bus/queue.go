package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"main/internal/model/enum"
)

var (
	ErrQueueFull   = errors.New("message queue full")
	ErrQueueClosed = errors.New("message queue closed")
)

// Message is the unit passed through the in-memory transport.
type Message struct {
	Type     enum.MessageType
	Payload  []byte
	Received time.Time
}

// Queue is a bounded point-to-point message queue. Delivery within one
// queue is FIFO; the overall transport contract is at-least-once. The
// message channel itself is never closed, so publishing concurrently with
// Close cannot panic.
type Queue struct {
	ch   chan Message
	done chan struct{}
	once sync.Once
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// TryPublish enqueues a message without blocking.
func (q *Queue) TryPublish(m Message) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish enqueues a message, blocking until accepted, the queue closes or
// the context ends.
func (q *Queue) Publish(ctx context.Context, m Message) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- m:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue from accepting new messages. Messages already
// enqueued remain consumable.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Run consumes messages until the context is done or the queue is closed.
// On close it drains whatever is already buffered before returning.
func (q *Queue) Run(ctx context.Context, handler func(Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-q.ch:
			handler(m)
		case <-q.done:
			for {
				select {
				case m := <-q.ch:
					handler(m)
				default:
					return
				}
			}
		}
	}
}
