package bus

import (
	"context"
	"sync"

	"github.com/yanun0323/errors"

	"clob/internal/schema"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Event is the unit passed through the in-memory bus: one applied command
// and everything it emitted.
type Event struct {
	Header  schema.EventHeader
	Caller  schema.Identity
	Events  []schema.Event
	Payload []byte // encoded command, as journaled
}

// Queue is a bounded, non-blocking event queue.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new events. Queued events are still
// delivered by Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed and
// drained.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
