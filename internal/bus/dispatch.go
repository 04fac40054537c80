package bus

import (
	"context"

	"github.com/yanun0323/logs"
)

// Sink consumes published events. Consume is called from the dispatcher
// goroutine only, in sequence order.
type Sink interface {
	Name() string
	Consume(ctx context.Context, e Event) error
}

// Dispatcher drains a queue into a fixed set of sinks. A failing sink is
// reported and skipped for that event; the others still receive it.
type Dispatcher struct {
	queue   *Queue
	sinks   []Sink
	onError func(sink string, err error)
}

// NewDispatcher binds sinks to a queue.
func NewDispatcher(queue *Queue, sinks ...Sink) *Dispatcher {
	return &Dispatcher{queue: queue, sinks: sinks}
}

// OnError installs a callback for sink failures.
func (d *Dispatcher) OnError(fn func(sink string, err error)) *Dispatcher {
	d.onError = fn
	return d
}

// Run blocks until the queue is closed and drained or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.queue.Run(ctx, func(e Event) {
		d.deliver(ctx, e)
	})
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		if err := s.Consume(ctx, e); err != nil {
			logs.Errorf("sink %s failed on seq %d, err: %+v", s.Name(), e.Header.Seq, err)
			if d.onError != nil {
				d.onError(s.Name(), err)
			}
		}
	}
}
