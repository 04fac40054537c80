// Package chaos perturbs event delivery to sinks: drops, duplicates,
// reorders and delays. It is used to drill that downstream consumers are
// idempotent on the event sequence.
package chaos

import (
	"context"
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"clob/internal/bus"
)

// Config controls chaos injection behavior.
type Config struct {
	Seed          int64         `yaml:"seed"`
	DropRate      float64       `yaml:"drop_rate"`
	DuplicateRate float64       `yaml:"duplicate_rate"`
	ReorderWindow int           `yaml:"reorder_window"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return errors.New("invalid chaos config: drop_rate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return errors.New("invalid chaos config: duplicate_rate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return errors.New("invalid chaos config: reorder_window must be >= 1")
	}
	if c.MaxDelay < 0 {
		return errors.New("invalid chaos config: max_delay must be >= 0")
	}
	return nil
}

// Engine applies chaos rules to events. It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []bus.Event
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Process applies chaos to a single event and returns the events to
// deliver now.
func (e *Engine) Process(ev bus.Event) []bus.Event {
	if e == nil {
		return []bus.Event{ev}
	}
	if e.shouldDrop() {
		return nil
	}
	ev = e.applyDelay(ev)
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(ev)
	}
	e.pending = append(e.pending, ev)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.applyDuplicate(e.take())
}

// Flush returns any buffered events after processing completes.
func (e *Engine) Flush() []bus.Event {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]bus.Event, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.applyDuplicate(e.take())...)
	}
	return out
}

func (e *Engine) take() bus.Event {
	idx := e.rng.Intn(len(e.pending))
	ev := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return ev
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(ev bus.Event) []bus.Event {
	out := []bus.Event{ev}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, ev)
	}
	return out
}

// applyDelay shifts the receive time; delivery itself is not slowed down.
func (e *Engine) applyDelay(ev bus.Event) bus.Event {
	if e.cfg.MaxDelay <= 0 {
		return ev
	}
	if delay := e.rng.Int63n(e.cfg.MaxDelay.Nanoseconds() + 1); delay > 0 {
		ev.Header.RecvTime += delay
	}
	return ev
}

// Sink wraps another sink and feeds it through an Engine.
type Sink struct {
	next   bus.Sink
	engine *Engine
}

// Wrap puts chaos in front of next.
func Wrap(next bus.Sink, cfg Config) (*Sink, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{next: next, engine: engine}, nil
}

func (s *Sink) Name() string { return "chaos/" + s.next.Name() }

func (s *Sink) Consume(ctx context.Context, e bus.Event) error {
	return s.deliver(ctx, s.engine.Process(e))
}

// Flush delivers events still held back for reordering.
func (s *Sink) Flush(ctx context.Context) error {
	return s.deliver(ctx, s.engine.Flush())
}

func (s *Sink) deliver(ctx context.Context, events []bus.Event) error {
	for _, ev := range events {
		if err := s.next.Consume(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
