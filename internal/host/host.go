// Package host runs one market behind a lock. Every accepted command is
// journaled, fanned out to the event sinks and periodically snapshotted,
// so the market can be rebuilt after a restart.
package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"clob/internal/bus"
	"clob/internal/codec"
	"clob/internal/market"
	"clob/internal/obs"
	"clob/internal/recorder"
	"clob/internal/schema"
	"clob/internal/state"
	"clob/pkg/exception"
)

const defaultBusCapacity = 4096

// Options wires the infrastructure around the market. Everything is
// optional; a zero Options hosts a purely in-memory market.
type Options struct {
	MarketID string
	// Journal enables the command journal.
	Journal *recorder.Config
	// Recover rebuilds the market from Snapshots and Journal instead of
	// deploying params.
	Recover bool
	// Snapshots receives a snapshot every SnapshotEvery commands and on
	// Close.
	Snapshots     state.Store
	SnapshotEvery int
	Sinks         []bus.Sink
	BusCapacity   int
	Metrics       *obs.Metrics
	// Now is the wall clock; the market sees it as TAI64 seconds.
	Now func() time.Time
}

// Usecase serializes access to one market.
type Usecase struct {
	mu     sync.Mutex
	id     string
	market *market.Market
	clock  *market.ManualClock
	now    func() time.Time
	seq    uint64
	last   uint64
	failed error
	closed bool

	journal       *recorder.Writer
	snapshots     state.Store
	snapshotEvery int
	sinceSnapshot int

	queue   *bus.Queue
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *obs.Metrics
	traces  *obs.TraceGenerator
}

// Deploy creates the market, or recovers it when opts.Recover is set, and
// starts the journal and sink goroutines.
func Deploy(params market.Params, opts Options) (*Usecase, error) {
	if opts.MarketID == "" {
		opts.MarketID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BusCapacity <= 0 {
		opts.BusCapacity = defaultBusCapacity
	}

	u := &Usecase{
		id:            opts.MarketID,
		now:           opts.Now,
		snapshots:     opts.Snapshots,
		snapshotEvery: opts.SnapshotEvery,
		metrics:       opts.Metrics,
		traces:        obs.NewTraceGenerator(opts.MarketID, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	if err := u.load(ctx, params, opts); err != nil {
		cancel()
		return nil, err
	}

	if opts.Journal != nil {
		w, err := recorder.NewWriter(*opts.Journal)
		if err != nil {
			cancel()
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			cancel()
			return nil, err
		}
		u.journal = w
	}

	if len(opts.Sinks) > 0 {
		u.queue = bus.NewQueue(opts.BusCapacity)
		d := bus.NewDispatcher(u.queue, opts.Sinks...).OnError(func(string, error) {
			u.metrics.IncSinkError()
		})
		u.wg.Add(1)
		go func() {
			defer u.wg.Done()
			d.Run(ctx)
		}()
	}

	logs.Infof("market %s ready, base: %s, quote: %s, seq: %d", u.id, u.market.Base().ID, u.market.Quote().ID, u.seq)
	return u, nil
}

func (u *Usecase) load(ctx context.Context, params market.Params, opts Options) error {
	if !opts.Recover {
		u.clock = market.NewManualClock(market.TAI64(u.now()))
		m, err := market.New(params, market.WithClock(u.clock.Now))
		if err != nil {
			return err
		}
		u.market = m
		return nil
	}
	if opts.Journal == nil {
		return errors.New("recover needs a journal")
	}

	res, err := state.Recover(ctx, state.RecoverConfig{
		JournalDir:       opts.Journal.Dir,
		FilePrefix:       opts.Journal.FilePrefix,
		Snapshots:        opts.Snapshots,
		TolerateTornTail: true,
	}, params)
	if err != nil {
		return errors.Wrap(err, "recover market")
	}
	u.market = res.Market
	u.clock = res.Clock
	u.seq = res.LastSeq
	u.last = res.LastEventTime
	logs.Infof("market %s recovered, seq: %d, replayed: %d, from snapshot: %t", u.id, res.LastSeq, res.Replayed, res.FromSnapshot)
	return nil
}

// ID returns the market id.
func (u *Usecase) ID() string {
	return u.id
}

// As returns a handle issuing commands on behalf of id.
func (u *Usecase) As(id schema.Identity) Caller {
	return Caller{u: u, id: id}
}

// Close stores a final snapshot, stops the journal and drains the sinks.
func (u *Usecase) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true

	var errs []error
	if u.snapshots != nil && u.failed == nil && u.sinceSnapshot > 0 {
		if err := u.snapshot(); err != nil {
			errs = append(errs, err)
		}
	}
	if u.journal != nil {
		if err := u.journal.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close journal"))
		}
	}
	u.mu.Unlock()

	if u.queue != nil {
		u.queue.Close()
	}
	u.wg.Wait()
	u.cancel()

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// apply runs one command. The market clock is set to the wall clock, never
// moving backwards, and the same time is journaled so replay reproduces it.
// A command the market rejects leaves no journal record. ctx is only
// honored before the command is applied; once the market has changed the
// record is journaled regardless of the caller.
func (u *Usecase) apply(ctx context.Context, caller schema.Identity, cmd codec.Command) ([]schema.Event, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, exception.ErrHostClosed
	}
	if u.failed != nil {
		return nil, errors.Wrap(u.failed, "market halted")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recv := u.now()
	ts := max(market.TAI64(recv), u.last)
	u.clock.Set(ts)

	start := time.Now()
	events, err := cmd.Apply(u.market)
	if err != nil {
		u.metrics.IncReject(cmd.CommandType())
		return nil, err
	}
	u.metrics.ObserveCommand(cmd.CommandType(), time.Since(start))

	u.seq++
	u.last = ts
	header := schema.NewHeader(cmd.CommandType(), u.seq, ts, recv.UnixNano())
	header.TraceID = u.traces.Next()

	payload, err := codec.Encode(cmd)
	if err != nil {
		return nil, u.halt(err)
	}
	if u.journal != nil {
		start = time.Now()
		if err := u.journal.Append(context.WithoutCancel(ctx), header, payload); err != nil {
			return nil, u.halt(err)
		}
		u.metrics.ObserveJournal(time.Since(start))
	}

	u.publish(bus.Event{Header: header, Caller: caller, Events: events, Payload: payload})

	u.sinceSnapshot++
	if u.snapshots != nil && u.snapshotEvery > 0 && u.sinceSnapshot >= u.snapshotEvery {
		if err := u.snapshot(); err != nil {
			logs.Errorf("market %s snapshot at seq %d failed, err: %+v", u.id, u.seq, err)
		}
	}
	return events, nil
}

// halt stops the market after a command was applied but could not be made
// durable. Memory is ahead of the journal from here on.
func (u *Usecase) halt(err error) error {
	u.failed = errors.Wrapf(err, "persist command, seq: %d", u.seq)
	logs.Errorf("market %s halted, err: %+v", u.id, u.failed)
	return u.failed
}

func (u *Usecase) publish(e bus.Event) {
	if u.queue == nil {
		return
	}
	switch err := u.queue.TryPublish(e); err {
	case nil:
	case bus.ErrQueueFull:
		u.metrics.IncQueueDrop()
		logs.Errorf("market %s event queue full, dropped seq %d", u.id, e.Header.Seq)
	default:
		u.metrics.IncQueueClosed()
	}
}

func (u *Usecase) snapshot() error {
	if err := u.snapshots.SaveSnapshot(state.Capture(u.market, u.seq, u.last)); err != nil {
		return errors.Wrapf(err, "save snapshot, seq: %d", u.seq)
	}
	u.sinceSnapshot = 0
	u.metrics.IncSnapshot()
	return nil
}
