package obs

import (
	"sync/atomic"
	"time"

	"clob/internal/schema"
)

const maxEventType = int(schema.MaxEventType)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	commandCounts [maxEventType + 1]uint64
	rejectCounts  [maxEventType + 1]uint64
	queueDrops    uint64
	queueClosed   uint64
	sinkErrors    uint64
	snapshots     uint64

	applyLatency   LatencyStats
	journalLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	CommandCounts  map[schema.EventType]uint64
	RejectCounts   map[schema.EventType]uint64
	QueueDrops     uint64
	QueueClosed    uint64
	SinkErrors     uint64
	Snapshots      uint64
	ApplyLatency   LatencySnapshot
	JournalLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveCommand counts an applied command and how long the market took.
func (m *Metrics) ObserveCommand(t schema.EventType, d time.Duration) {
	if m == nil {
		return
	}
	if idx := int(t); idx < len(m.commandCounts) {
		atomic.AddUint64(&m.commandCounts[idx], 1)
	}
	m.applyLatency.Observe(d)
}

// IncReject counts a command the market refused.
func (m *Metrics) IncReject(t schema.EventType) {
	if m == nil {
		return
	}
	if idx := int(t); idx < len(m.rejectCounts) {
		atomic.AddUint64(&m.rejectCounts[idx], 1)
	}
}

// ObserveJournal measures a journal append.
func (m *Metrics) ObserveJournal(d time.Duration) {
	if m == nil {
		return
	}
	m.journalLatency.Observe(d)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncSinkError records a failed sink delivery.
func (m *Metrics) IncSinkError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sinkErrors, 1)
}

// IncSnapshot records a stored snapshot.
func (m *Metrics) IncSnapshot() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.snapshots, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		CommandCounts:  counts(m.commandCounts[:]),
		RejectCounts:   counts(m.rejectCounts[:]),
		QueueDrops:     atomic.LoadUint64(&m.queueDrops),
		QueueClosed:    atomic.LoadUint64(&m.queueClosed),
		SinkErrors:     atomic.LoadUint64(&m.sinkErrors),
		Snapshots:      atomic.LoadUint64(&m.snapshots),
		ApplyLatency:   m.applyLatency.Snapshot(),
		JournalLatency: m.journalLatency.Snapshot(),
	}
}

func counts(src []uint64) map[schema.EventType]uint64 {
	out := make(map[schema.EventType]uint64)
	for i := range src {
		if v := atomic.LoadUint64(&src[i]); v > 0 {
			out[schema.EventType(i)] = v
		}
	}
	return out
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
