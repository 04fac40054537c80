package obs

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
)

const (
	scopeBits   = 16
	counterBits = 64 - scopeBits
	counterMask = 1<<counterBits - 1
)

// TraceGenerator hands out trace IDs for one market. The high 16 bits carry
// a tag derived from the market id so traces of different markets sharing a
// topic or table stay apart; the low 48 bits count up.
type TraceGenerator struct {
	scope uint64
	next  uint64
}

// NewTraceGenerator returns a generator for the market. A zero seed starts
// the counter from the wall clock.
func NewTraceGenerator(marketID string, seed uint64) *TraceGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return &TraceGenerator{
		scope: uint64(TraceScope(marketID)) << counterBits,
		next:  seed & counterMask,
	}
}

// Next returns the next trace ID.
func (g *TraceGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return g.scope | atomic.AddUint64(&g.next, 1)&counterMask
}

// TraceScope is the market tag NewTraceGenerator puts in the high bits.
func TraceScope(marketID string) uint16 {
	sum := blake3.Sum256([]byte(marketID))
	return binary.BigEndian.Uint16(sum[:2])
}

// ScopeOf extracts the market tag from a trace ID.
func ScopeOf(traceID uint64) uint16 {
	return uint16(traceID >> counterBits)
}
