package market

import (
	"sync/atomic"
	"time"
)

// tai64Base is the TAI64 label of the unix epoch, including the 10 second
// TAI-UTC offset TAI64 labels carry.
const tai64Base = uint64(1)<<62 + 10

// Clock returns the current time as TAI64 seconds.
type Clock func() uint64

// TAI64 converts a wall clock time to TAI64 seconds.
func TAI64(t time.Time) uint64 {
	return tai64Base + uint64(t.Unix())
}

// FromTAI64 converts TAI64 seconds back to a wall clock time.
func FromTAI64(v uint64) time.Time {
	return time.Unix(int64(v-tai64Base), 0).UTC()
}

// SystemClock reads the wall clock.
func SystemClock() uint64 {
	return TAI64(time.Now())
}

// FixedClock always returns v.
func FixedClock(v uint64) Clock {
	return func() uint64 { return v }
}

// ManualClock is advanced explicitly. Hosts set it before each command so
// that a replayed command sees the same time it saw when first applied.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock starts a clock at v.
func NewManualClock(v uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(v)
	return c
}

// Set moves the clock to v.
func (c *ManualClock) Set(v uint64) {
	c.now.Store(v)
}

// Now returns the current value.
func (c *ManualClock) Now() uint64 {
	return c.now.Load()
}
