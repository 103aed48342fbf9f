// Package systime provides millisecond tick sources for the Arke engine.
package systime

import (
	"sync/atomic"
	"time"

	"github.com/notnil/arke"
)

// Monotonic counts milliseconds since it was created, from the runtime's
// monotonic clock. The value wraps at 16 bits like a hardware counter.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a clock at tick 0.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (m *Monotonic) Now() arke.Tick {
	return arke.Tick(time.Since(m.start) / time.Millisecond)
}

// Manual is advanced explicitly, for simulations and tests. It can be
// advanced from one goroutine while another reads it.
type Manual struct {
	ticks atomic.Uint32
}

func (m *Manual) Now() arke.Tick { return arke.Tick(m.ticks.Load()) }

// Advance moves the clock forward by n ticks.
func (m *Manual) Advance(n uint16) { m.ticks.Add(uint32(n)) }

// Set jumps to t.
func (m *Manual) Set(t arke.Tick) { m.ticks.Store(uint32(t)) }

// Ticks converts a duration to ticks, saturating at the counter width.
func Ticks(d time.Duration) arke.Tick {
	ms := d / time.Millisecond
	if ms < 0 {
		return 0
	}
	if ms > 0xffff {
		return 0xffff
	}
	return arke.Tick(ms)
}
