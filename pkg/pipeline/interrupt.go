package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/itohio/sensorpipe/pkg/event"
)

// Flag is the polled interrupt signal: set from interrupt context, consumed
// by the logic task. Any number of sets before a Take collapse into one.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set() { f.v.Store(true) }

// Take clears the flag and reports whether it was set.
func (f *Flag) Take() bool { return f.v.Swap(false) }

func (f *Flag) Pending() bool { return f.v.Load() }

// buttonISR is the button interrupt handler. It runs in interrupt context and
// must not block.
type buttonISR struct {
	debounce time.Duration
	now      func() time.Time
	stats    *Stats
	deliver  func() bool

	last atomic.Int64 // unix nanos of the last accepted edge
}

func newButtonISR(debounce time.Duration, stats *Stats, deliver func() bool) *buttonISR {
	return &buttonISR{
		debounce: debounce,
		now:      time.Now,
		stats:    stats,
		deliver:  deliver,
	}
}

func (b *buttonISR) handle() {
	now := b.now().UnixNano()
	if b.debounce > 0 {
		last := b.last.Load()
		if last != 0 && time.Duration(now-last) < b.debounce {
			b.stats.bounces.Add(1)
			return
		}
	}
	b.last.Store(now)
	b.stats.presses.Add(1)

	if !b.deliver() {
		b.stats.isrDrops.Add(1)
	}
}

// deliverButton hands a press to the logic task through the configured path.
// A full queue, or one not created yet, drops the press.
func (r *Runtime) deliverButton() bool {
	if r.flag != nil {
		r.flag.Set()
		return true
	}
	q := r.isrQueue.Load()
	if q == nil {
		return false
	}
	return q.TrySend(event.Button(1)) == nil
}

// Press runs the button interrupt handler as if the pin had fired. Boards
// without an interrupt-capable button use it to inject presses.
func (r *Runtime) Press() { r.isr.handle() }
