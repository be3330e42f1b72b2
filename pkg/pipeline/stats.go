package pipeline

import "sync/atomic"

// Stats holds the pipeline counters. Every counter is written from a single
// task or from interrupt context and may be read from anywhere.
type Stats struct {
	samples     atomic.Uint64
	timeouts    atomic.Uint64
	faults      atomic.Uint64
	sensorDrops atomic.Uint64
	logicDrops  atomic.Uint64
	isrDrops    atomic.Uint64
	presses     atomic.Uint64
	bounces     atomic.Uint64
	toggles     atomic.Uint64
	lines       atomic.Uint64
	ignored     atomic.Uint64
	sinkErrors  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Samples             uint64 // completed conversions
	AcquisitionTimeouts uint64
	Faults              uint64 // Error events posted
	SensorDrops         uint64 // sensor sends rejected by a full queue
	LogicDrops          uint64 // logic sends rejected by a full queue
	ISRDrops            uint64 // button events rejected by a full queue
	Presses             uint64 // debounced button presses
	Bounces             uint64 // edges rejected by the debounce window
	Toggles             uint64 // button actions performed by logic
	Lines               uint64 // frames rendered by presentation
	Ignored             uint64 // events received with no action
	SinkErrors          uint64

	InboxHighWater  int
	OutboxHighWater int
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Samples:             s.samples.Load(),
		AcquisitionTimeouts: s.timeouts.Load(),
		Faults:              s.faults.Load(),
		SensorDrops:         s.sensorDrops.Load(),
		LogicDrops:          s.logicDrops.Load(),
		ISRDrops:            s.isrDrops.Load(),
		Presses:             s.presses.Load(),
		Bounces:             s.bounces.Load(),
		Toggles:             s.toggles.Load(),
		Lines:               s.lines.Load(),
		Ignored:             s.ignored.Load(),
		SinkErrors:          s.sinkErrors.Load(),
	}
}

// Drops is the total of events lost to a full queue.
func (s StatsSnapshot) Drops() uint64 { return s.SensorDrops + s.LogicDrops + s.ISRDrops }
