// Package trace keeps a time window of presented readings for the scope.
package trace

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/pipeline"
)

var _ pipeline.Sink = (*Recorder)(nil)

// Point is one presented frame.
type Point struct {
	Time   time.Time
	Value  uint32
	Toggle bool // frame was a button toggle
	Active bool // actuator state after a toggle
}

// Summary describes the readings currently in the window. Toggle points are
// not counted.
type Summary struct {
	Count int
	Min   uint32
	Max   uint32
	Mean  float64
	Last  uint32
}

// Recorder is a FIFO of points ordered oldest first. Points older than the
// window, measured from the newest point, are evicted.
type Recorder struct {
	window time.Duration
	now    func() time.Time
	log    *slog.Logger

	mu       sync.RWMutex
	points   []Point
	shutdown bool

	cbMu      sync.RWMutex
	callbacks []func(points []Point)
}

// New creates a recorder keeping window worth of points.
func New(window time.Duration) *Recorder {
	return &Recorder{
		window: window,
		now:    time.Now,
		log:    slog.Default().With("service", "trace"),
	}
}

// Show records a presentation frame. It runs on the presentation task.
func (r *Recorder) Show(f pipeline.Frame) error {
	r.Add(Point{
		Time:   f.Time,
		Value:  f.Value,
		Toggle: f.Kind == event.ActuatorToggled,
		Active: f.Active,
	})
	return nil
}

// Process records console lines read back from a board until lines is
// closed. Lines that are not frames are skipped.
func (r *Recorder) Process(lines <-chan string) {
	for s := range lines {
		l, err := pipeline.ParseLine(s)
		if err != nil {
			if !errors.Is(err, pipeline.ErrNotAFrame) {
				r.log.Debug("unparsable line", "line", s, "err", err)
			}
			continue
		}
		r.Add(Point{
			Time:   r.now(),
			Value:  l.Value,
			Toggle: l.Kind == event.ActuatorToggled,
		})
	}

	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()
}

// Add appends p, evicts points outside the window and notifies callbacks.
func (r *Recorder) Add(p Point) {
	r.mu.Lock()
	r.points = append(r.points, p)

	cutoff := p.Time.Add(-r.window)
	drop := 0
	for drop < len(r.points) && !r.points[drop].Time.After(cutoff) {
		drop++
	}
	if drop > 0 {
		r.points = append(r.points[:0], r.points[drop:]...)
	}

	notify := !r.shutdown
	var snapshot []Point
	if notify {
		snapshot = make([]Point, len(r.points))
		copy(snapshot, r.points)
	}
	r.mu.Unlock()

	if notify {
		r.notify(snapshot)
	}
}

// Points returns a copy of the window.
func (r *Recorder) Points() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Point, len(r.points))
	copy(result, r.points)
	return result
}

// Reset empties the window and re-enables callbacks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.points = r.points[:0]
	r.shutdown = false
	r.mu.Unlock()
}

// OnUpdate registers a callback receiving a copy of the window after every
// added point. It should return quickly.
func (r *Recorder) OnUpdate(fn func(points []Point)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

func (r *Recorder) notify(points []Point) {
	r.cbMu.RLock()
	callbacks := make([]func([]Point), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(points)
		}
	}
}

// Summarize computes the reading statistics of points.
func Summarize(points []Point) Summary {
	var s Summary
	var sum uint64
	for _, p := range points {
		if p.Toggle {
			continue
		}
		if s.Count == 0 || p.Value < s.Min {
			s.Min = p.Value
		}
		if p.Value > s.Max {
			s.Max = p.Value
		}
		sum += uint64(p.Value)
		s.Last = p.Value
		s.Count++
	}
	if s.Count > 0 {
		s.Mean = float64(sum) / float64(s.Count)
	}
	return s
}
