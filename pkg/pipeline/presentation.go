package pipeline

import (
	"time"

	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/rtos"
)

// Frame is one rendered presentation update.
type Frame struct {
	Kind   event.Kind // DisplayUpdate or ActuatorToggled
	Value  uint32     // reading shown; the last reading for toggles
	Active bool       // actuator state after a toggle
	Time   time.Time
	Line   string // CRLF terminated console line
}

type presenter struct {
	label     string
	timestamp bool
	last      uint32
	sinks     []Sink
}

func (r *Runtime) initPresenter(extra []Sink) {
	p := presenter{
		label:     r.cfg.Display.Label,
		timestamp: r.cfg.Display.Timestamp,
	}
	p.sinks = append(p.sinks, SerialSink{W: r.board.Serial})
	if r.cfg.Display.OLED && r.board.Display != nil {
		p.sinks = append(p.sinks, NewOLEDSink(r.board.Display))
	}
	p.sinks = append(p.sinks, extra...)
	r.present = p
}

// render turns an event into a frame. Only DisplayUpdate and ActuatorToggled
// produce output.
func (p *presenter) render(ev event.Event, now time.Time) (Frame, bool) {
	f := Frame{Kind: ev.Kind, Time: now}
	switch ev.Kind {
	case event.DisplayUpdate:
		p.last = ev.Value
		f.Value = ev.Value
		f.Line = FormatReading(p.label, ev.Value)
	case event.ActuatorToggled:
		f.Value = p.last
		f.Active = ev.Active()
		f.Line = FormatToggle(p.last)
	default:
		return Frame{}, false
	}
	if p.timestamp {
		f.Line = Stamp(now) + f.Line
	}
	return f, true
}

// forPresentation selects the events the presentation task consumes.
func forPresentation(ev event.Event) bool {
	return ev.Kind == event.DisplayUpdate || ev.Kind == event.ActuatorToggled
}

// presentationTask formats display events and delivers them to every sink.
// Sinks run without the CPU so a slow console never holds up the sensor or
// logic tasks. Sink failures are logged and do not stop the loop.
func (r *Runtime) presentationTask(t *rtos.Task) {
	log := t.Logger()
	for {
		ev, ok := receive(t, log, r.outbox, rtos.WaitForever, forPresentation)
		if !ok {
			continue
		}

		f, ok := r.present.render(ev, r.clock())
		if !ok {
			r.stats.ignored.Add(1)
			continue
		}
		r.stats.lines.Add(1)

		t.Blocking(func() {
			for _, s := range r.present.sinks {
				if err := s.Show(f); err != nil {
					r.stats.sinkErrors.Add(1)
					log.Warn("sink failed", "err", err)
				}
			}
		})
	}
}
