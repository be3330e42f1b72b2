package pipeline

import (
	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/rtos"
)

// servoPeriodUS is the servo frame length the PWM top is assumed to span.
const servoPeriodUS = 20000

// Decide reports whether a reading activates the actuator.
func Decide(v, threshold uint32) bool { return v > threshold }

// Duty maps a reading onto a PWM duty in 0..top.
//
// linear scales the full ADC range onto the counter. servo produces a
// 500..2500us pulse inside a 20ms frame.
func Duty(mode string, v, top uint32) uint32 {
	v = min(v, hal.MaxReading)
	switch mode {
	case config.PWMLinear:
		return uint32(uint64(v) * uint64(top) / hal.MaxReading)
	case config.PWMServo:
		pulse := 500 + uint64(v)*2000/hal.MaxReading
		return uint32(pulse * uint64(top) / servoPeriodUS)
	default:
		return 0
	}
}

// forLogic selects the events the logic task consumes. On the shared queue
// it leaves the presentation events it emitted itself in place.
func forLogic(ev event.Event) bool {
	switch ev.Kind {
	case event.DisplayUpdate, event.ActuatorToggled:
		return false
	}
	return true
}

// logicTask applies the decision rule to readings and handles the button.
// It is the only writer of the actuator and the PWM channel.
func (r *Runtime) logicTask(t *rtos.Task) {
	wait := rtos.WaitForever
	if r.flag != nil {
		wait = r.cfg.Logic.PollInterval
	}

	for {
		if ev, ok := receive(t, t.Logger(), r.inbox, wait, forLogic); ok {
			r.handle(t, ev)
		}

		if r.flag != nil && r.flag.Take() {
			r.toggle(t)
		}
	}
}

func (r *Runtime) handle(t *rtos.Task, ev event.Event) {
	switch ev.Kind {
	case event.SensorReading:
		r.setActuator(Decide(ev.Value, r.cfg.Logic.Threshold))
		if r.board.PWM != nil && r.cfg.PWM.Mode != config.PWMNone {
			r.board.PWM.Set(Duty(r.cfg.PWM.Mode, ev.Value, r.board.PWM.Top()))
		}
		r.emit(t, event.Display(ev.Value))
	case event.ButtonPressed:
		r.toggle(t)
	case event.Error:
		t.Logger().Debug("fault received", "code", ev.Code())
	default:
		r.stats.ignored.Add(1)
	}
}

func (r *Runtime) toggle(t *rtos.Task) {
	r.setActuator(!r.active)
	r.stats.toggles.Add(1)
	r.emit(t, event.Toggled(r.active))
}

func (r *Runtime) emit(t *rtos.Task, ev event.Event) {
	if err := r.outbox.Send(t, ev, 0); err != nil {
		r.stats.logicDrops.Add(1)
		t.Logger().Debug("event dropped", "event", ev, "err", err)
	}
}

// setActuator drives the actuator pin honouring actuator.active_low.
func (r *Runtime) setActuator(active bool) {
	r.active = active
	r.board.Actuator.Set(active != r.cfg.Actuator.ActiveLow)
}
