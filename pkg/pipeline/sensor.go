package pipeline

import (
	"errors"
	"fmt"

	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/rtos"
)

var ErrAcquisitionTimeout = errors.New("pipeline: acquisition timeout")

// sensorTask samples the ADC every sensor.period and posts the reading
// without waiting for queue space.
func (r *Runtime) sensorTask(t *rtos.Task) {
	log := t.Logger()
	for {
		v, err := r.acquire(t)
		switch {
		case err == nil:
			r.stats.samples.Add(1)
			if err := r.inbox.Send(t, event.Reading(v), 0); err != nil {
				r.stats.sensorDrops.Add(1)
				log.Debug("reading dropped", "value", v, "err", err)
			}
		case errors.Is(err, ErrAcquisitionTimeout):
			r.stats.timeouts.Add(1)
			log.Debug("conversion timed out", "timeout", r.cfg.Sensor.SampleTimeout)
			if r.cfg.Sensor.ErrorOnTimeout {
				r.postFault(t, event.CodeAcquisitionTimeout)
			}
		default:
			log.Warn("acquisition failed", "err", err)
		}

		t.Sleep(r.cfg.Sensor.Period)
	}
}

// acquire runs one conversion, waiting on the completion interrupt for at
// most sensor.sample_timeout.
func (r *Runtime) acquire(t *rtos.Task) (uint16, error) {
	adc := r.board.ADC

	r.conv.Reset()
	if err := adc.StartConversion(); err != nil {
		return 0, fmt.Errorf("start conversion: %w", err)
	}
	if err := r.conv.Take(t, r.cfg.Sensor.SampleTimeout); err != nil {
		adc.Stop()
		return 0, ErrAcquisitionTimeout
	}
	v := adc.Value()
	adc.Stop()
	return v, nil
}

func (r *Runtime) postFault(t *rtos.Task, code event.Code) {
	if err := r.inbox.Send(t, event.Fault(code), 0); err != nil {
		r.stats.sensorDrops.Add(1)
		t.Logger().Debug("fault dropped", "code", code, "err", err)
		return
	}
	r.stats.faults.Add(1)
}
