package pipeline

import "github.com/itohio/sensorpipe/pkg/rtos"

// heartbeatTask blinks the status pin.
func (r *Runtime) heartbeatTask(t *rtos.Task) {
	on := false
	for {
		on = !on
		r.board.Status.Set(on)
		t.Sleep(r.cfg.Heartbeat.Period)
	}
}
