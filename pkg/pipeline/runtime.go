// Package pipeline wires the sensor, logic and presentation tasks around the
// event queue on top of the rtos kernel.
//
// Data flows Sensor -> queue -> Logic -> queue -> Presentation. The button
// reaches Logic either as a ButtonPressed event injected by the interrupt
// handler or through a polled Flag, depending on interrupt.mode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/rtos"
)

// Banner is written to the console during peripheral init.
const Banner = "System Initialized\r\n"

var (
	ErrNoADC      = errors.New("pipeline: board has no ADC")
	ErrNoActuator = errors.New("pipeline: board has no actuator pin")
	ErrNoSerial   = errors.New("pipeline: board has no serial transmitter")
)

// Options configures Boot.
type Options struct {
	Config *config.Config
	Board  hal.Board
	Logger *slog.Logger
	// Sinks receive every rendered frame after the serial console and the
	// display.
	Sinks []Sink
	// Clock stamps frames and the optional line prefix. Defaults to time.Now.
	Clock func() time.Time
}

// Runtime is everything one boot of the pipeline owns: the kernel, the queues,
// the task handles and the board. It is created once by Boot and handed to
// every task.
type Runtime struct {
	id    uuid.UUID
	cfg   *config.Config
	log   *slog.Logger
	board hal.Board
	clock func() time.Time

	kernel *rtos.Kernel
	conv   *rtos.Semaphore
	inbox  *rtos.Queue[event.Event]
	outbox *rtos.Queue[event.Event]
	flag   *Flag
	isr    *buttonISR
	stats  Stats

	// isrQueue publishes the inbox to the button interrupt, which is
	// installed before the queues exist.
	isrQueue atomic.Pointer[rtos.Queue[event.Event]]

	sensor       *rtos.Task
	logic        *rtos.Task
	presentation *rtos.Task
	heartbeat    *rtos.Task

	// Owned by the logic task.
	active bool
	// Owned by the presentation task.
	present presenter
}

// Boot performs the fixed startup sequence: kernel init, peripheral init
// (ADC completion handler, pins, console banner, button interrupt), queue
// creation and task creation. The kernel is started by Run.
func Boot(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := opts.Board
	switch {
	case b.ADC == nil:
		return nil, ErrNoADC
	case b.Actuator == nil:
		return nil, ErrNoActuator
	case b.Serial == nil:
		return nil, ErrNoSerial
	}

	id := uuid.New()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("boot", id.String())

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	r := &Runtime{
		id:     id,
		cfg:    cfg,
		log:    log,
		board:  b,
		clock:  clock,
		kernel: rtos.NewKernel(log),
	}

	if err := r.initPeripherals(); err != nil {
		return nil, err
	}
	if err := r.createQueues(); err != nil {
		r.releaseIRQ()
		return nil, err
	}
	r.initPresenter(opts.Sinks)
	if err := r.createTasks(); err != nil {
		r.releaseIRQ()
		return nil, err
	}

	log.Info("pipeline booted",
		"topology", cfg.Queue.Topology,
		"capacity", cfg.Queue.Capacity,
		"interrupt", cfg.Interrupt.Mode,
		"threshold", cfg.Logic.Threshold)
	return r, nil
}

func (r *Runtime) initPeripherals() error {
	r.conv = rtos.NewSemaphore(r.kernel, 1, 0)
	r.board.ADC.SetConversionHandler(func() { r.conv.Give() })

	r.setActuator(false)
	if r.board.Status != nil {
		r.board.Status.Set(false)
	}
	if r.board.PWM != nil {
		r.board.PWM.Set(0)
	}

	if _, err := r.board.Serial.Write([]byte(Banner)); err != nil {
		r.log.Warn("banner not written", "err", err)
	}

	if r.cfg.Interrupt.Mode == config.InterruptPolled {
		r.flag = &Flag{}
	}
	r.isr = newButtonISR(r.cfg.Interrupt.Debounce, &r.stats, r.deliverButton)
	if r.board.Button != nil {
		if err := r.board.Button.SetIRQ(hal.EdgeFalling, r.isr.handle); err != nil {
			return fmt.Errorf("button interrupt: %w", err)
		}
	}
	return nil
}

func (r *Runtime) createQueues() error {
	var err error
	r.inbox, err = rtos.NewQueue[event.Event](r.kernel, "events", r.cfg.Queue.Capacity)
	if err != nil {
		return err
	}
	r.outbox = r.inbox
	r.isrQueue.Store(r.inbox)
	if r.cfg.Queue.Topology == config.TopologySplit {
		r.outbox, err = rtos.NewQueue[event.Event](r.kernel, "display", r.cfg.Queue.Capacity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) createTasks() error {
	var err error
	if r.sensor, err = r.kernel.CreateTask("sensor", rtos.PriorityNormal, r.sensorTask); err != nil {
		return err
	}
	if r.logic, err = r.kernel.CreateTask("logic", rtos.PriorityElevated, r.logicTask); err != nil {
		return err
	}
	if r.presentation, err = r.kernel.CreateTask("presentation", rtos.PriorityReduced, r.presentationTask); err != nil {
		return err
	}
	if r.cfg.Heartbeat.Period > 0 && r.board.Status != nil {
		if r.heartbeat, err = r.kernel.CreateTask("heartbeat", rtos.PriorityReduced, r.heartbeatTask); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the kernel and blocks until ctx is cancelled, which resets the
// board. A Runtime cannot be run twice; boot a new one instead.
func (r *Runtime) Run(ctx context.Context) error {
	err := r.kernel.Start(ctx)

	r.board.ADC.Stop()
	r.board.ADC.SetConversionHandler(nil)
	r.releaseIRQ()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (r *Runtime) releaseIRQ() {
	if r.board.Button == nil {
		return
	}
	if err := r.board.Button.ClearIRQ(); err != nil {
		r.log.Warn("button interrupt not released", "err", err)
	}
}

// eventSource is the receiving side of an event queue.
type eventSource interface {
	ReceiveMatch(t *rtos.Task, wait time.Duration, match func(event.Event) bool) (event.Event, error)
}

// receive takes the next event accepted by match. Failures other than a
// timeout are logged at Warn.
func receive(t *rtos.Task, log *slog.Logger, src eventSource, wait time.Duration, match func(event.Event) bool) (event.Event, bool) {
	ev, err := src.ReceiveMatch(t, wait, match)
	if err != nil {
		if !errors.Is(err, rtos.ErrTimeout) {
			log.Warn("receive failed", "err", err)
		}
		return ev, false
	}
	return ev, true
}

// ID identifies this boot.
func (r *Runtime) ID() uuid.UUID { return r.id }

func (r *Runtime) Config() *config.Config { return r.cfg }

func (r *Runtime) Kernel() *rtos.Kernel { return r.kernel }

// Inbox is the queue the logic task receives from.
func (r *Runtime) Inbox() *rtos.Queue[event.Event] { return r.inbox }

// Outbox is the queue the presentation task receives from. It is the inbox in
// the shared topology.
func (r *Runtime) Outbox() *rtos.Queue[event.Event] { return r.outbox }

// Stats returns a snapshot of the pipeline counters.
func (r *Runtime) Stats() StatsSnapshot {
	s := r.stats.snapshot()
	s.InboxHighWater = r.inbox.HighWater()
	s.OutboxHighWater = r.outbox.HighWater()
	return s
}
