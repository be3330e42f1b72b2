package rtos

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Kernel emulates a single-core, fixed-priority preemptive scheduler.
//
// Exactly one task holds the CPU at a time: the highest priority ready task.
// Tasks give up the CPU only inside kernel calls (blocking queue operations,
// semaphore takes, sleeps) and while in Task.Blocking. A kernel call that
// readies a higher priority task hands the CPU over before returning. Wake-ups from timers or interrupt
// context while a task is running take effect at that task's next kernel call.
type Kernel struct {
	log *slog.Logger

	mu       sync.Mutex
	tasks    []*Task
	ready    [numPriorities]taskList
	current  *Task
	started  bool
	stopped  bool
	switches uint64
	busy     int // tasks inside Task.Blocking

	done chan struct{}
	wg   sync.WaitGroup
}

// NewKernel creates a kernel. Tasks must be created before Start.
func NewKernel(log *slog.Logger) *Kernel {
	if log == nil {
		log = slog.Default()
	}
	return &Kernel{
		log:  log.With("service", "kernel"),
		done: make(chan struct{}),
	}
}

// CreateTask registers a task. Tasks are never destroyed short of a reset.
func (k *Kernel) CreateTask(name string, prio Priority, entry TaskFunc) (*Task, error) {
	if entry == nil {
		return nil, fmt.Errorf("task %s: %w", name, ErrNilEntry)
	}
	if !prio.valid() {
		return nil, fmt.Errorf("task %s: %w", name, ErrBadPriority)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return nil, fmt.Errorf("task %s: %w", name, ErrStarted)
	}

	t := &Task{
		k:      k,
		name:   name,
		prio:   prio,
		entry:  entry,
		log:    k.log.With("task", name),
		resume: make(chan struct{}, 1),
	}
	k.tasks = append(k.tasks, t)
	return t, nil
}

// Start runs the scheduler. Under normal operation it does not return; it
// returns after ctx is cancelled or Stop is called, once every task goroutine
// has exited.
func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return ErrStarted
	}
	if len(k.tasks) == 0 {
		k.mu.Unlock()
		return ErrNoTasks
	}
	k.started = true
	for _, t := range k.tasks {
		k.wg.Add(1)
		go t.run()
		k.makeReadyLocked(t)
	}
	k.switchLocked()
	n := len(k.tasks)
	k.mu.Unlock()

	k.log.Info("scheduler started", "tasks", n)

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		k.Stop()
	case <-k.done:
	}
	k.wg.Wait()
	k.log.Info("scheduler stopped")
	return err
}

// Stop resets the kernel: every task goroutine exits at its current or next
// suspension point and no task state survives.
func (k *Kernel) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stopped {
		return
	}
	k.stopped = true
	for _, t := range k.tasks {
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
	k.current = nil
	close(k.done)
}

// Done is closed once the kernel has been stopped.
func (k *Kernel) Done() <-chan struct{} { return k.done }

// Idle reports whether no task holds the CPU, none is ready to run and none
// is inside Task.Blocking.
func (k *Kernel) Idle() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current != nil || k.busy > 0 {
		return false
	}
	for p := range k.ready {
		if !k.ready[p].empty() {
			return false
		}
	}
	return true
}

// Current returns the name of the task holding the CPU, or "" when idle.
func (k *Kernel) Current() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current == nil {
		return ""
	}
	return k.current.name
}

// Switches returns the number of context switches performed so far.
func (k *Kernel) Switches() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.switches
}

func (k *Kernel) makeReadyLocked(t *Task) {
	t.state = stateReady
	k.ready[t.prio].push(t)
}

// readyLocked wakes a blocked task whose wait has been satisfied.
func (k *Kernel) readyLocked(t *Task) {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.cancel = nil
	k.makeReadyLocked(t)
}

func (k *Kernel) higherReadyLocked(p Priority) bool {
	for q := Priority(numPriorities - 1); q > p; q-- {
		if !k.ready[q].empty() {
			return true
		}
	}
	return false
}

func (k *Kernel) pickLocked() *Task {
	for p := numPriorities - 1; p >= 0; p-- {
		if t := k.ready[p].pop(); t != nil {
			return t
		}
	}
	return nil
}

// switchLocked hands the CPU to the highest priority ready task. The caller
// must already have given up the CPU (k.current == nil).
func (k *Kernel) switchLocked() {
	if k.stopped {
		return
	}
	next := k.pickLocked()
	if next == nil {
		return
	}
	next.state = stateRunning
	k.current = next
	k.switches++
	next.resume <- struct{}{}
}

// dispatchLocked starts a task if the CPU is idle. Used by interrupt context
// and timers after they ready a task.
func (k *Kernel) dispatchLocked() {
	if k.started && k.current == nil {
		k.switchLocked()
	}
}

// enterLocked validates a kernel call made by t. A reset terminates the
// calling goroutine here.
func (k *Kernel) enterLocked(t *Task) {
	if k.stopped {
		k.mu.Unlock()
		runtime.Goexit()
	}
	if k.current != t {
		k.mu.Unlock()
		panic("rtos: kernel call from task " + t.name + " which does not hold the CPU")
	}
}

// leaveLocked ends a non-blocking kernel call, handing the CPU over if a
// higher priority task became ready. Releases k.mu.
func (k *Kernel) leaveLocked(t *Task) {
	if !k.higherReadyLocked(t.prio) {
		k.mu.Unlock()
		return
	}
	t.state = stateReady
	k.ready[t.prio].pushFront(t)
	k.current = nil
	k.switchLocked()
	k.mu.Unlock()
	t.park()
}

// waitLocked blocks t until it is readied or d elapses (d < 0 waits forever).
// The caller registers t in a wait list and sets t.cancel beforehand.
// Releases k.mu and reports whether the wait timed out.
func (k *Kernel) waitLocked(t *Task, d time.Duration) bool {
	t.seq++
	seq := t.seq
	t.timedOut = false
	if d >= 0 {
		t.timer = time.AfterFunc(d, func() { k.expire(t, seq) })
	}
	t.state = stateBlocked
	k.current = nil
	k.switchLocked()
	k.mu.Unlock()
	t.park()
	return t.timedOut
}

func (k *Kernel) expire(t *Task, seq uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stopped || t.state != stateBlocked || t.seq != seq {
		return
	}
	t.timer = nil
	t.timedOut = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	k.makeReadyLocked(t)
	k.dispatchLocked()
}
