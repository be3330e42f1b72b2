package rtos

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Priority is a static scheduling tier. A ready task of a higher tier always
// gets the CPU before any task of a lower tier.
type Priority int8

const (
	// PriorityReduced corresponds to osPriorityBelowNormal.
	PriorityReduced Priority = iota
	// PriorityNormal corresponds to osPriorityNormal.
	PriorityNormal
	// PriorityElevated corresponds to osPriorityAboveNormal.
	PriorityElevated
)

const numPriorities = 3

func (p Priority) String() string {
	switch p {
	case PriorityReduced:
		return "reduced"
	case PriorityNormal:
		return "normal"
	case PriorityElevated:
		return "elevated"
	default:
		return fmt.Sprintf("priority(%d)", int8(p))
	}
}

func (p Priority) valid() bool { return p >= PriorityReduced && p <= PriorityElevated }

// WaitForever is the unbounded wait budget for blocking kernel calls.
const WaitForever time.Duration = -1

type taskState uint8

const (
	stateCreated taskState = iota
	stateReady
	stateRunning
	stateBlocked
	stateDeleted
)

// TaskFunc is a task entry point. It is expected to loop forever.
type TaskFunc func(t *Task)

// Task is a unit of execution with a fixed priority. Each task runs on its own
// goroutine but only executes while it holds the kernel CPU token.
type Task struct {
	k     *Kernel
	name  string
	prio  Priority
	entry TaskFunc
	log   *slog.Logger

	resume chan struct{}

	// Guarded by k.mu.
	state    taskState
	next     *Task
	seq      uint64
	timer    *time.Timer
	timedOut bool
	cancel   func()
}

func (t *Task) Name() string       { return t.name }
func (t *Task) Priority() Priority { return t.prio }
func (t *Task) Kernel() *Kernel    { return t.k }

// Logger returns the task's logger, tagged with the task name.
func (t *Task) Logger() *slog.Logger { return t.log }

// Sleep suspends the task for d. A non-positive d only gives way to higher
// priority tasks that are already ready.
func (t *Task) Sleep(d time.Duration) {
	k := t.k
	k.mu.Lock()
	k.enterLocked(t)
	if d <= 0 {
		k.leaveLocked(t)
		return
	}
	k.waitLocked(t, d)
}

// Yield moves the task behind other ready tasks of its own tier.
func (t *Task) Yield() {
	k := t.k
	k.mu.Lock()
	k.enterLocked(t)
	if k.ready[t.prio].empty() && !k.higherReadyLocked(t.prio) {
		k.mu.Unlock()
		return
	}
	t.state = stateReady
	k.ready[t.prio].push(t)
	k.current = nil
	k.switchLocked()
	k.mu.Unlock()
	t.park()
}

// Blocking runs fn, a call that blocks outside the kernel such as a device
// write, without holding the CPU. Other tasks, lower tiers included, run
// meanwhile. The task then waits its turn for the CPU like any woken task.
// fn must not make kernel calls.
func (t *Task) Blocking(fn func()) {
	k := t.k
	k.mu.Lock()
	k.enterLocked(t)
	t.seq++ // invalidates a timeout already in flight
	t.state = stateBlocked
	k.busy++
	k.current = nil
	k.switchLocked()
	k.mu.Unlock()

	fn()

	k.mu.Lock()
	k.busy--
	if k.stopped {
		k.mu.Unlock()
		runtime.Goexit()
	}
	k.makeReadyLocked(t)
	k.dispatchLocked()
	k.mu.Unlock()
	t.park()
}

// park waits for the CPU token. A reset terminates the goroutine.
func (t *Task) park() {
	select {
	case <-t.resume:
	case <-t.k.done:
		runtime.Goexit()
	}
}

func (t *Task) run() {
	k := t.k
	defer k.wg.Done()
	defer func() {
		r := recover()
		k.mu.Lock()
		defer k.mu.Unlock()
		if k.stopped {
			return
		}
		if r != nil {
			t.log.Error("task panicked, deleting it", "panic", r)
		} else {
			t.log.Warn("task returned, deleting it")
		}
		t.state = stateDeleted
		if k.current == t {
			k.current = nil
			k.switchLocked()
		}
	}()

	t.park()
	t.entry(t)
}

// taskList is an intrusive FIFO of tasks.
type taskList struct {
	head, tail *Task
}

func (l *taskList) empty() bool { return l.head == nil }

func (l *taskList) push(t *Task) {
	t.next = nil
	if l.tail != nil {
		l.tail.next = t
	}
	l.tail = t
	if l.head == nil {
		l.head = t
	}
}

func (l *taskList) pushFront(t *Task) {
	t.next = l.head
	l.head = t
	if l.tail == nil {
		l.tail = t
	}
}

func (l *taskList) pop() *Task {
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.next
	if l.tail == t {
		l.tail = nil
	}
	t.next = nil
	return t
}
