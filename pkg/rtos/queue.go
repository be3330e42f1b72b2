package rtos

import (
	"fmt"
	"time"
)

// Queue is a fixed-capacity FIFO mailbox shared between tasks and interrupt
// context. Items are copied in and out by value. All operations are atomic
// with respect to each other; order is strictly arrival order.
//
// Receivers may select the items they accept (ReceiveMatch). Each receiver
// sees the items it accepts in arrival order. No blocked receiver ever has an
// acceptable item sitting in the buffer: a new item is handed straight to the
// highest priority waiting receiver that accepts it.
type Queue[T any] struct {
	k    *Kernel
	name string

	// Guarded by k.mu.
	buf  []T
	head int
	n    int
	high int
	recv waitQueue[T]
	send waitQueue[T]
}

// NewQueue creates a queue of the given capacity. The capacity never changes.
func NewQueue[T any](k *Kernel, name string, capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("queue %s: %w", name, ErrBadCapacity)
	}
	return &Queue[T]{
		k:    k,
		name: name,
		buf:  make([]T, capacity),
	}, nil
}

func (q *Queue[T]) Name() string { return q.name }

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	return q.n
}

// HighWater returns the largest occupancy observed since creation.
func (q *Queue[T]) HighWater() int {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	return q.high
}

// Send appends v from task t. If the queue is full it blocks up to wait
// (WaitForever for no limit) and then fails with ErrQueueFull. A zero wait
// never blocks.
func (q *Queue[T]) Send(t *Task, v T, wait time.Duration) error {
	k := q.k
	k.mu.Lock()
	k.enterLocked(t)
	if q.offerLocked(v) {
		k.leaveLocked(t)
		return nil
	}
	if wait == 0 {
		k.leaveLocked(t)
		return ErrQueueFull
	}

	w := &waiter[T]{t: t, item: v}
	q.send.push(w)
	t.cancel = func() { q.send.remove(w) }
	k.waitLocked(t, wait)
	if w.done {
		return nil
	}
	return ErrQueueFull
}

// Receive removes the head item for task t, blocking up to wait when empty
// (WaitForever for no limit). Fails with ErrTimeout when the budget expires.
func (q *Queue[T]) Receive(t *Task, wait time.Duration) (T, error) {
	return q.ReceiveMatch(t, wait, nil)
}

// ReceiveMatch removes the oldest item accepted by match, leaving the others
// queued in order. It blocks up to wait until such an item arrives. A nil
// match accepts everything.
func (q *Queue[T]) ReceiveMatch(t *Task, wait time.Duration, match func(T) bool) (T, error) {
	var zero T
	k := q.k
	k.mu.Lock()
	k.enterLocked(t)
	if v, ok := q.takeLocked(match); ok {
		k.leaveLocked(t)
		return v, nil
	}
	if wait == 0 {
		k.leaveLocked(t)
		return zero, ErrTimeout
	}

	w := &waiter[T]{t: t, match: match}
	q.recv.push(w)
	t.cancel = func() { q.recv.remove(w) }
	k.waitLocked(t, wait)
	if w.done {
		return w.item, nil
	}
	return zero, ErrTimeout
}

// TrySend appends v without blocking. It is safe to call from interrupt
// context and from goroutines that are not kernel tasks.
func (q *Queue[T]) TrySend(v T) error {
	k := q.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if !q.offerLocked(v) {
		return ErrQueueFull
	}
	k.dispatchLocked()
	return nil
}

// TryReceive removes the head item without blocking. Like TrySend it may be
// called outside of task context.
func (q *Queue[T]) TryReceive() (T, bool) {
	k := q.k
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := q.takeLocked(nil)
	if ok {
		k.dispatchLocked()
	}
	return v, ok
}

func (q *Queue[T]) offerLocked(v T) bool {
	if w := q.recv.popFor(v); w != nil {
		w.item = v
		w.done = true
		q.k.readyLocked(w.t)
		return true
	}
	if q.n == len(q.buf) {
		return false
	}
	q.pushLocked(v)
	return true
}

func (q *Queue[T]) pushLocked(v T) {
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
	if q.n > q.high {
		q.high = q.n
	}
}

// takeLocked removes the oldest item accepted by match. The freed slot goes
// to the highest priority blocked sender.
func (q *Queue[T]) takeLocked(match func(T) bool) (T, bool) {
	var zero T
	i := 0
	for ; i < q.n; i++ {
		if match == nil || match(q.buf[(q.head+i)%len(q.buf)]) {
			break
		}
	}
	if i == q.n {
		return zero, false
	}

	size := len(q.buf)
	v := q.buf[(q.head+i)%size]
	for j := i; j > 0; j-- {
		q.buf[(q.head+j)%size] = q.buf[(q.head+j-1)%size]
	}
	q.buf[q.head] = zero
	q.head = (q.head + 1) % size
	q.n--

	if w := q.send.pop(); w != nil {
		q.offerLocked(w.item)
		w.done = true
		q.k.readyLocked(w.t)
	}
	return v, true
}

type waiter[T any] struct {
	t     *Task
	item  T
	done  bool
	match func(T) bool // receivers only; nil accepts everything
}

func (w *waiter[T]) accepts(v T) bool { return w.match == nil || w.match(v) }

// waitQueue orders blocked tasks by priority, then by arrival.
type waitQueue[T any] []*waiter[T]

func (wq *waitQueue[T]) push(w *waiter[T]) { *wq = append(*wq, w) }

// pop removes the highest priority waiter. Only for unfiltered waiters.
func (wq *waitQueue[T]) pop() *waiter[T] {
	var zero T
	return wq.popFor(zero)
}

// popFor removes the highest priority waiter accepting v.
func (wq *waitQueue[T]) popFor(v T) *waiter[T] {
	s := *wq
	best := -1
	for i, w := range s {
		if !w.accepts(v) {
			continue
		}
		if best < 0 || w.t.prio > s[best].t.prio {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	w := s[best]
	*wq = append(s[:best], s[best+1:]...)
	return w
}

func (wq *waitQueue[T]) remove(w *waiter[T]) {
	s := *wq
	for i, x := range s {
		if x == w {
			*wq = append(s[:i], s[i+1:]...)
			return
		}
	}
}
