package rtos

import "time"

// Semaphore is a counting semaphore. With max 1 it is the binary semaphore an
// interrupt handler gives to release a task waiting on a peripheral.
type Semaphore struct {
	k     *Kernel
	max   int
	count int
	wait  waitQueue[struct{}]
}

// NewSemaphore creates a semaphore holding initial tokens, at most max.
func NewSemaphore(k *Kernel, max, initial int) *Semaphore {
	if max < 1 {
		max = 1
	}
	if initial > max {
		initial = max
	}
	if initial < 0 {
		initial = 0
	}
	return &Semaphore{k: k, max: max, count: initial}
}

// Give releases one token. Safe from interrupt context. Reports false when the
// semaphore was already full and the give was lost.
func (s *Semaphore) Give() bool {
	k := s.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if w := s.wait.pop(); w != nil {
		w.done = true
		k.readyLocked(w.t)
		k.dispatchLocked()
		return true
	}
	if s.count == s.max {
		return false
	}
	s.count++
	return true
}

// Take acquires a token for task t, blocking up to wait.
func (s *Semaphore) Take(t *Task, wait time.Duration) error {
	k := s.k
	k.mu.Lock()
	k.enterLocked(t)
	if s.count > 0 {
		s.count--
		k.leaveLocked(t)
		return nil
	}
	if wait == 0 {
		k.leaveLocked(t)
		return ErrTimeout
	}

	w := &waiter[struct{}]{t: t}
	s.wait.push(w)
	t.cancel = func() { s.wait.remove(w) }
	k.waitLocked(t, wait)
	if w.done {
		return nil
	}
	return ErrTimeout
}

// Reset drops any pending tokens. Used before starting a fresh hardware
// operation so that a late completion from an abandoned one is not consumed.
func (s *Semaphore) Reset() {
	s.k.mu.Lock()
	s.count = 0
	s.k.mu.Unlock()
}
