package rtos

import "errors"

var (
	ErrQueueFull   = errors.New("rtos: queue full")
	ErrTimeout     = errors.New("rtos: timeout")
	ErrStarted     = errors.New("rtos: kernel already started")
	ErrNoTasks     = errors.New("rtos: no tasks created")
	ErrBadCapacity = errors.New("rtos: capacity must be at least 1")
	ErrBadPriority = errors.New("rtos: unknown priority")
	ErrNilEntry    = errors.New("rtos: nil task entry")
)
