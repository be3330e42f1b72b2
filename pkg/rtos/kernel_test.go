package rtos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects trace lines from tasks.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.lines = append(r.lines, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// startKernel runs k in the background and resets it when the test ends.
func startKernel(t *testing.T, k *Kernel) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("kernel did not stop within timeout")
		}
	})
}

func blockForever(t *Task) {
	q, _ := NewQueue[int](t.Kernel(), "park-"+t.Name(), 1)
	for {
		_, _ = q.Receive(t, WaitForever)
	}
}

func TestKernel_HighestPriorityRunsFirst(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}

	for _, tc := range []struct {
		name string
		prio Priority
	}{
		{"reduced", PriorityReduced},
		{"normal", PriorityNormal},
		{"elevated", PriorityElevated},
	} {
		name := tc.name
		_, err := k.CreateTask(name, tc.prio, func(t *Task) {
			rec.add(name)
			blockForever(t)
		})
		require.NoError(t, err)
	}

	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"elevated", "normal", "reduced"}, rec.snapshot())
	assert.Eventually(t, k.Idle, time.Second, time.Millisecond)
}

func TestKernel_SendPreemptsLowerPriority(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}
	q, err := NewQueue[int](k, "q", 4)
	require.NoError(t, err)

	_, err = k.CreateTask("hi", PriorityElevated, func(t *Task) {
		for {
			v, err := q.Receive(t, WaitForever)
			if err == nil {
				rec.add("hi:got")
				_ = v
			}
		}
	})
	require.NoError(t, err)
	_, err = k.CreateTask("lo", PriorityNormal, func(t *Task) {
		rec.add("lo:before")
		_ = q.Send(t, 1, 0)
		rec.add("lo:after")
		blockForever(t)
	})
	require.NoError(t, err)

	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"lo:before", "hi:got", "lo:after"}, rec.snapshot())
}

func TestKernel_LowerPriorityWaitsForHigherToSuspend(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}

	_, err := k.CreateTask("lo", PriorityNormal, func(t *Task) {
		rec.add("lo")
		blockForever(t)
	})
	require.NoError(t, err)
	_, err = k.CreateTask("hi", PriorityElevated, func(t *Task) {
		rec.add("hi:1")
		t.Sleep(0) // not a suspension: nothing higher is ready
		rec.add("hi:2")
		t.Sleep(10 * time.Millisecond)
		rec.add("hi:3")
		blockForever(t)
	})
	require.NoError(t, err)

	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"hi:1", "hi:2", "lo", "hi:3"}, rec.snapshot())
}

func TestTask_Sleep(t *testing.T) {
	k := NewKernel(nil)
	elapsed := make(chan time.Duration, 1)

	_, err := k.CreateTask("sleeper", PriorityNormal, func(t *Task) {
		start := time.Now()
		t.Sleep(30 * time.Millisecond)
		elapsed <- time.Since(start)
		blockForever(t)
	})
	require.NoError(t, err)

	startKernel(t, k)

	select {
	case d := <-elapsed:
		assert.GreaterOrEqual(t, d, 30*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("sleeper did not wake")
	}
}

func TestTask_YieldRoundRobinsEqualPriority(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}

	for _, name := range []string{"a", "b"} {
		name := name
		_, err := k.CreateTask(name, PriorityNormal, func(t *Task) {
			for i := 0; i < 2; i++ {
				rec.add(name)
				t.Yield()
			}
			blockForever(t)
		})
		require.NoError(t, err)
	}

	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b", "a", "b"}, rec.snapshot())
}

func TestKernel_StartErrors(t *testing.T) {
	k := NewKernel(nil)
	assert.ErrorIs(t, k.Start(context.Background()), ErrNoTasks)

	_, err := k.CreateTask("nil", PriorityNormal, nil)
	assert.ErrorIs(t, err, ErrNilEntry)

	_, err = k.CreateTask("bad", Priority(9), func(*Task) {})
	assert.ErrorIs(t, err, ErrBadPriority)

	_, err = k.CreateTask("ok", PriorityNormal, blockForever)
	require.NoError(t, err)
	startKernel(t, k)

	assert.Eventually(t, k.Idle, time.Second, time.Millisecond)
	_, err = k.CreateTask("late", PriorityNormal, blockForever)
	assert.ErrorIs(t, err, ErrStarted)
	assert.ErrorIs(t, k.Start(context.Background()), ErrStarted)
}

// TestKernel_GracefulShutdown tests that cancelling the start context resets
// the kernel and every task goroutine exits, including sleeping ones.
func TestKernel_GracefulShutdown(t *testing.T) {
	k := NewKernel(nil)
	_, err := k.CreateTask("sleeper", PriorityReduced, func(t *Task) {
		for {
			t.Sleep(time.Hour)
		}
	})
	require.NoError(t, err)
	_, err = k.CreateTask("waiter", PriorityElevated, blockForever)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- k.Start(ctx) }()

	assert.Eventually(t, k.Idle, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("kernel did not stop within timeout")
	}

	select {
	case <-k.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestKernel_PanickingTaskIsDeleted(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}

	_, err := k.CreateTask("bad", PriorityElevated, func(t *Task) {
		panic("boom")
	})
	require.NoError(t, err)
	_, err = k.CreateTask("good", PriorityNormal, func(t *Task) {
		rec.add("good")
		blockForever(t)
	})
	require.NoError(t, err)

	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, k.Idle, time.Second, time.Millisecond)
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "reduced", PriorityReduced.String())
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "elevated", PriorityElevated.String())
	assert.Equal(t, "priority(7)", Priority(7).String())
}

func TestTask_BlockingReleasesCPU(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}
	release := make(chan struct{})

	_, err := k.CreateTask("hi", PriorityElevated, func(t *Task) {
		rec.add("hi:start")
		t.Blocking(func() { <-release })
		rec.add("hi:end")
		blockForever(t)
	})
	require.NoError(t, err)
	_, err = k.CreateTask("lo", PriorityReduced, func(t *Task) {
		for i := 0; i < 3; i++ {
			rec.add("lo")
			t.Sleep(time.Millisecond)
		}
		blockForever(t)
	})
	require.NoError(t, err)
	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"hi:start", "lo", "lo", "lo"}, rec.snapshot())
	assert.False(t, k.Idle(), "a task inside Blocking keeps the kernel busy")

	close(release)
	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, "hi:end", rec.snapshot()[4])
	assert.Eventually(t, k.Idle, time.Second, time.Millisecond)
}

func TestTask_BlockingResumesAtPriority(t *testing.T) {
	k := NewKernel(nil)
	rec := &recorder{}

	_, err := k.CreateTask("hi", PriorityElevated, func(t *Task) {
		t.Blocking(func() { time.Sleep(20 * time.Millisecond) })
		rec.add("hi")
		blockForever(t)
	})
	require.NoError(t, err)
	_, err = k.CreateTask("lo", PriorityReduced, func(t *Task) {
		for {
			t.Yield()
			if len(rec.snapshot()) > 0 {
				rec.add("lo")
				blockForever(t)
			}
		}
	})
	require.NoError(t, err)
	startKernel(t, k)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"hi", "lo"}, rec.snapshot())
}
