package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/pipeline"
)

func TestRecorder_WindowEviction(t *testing.T) {
	r := New(10 * time.Second)
	base := time.Now()

	for i := 0; i < 15; i++ {
		r.Add(Point{Time: base.Add(time.Duration(i) * time.Second), Value: uint32(i)})
	}

	points := r.Points()
	require.NotEmpty(t, points)
	assert.Equal(t, uint32(14), points[len(points)-1].Value)
	assert.True(t, points[0].Time.After(base.Add(4*time.Second)))
	assert.Len(t, points, 10)
}

func TestRecorder_Show(t *testing.T) {
	r := New(time.Minute)
	now := time.Now()

	require.NoError(t, r.Show(pipeline.Frame{Kind: event.DisplayUpdate, Value: 2500, Time: now}))
	require.NoError(t, r.Show(pipeline.Frame{Kind: event.ActuatorToggled, Value: 2500, Active: true, Time: now.Add(time.Second)}))

	points := r.Points()
	require.Len(t, points, 2)
	assert.False(t, points[0].Toggle)
	assert.True(t, points[1].Toggle)
	assert.True(t, points[1].Active)
}

func TestRecorder_OnUpdate(t *testing.T) {
	r := New(time.Minute)
	var mu sync.Mutex
	var sizes []int
	r.OnUpdate(func(points []Point) {
		mu.Lock()
		sizes = append(sizes, len(points))
		mu.Unlock()
	})

	now := time.Now()
	r.Add(Point{Time: now, Value: 1})
	r.Add(Point{Time: now.Add(time.Second), Value: 2})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, sizes)
}

func TestRecorder_CallbackGetsCopy(t *testing.T) {
	r := New(time.Minute)
	r.OnUpdate(func(points []Point) { points[0].Value = 999 })

	r.Add(Point{Time: time.Now(), Value: 1})
	assert.Equal(t, uint32(1), r.Points()[0].Value)
}

// TestRecorder_GracefulShutdown tests that no callbacks are sent after the
// lines channel closes, and that Reset enables them again.
func TestRecorder_GracefulShutdown(t *testing.T) {
	r := New(time.Minute)
	var mu sync.Mutex
	count := 0
	r.OnUpdate(func([]Point) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	lines := make(chan string, 10)
	lines <- "System Initialized"
	lines <- "Sensor: 2500"
	lines <- "garbage"
	lines <- "[12:00:05] ADC: 10"
	lines <- "LED TOGGLE, ADC: 10"
	close(lines)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Process(lines)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Process did not return after channel close")
	}

	points := r.Points()
	require.Len(t, points, 3)
	assert.Equal(t, uint32(2500), points[0].Value)
	assert.True(t, points[2].Toggle)

	mu.Lock()
	assert.Equal(t, 3, count)
	mu.Unlock()

	r.Add(Point{Time: time.Now(), Value: 1})
	mu.Lock()
	assert.Equal(t, 3, count, "no callbacks after shutdown")
	mu.Unlock()

	r.Reset()
	assert.Empty(t, r.Points())
	r.Add(Point{Time: time.Now(), Value: 1})
	mu.Lock()
	assert.Equal(t, 4, count)
	mu.Unlock()
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	s := Summarize([]Point{
		{Time: now, Value: 300},
		{Time: now, Value: 100},
		{Time: now, Value: 9999, Toggle: true},
		{Time: now, Value: 200},
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, uint32(100), s.Min)
	assert.Equal(t, uint32(300), s.Max)
	assert.Equal(t, uint32(200), s.Last)
	assert.InDelta(t, 200.0, s.Mean, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}
