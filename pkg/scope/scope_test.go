package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/sensorpipe/pkg/trace"
)

func TestScopeWidget_ScaleIncludesThreshold(t *testing.T) {
	s := &ScopeWidget{threshold: 2000, window: 10 * time.Second}
	now := time.Now()
	s.display = []trace.Point{
		{Time: now, Value: 100},
		{Time: now.Add(time.Second), Value: 300},
		{Time: now.Add(2 * time.Second), Value: 4095, Toggle: true},
	}
	s.updateScale()

	assert.Equal(t, 0.0, s.yMin)
	assert.InDelta(t, 2190.0, s.yMax, 1e-9)
	assert.Equal(t, 10*time.Second, s.xMax.Sub(s.xMin))
}

func TestScopeWidget_ScaleClampsToADCRange(t *testing.T) {
	s := &ScopeWidget{threshold: 2000, window: time.Second}
	now := time.Now()
	s.display = []trace.Point{
		{Time: now, Value: 0},
		{Time: now.Add(5 * time.Second), Value: 4095},
	}
	s.updateScale()

	assert.Equal(t, 0.0, s.yMin)
	assert.Equal(t, 4095.0, s.yMax)
	assert.Equal(t, 5*time.Second, s.xMax.Sub(s.xMin))
}

func TestPlot_Pos(t *testing.T) {
	now := time.Now()
	p := plot{x: 10, y: 20, w: 100, h: 50, yMin: 0, yMax: 100, xMin: now, xMax: now.Add(10 * time.Second)}

	pos := p.pos(now.Add(5*time.Second), 50)
	assert.InDelta(t, 60, pos.X, 1e-3)
	assert.InDelta(t, 45, pos.Y, 1e-3)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-2.5s", formatTime(-2500*time.Millisecond))
	assert.Equal(t, "-0.25s", formatTime(-250*time.Millisecond))
	assert.Equal(t, "0.00s", formatTime(0))
}
