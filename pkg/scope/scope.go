package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/trace"
)

// ScopeWidget is a custom Fyne widget plotting presented readings against the
// decision threshold, with button toggles marked.
type ScopeWidget struct {
	widget.BaseWidget

	threshold uint32
	window    time.Duration

	// Data (protected by mu)
	mu      sync.RWMutex
	points  []trace.Point
	summary trace.Summary

	// Display buffer (reused for downsampling)
	display []trace.Point

	// Scaling
	yMin, yMax float64
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget showing window worth of readings.
func New(threshold uint32, window time.Duration) *ScopeWidget {
	s := &ScopeWidget{
		threshold:        threshold,
		window:           window,
		display:          make([]trace.Point, 0, 1000),
		maxDisplayPoints: 1000,
	}
	s.ExtendBaseWidget(s)
	s.updateScale()
	s.Refresh()
	return s
}

// UpdateData replaces the plotted points.
// This should be called from the trace callback using fyne.Do().
func (s *ScopeWidget) UpdateData(points []trace.Point) {
	s.mu.Lock()
	s.display = trace.Downsample(s.display, points, s.maxDisplayPoints)
	s.points = points
	s.summary = trace.Summarize(points)
	s.updateScale()
	s.mu.Unlock()

	s.Refresh()
}

// SetThreshold moves the threshold line.
func (s *ScopeWidget) SetThreshold(threshold uint32) {
	s.mu.Lock()
	s.threshold = threshold
	s.updateScale()
	s.mu.Unlock()

	s.Refresh()
}

// updateScale fits the Y axis to the data and the threshold, clamped to the
// ADC range, and the X axis to at least one window.
func (s *ScopeWidget) updateScale() {
	lo, hi := float64(s.threshold), float64(s.threshold)
	for _, p := range s.display {
		if p.Toggle {
			continue
		}
		lo = min(lo, float64(p.Value))
		hi = max(hi, float64(p.Value))
	}
	span := hi - lo
	if span < 100 {
		span = 100
	}
	margin := span * 0.1
	s.yMin = max(0, lo-margin)
	s.yMax = min(hal.MaxReading, hi+margin)
	if s.yMax <= s.yMin {
		s.yMin, s.yMax = 0, hal.MaxReading
	}

	if len(s.display) == 0 {
		s.xMax = time.Now()
		s.xMin = s.xMax.Add(-s.window)
		return
	}
	s.xMax = s.display[len(s.display)-1].Time
	s.xMin = s.display[0].Time
	if s.xMax.Sub(s.xMin) < s.window {
		s.xMin = s.xMax.Add(-s.window)
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
