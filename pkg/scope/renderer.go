package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/sensorpipe/pkg/trace"
)

var (
	gridColor      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	readingColor   = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	thresholdColor = color.RGBA{R: 220, G: 50, B: 50, A: 255}
	toggleColor    = color.RGBA{R: 0, G: 100, B: 200, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plot is the drawing area and axis ranges of one refresh.
type plot struct {
	x, y, w, h float32
	yMin, yMax float64
	xMin, xMax time.Time
}

func (p plot) pos(t time.Time, v float64) fyne.Position {
	span := p.xMax.Sub(p.xMin).Seconds()
	fx := float32(0)
	if span > 0 {
		fx = float32(t.Sub(p.xMin).Seconds() / span)
	}
	fy := float32((v - p.yMin) / (p.yMax - p.yMin))
	return fyne.NewPos(p.x+fx*p.w, p.y+p.h-fy*p.h)
}

func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

func (r *scopeRenderer) Refresh() {
	s := r.scope
	s.mu.RLock()
	points := s.display
	summary := s.summary
	p := plot{yMin: s.yMin, yMax: s.yMax, xMin: s.xMin, xMax: s.xMax}
	s.mu.RUnlock()

	size := s.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const marginLeft, marginRight, marginTop, marginBottom = 50, 20, 20, 40
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.drawGrid(p)
	r.drawThreshold(p, float64(s.threshold))
	r.drawReadings(p, points)
	r.drawToggles(p, points)
	if summary.Count > 0 {
		r.drawSummary(p, summary)
	}
}

func (r *scopeRenderer) drawGrid(p plot) {
	const numHLines, numVLines = 8, 10

	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.yMax - float64(i)*(p.yMax-p.yMin)/numHLines
		r.text(strconv.Itoa(int(value+0.5)), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := span * time.Duration(i) / numVLines
		r.text(formatTime(offset-span), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

func (r *scopeRenderer) drawThreshold(p plot, threshold float64) {
	if threshold < p.yMin || threshold > p.yMax {
		return
	}
	a := p.pos(p.xMin, threshold)
	b := p.pos(p.xMax, threshold)
	r.line(thresholdColor, 1, a, b)
	r.text("threshold "+strconv.Itoa(int(threshold)), thresholdColor, 10, fyne.TextAlignLeading, fyne.NewPos(a.X+4, a.Y-14))
}

func (r *scopeRenderer) drawReadings(p plot, points []trace.Point) {
	var prev *fyne.Position
	for _, pt := range points {
		if pt.Toggle {
			continue
		}
		pos := p.pos(pt.Time, float64(pt.Value))
		if prev != nil {
			r.line(readingColor, 1.5, *prev, pos)
		}
		prev = &pos
	}
}

func (r *scopeRenderer) drawToggles(p plot, points []trace.Point) {
	for _, pt := range points {
		if !pt.Toggle {
			continue
		}
		x := p.pos(pt.Time, p.yMin).X
		r.line(toggleColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))
	}
}

func (r *scopeRenderer) drawSummary(p plot, s trace.Summary) {
	label := "last " + strconv.FormatUint(uint64(s.Last), 10) +
		"  min " + strconv.FormatUint(uint64(s.Min), 10) +
		"  max " + strconv.FormatUint(uint64(s.Max), 10) +
		"  mean " + strconv.FormatFloat(s.Mean, 'f', 0, 64)
	r.text(label, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) line(c color.Color, width float32, a, b fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = a
	l.Position2 = b
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *scopeRenderer) Destroy() {}

// formatTime renders a time-axis offset, e.g. "-2.5s".
func formatTime(d time.Duration) string {
	decimals := 1
	if d > -time.Second && d < time.Second {
		decimals = 2
	}
	return strconv.FormatFloat(d.Seconds(), 'f', decimals, 64) + "s"
}
