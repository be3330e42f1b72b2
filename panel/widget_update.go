package main

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// UpdateWidgetOnMainThread schedules a widget update function to run on the main Fyne thread.
// Fyne widgets cannot be updated directly from the kernel's task goroutines.
func UpdateWidgetOnMainThread(callback func()) {
	if callback == nil {
		return
	}
	fyne.Do(callback)
}

func showError(state *appState, err error) {
	dialog.ShowError(err, state.window)
}

// throttle lets at most one update through per interval.
type throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

func (t *throttle) allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// console shows the last lines written to the board's serial port.
type console struct {
	max  int
	rate *throttle

	mu    sync.Mutex
	lines []string

	label  *widget.Label
	scroll *container.Scroll
}

func newConsole(maxLines int) *console {
	c := &console{
		max:   maxLines,
		rate:  newThrottle(50 * time.Millisecond),
		label: widget.NewLabel(""),
	}
	c.label.TextStyle = fyne.TextStyle{Monospace: true}
	c.scroll = container.NewVScroll(c.label)
	return c
}

func (c *console) object() fyne.CanvasObject { return c.scroll }

// append adds a raw line as written by the board, terminator included.
func (c *console) append(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, strings.TrimRight(line, "\r\n"))
	if over := len(c.lines) - c.max; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
	c.mu.Unlock()

	if c.rate.allow(time.Now()) {
		UpdateWidgetOnMainThread(c.refresh)
	}
}

func (c *console) clear() {
	c.mu.Lock()
	c.lines = c.lines[:0]
	c.mu.Unlock()
	c.refresh()
}

func (c *console) refresh() {
	c.mu.Lock()
	text := strings.Join(c.lines, "\n")
	c.mu.Unlock()

	c.label.SetText(text)
	c.scroll.ScrollToBottom()
}

func formatCounts(f float64) string {
	return strconv.Itoa(int(f + 0.5))
}
