package main

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/hal"
)

var (
	ledOff    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	ledActive = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	ledStatus = color.RGBA{R: 0, G: 200, B: 80, A: 255}
)

// boardView shows the simulated board: the OLED, the actuator and status
// LEDs, and a light override for the ADC.
type boardView struct {
	state *appState

	oled     *canvas.Image
	actuator *canvas.Circle
	status   *canvas.Circle
	override *widget.Check
	light    *widget.Slider
	level    *widget.Label

	mu  sync.Mutex
	sim *hal.SimBoard
}

func newBoardView(state *appState) *boardView {
	v := &boardView{state: state}

	blank := image.NewRGBA(image.Rect(0, 0, hal.OLEDWidth, hal.OLEDHeight))
	v.oled = canvas.NewImageFromImage(blank)
	v.oled.FillMode = canvas.ImageFillContain
	v.oled.ScaleMode = canvas.ImageScalePixels
	v.oled.SetMinSize(fyne.NewSize(hal.OLEDWidth*3, hal.OLEDHeight*3))

	v.actuator = newLED()
	v.status = newLED()

	v.level = widget.NewLabel("2048")
	v.light = widget.NewSlider(0, hal.MaxReading)
	v.light.Step = 1
	v.light.SetValue(2048)
	v.light.OnChanged = func(f float64) {
		v.level.SetText(formatCounts(f))
		v.applyOverride()
	}
	v.override = widget.NewCheck("Override light", func(bool) { v.applyOverride() })

	return v
}

func newLED() *canvas.Circle {
	c := canvas.NewCircle(ledOff)
	c.StrokeColor = color.Gray{Y: 120}
	c.StrokeWidth = 1
	return c
}

func (v *boardView) object() fyne.CanvasObject {
	led := func(c *canvas.Circle, label string) fyne.CanvasObject {
		return container.NewHBox(
			container.NewGridWrap(fyne.NewSize(20, 20), c),
			widget.NewLabel(label),
		)
	}
	return container.NewVBox(
		widget.NewLabelWithStyle("OLED", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		v.oled,
		led(v.actuator, "Actuator"),
		led(v.status, "Heartbeat"),
		widget.NewSeparator(),
		v.override,
		container.NewBorder(nil, nil, nil, v.level, v.light),
	)
}

// attach wires the view to a freshly built board. Callbacks run on the kernel
// and timer goroutines, so every widget update goes through the main thread.
func (v *boardView) attach(sb *hal.SimBoard, cfg *config.Config) {
	v.mu.Lock()
	v.sim = sb
	v.mu.Unlock()

	activeLow := cfg.Actuator.ActiveLow
	sb.Actuator.OnChange(func(high bool) {
		on := high != activeLow
		UpdateWidgetOnMainThread(func() { setLED(v.actuator, on, ledActive) })
	})
	sb.Status.OnChange(func(high bool) {
		UpdateWidgetOnMainThread(func() { setLED(v.status, high, ledStatus) })
	})
	sb.OLED.OnDisplay(func(img image.Image) {
		UpdateWidgetOnMainThread(func() {
			v.oled.Image = img
			v.oled.Refresh()
		})
	})

	setLED(v.actuator, false, ledActive)
	setLED(v.status, false, ledStatus)
	v.applyOverride()
}

// detach forgets the simulated board; the light controls have nothing to drive.
func (v *boardView) detach() {
	v.mu.Lock()
	v.sim = nil
	v.mu.Unlock()

	v.oled.Image = image.NewRGBA(image.Rect(0, 0, hal.OLEDWidth, hal.OLEDHeight))
	v.oled.Refresh()
	setLED(v.actuator, false, ledActive)
	setLED(v.status, false, ledStatus)
}

func (v *boardView) applyOverride() {
	v.mu.Lock()
	sb := v.sim
	v.mu.Unlock()
	if sb == nil {
		return
	}
	if v.override.Checked {
		sb.ADC.Force(uint16(v.light.Value))
	} else {
		sb.ADC.Release()
	}
}

func setLED(c *canvas.Circle, on bool, onColor color.Color) {
	if on {
		c.FillColor = onColor
	} else {
		c.FillColor = ledOff
	}
	c.Refresh()
}
