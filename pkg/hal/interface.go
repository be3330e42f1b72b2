// Package hal is the boundary between the pipeline and the board: ADC,
// digital pins, the button interrupt, PWM, the serial transmitter and the
// display. The pipeline only sees these interfaces; the simulated board, the
// serial port and the TinyGo machine binding implement them. The simulated
// board and the serial port are host-only and left out of TinyGo builds.
package hal

import (
	"errors"
	"io"

	"tinygo.org/x/drivers"
)

// MaxReading is the full-scale value of the 12-bit ADC.
const MaxReading = 4095

// Edge selects which transitions raise a pin interrupt.
type Edge uint8

const (
	EdgeRising Edge = iota
	EdgeFalling
	EdgeToggle
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// ADC is a converter with a conversion-complete interrupt.
type ADC interface {
	// StartConversion starts a single conversion. The conversion handler runs
	// in interrupt context once the result is ready.
	StartConversion() error
	SetConversionHandler(fn func())
	// Value returns the result of the last completed conversion.
	Value() uint16
	Stop()
}

// Pin is a digital output.
type Pin interface {
	Set(high bool)
	Get() bool
}

// InterruptPin is an input that can raise an interrupt.
type InterruptPin interface {
	Get() bool
	SetIRQ(edge Edge, fn func()) error
	ClearIRQ() error
}

// PWM is a single PWM channel. Duty ranges over 0..Top().
type PWM interface {
	Top() uint32
	Set(duty uint32)
}

// Transmitter is the serial console. Writes block until accepted.
type Transmitter = io.Writer

// Display is a pixel display in the TinyGo drivers shape.
type Display interface {
	drivers.Displayer
	ClearDisplay()
}

// Board bundles the peripherals the pipeline runs against. PWM and Display
// may be nil.
type Board struct {
	ADC      ADC
	Actuator Pin
	Status   Pin
	Button   InterruptPin
	PWM      PWM
	Serial   Transmitter
	Display  Display
}

var _ Display = (*OLED)(nil)

// ErrIRQBusy is returned by SetIRQ when a handler is already installed.
var ErrIRQBusy = errors.New("hal: interrupt already configured")
