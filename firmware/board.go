//go:build tinygo

package main

import (
	"machine"
	"sync"

	"github.com/itohio/sensorpipe/pkg/hal"
)

var (
	_ hal.ADC          = (*adc)(nil)
	_ hal.Pin          = pin{}
	_ hal.InterruptPin = (*button)(nil)
	_ hal.PWM          = (*pwmChannel)(nil)
)

// adc runs one blocking machine.ADC read per conversion and reports
// completion from a goroutine, standing in for the end-of-conversion
// interrupt.
type adc struct {
	dev machine.ADC

	mu      sync.Mutex
	value   uint16
	handler func()
}

func (a *adc) SetConversionHandler(fn func()) {
	a.mu.Lock()
	a.handler = fn
	a.mu.Unlock()
}

func (a *adc) StartConversion() error {
	go func() {
		// machine.ADC is left aligned to 16 bits.
		v := a.dev.Get() >> (16 - ADC_RESOLUTION)

		a.mu.Lock()
		a.value = v
		fn := a.handler
		a.mu.Unlock()
		if fn != nil {
			fn()
		}
	}()
	return nil
}

func (a *adc) Value() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *adc) Stop() {}

type pin struct{ machine.Pin }

func (p pin) Set(high bool) { p.Pin.Set(high) }
func (p pin) Get() bool     { return p.Pin.Get() }

type button struct{ machine.Pin }

func (b *button) Get() bool { return b.Pin.Get() }

func (b *button) SetIRQ(edge hal.Edge, fn func()) error {
	change := machine.PinFalling
	switch edge {
	case hal.EdgeRising:
		change = machine.PinRising
	case hal.EdgeToggle:
		change = machine.PinToggle
	}
	return b.Pin.SetInterrupt(change, func(machine.Pin) { fn() })
}

func (b *button) ClearIRQ() error {
	return b.Pin.SetInterrupt(0, nil)
}

// timer is the subset of a machine PWM peripheral used for one channel.
type timer interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type pwmChannel struct {
	t  timer
	ch uint8
}

func newPWM(t timer, p machine.Pin) (*pwmChannel, error) {
	if err := t.Configure(machine.PWMConfig{Period: PWM_PERIOD_NS}); err != nil {
		return nil, err
	}
	ch, err := t.Channel(p)
	if err != nil {
		return nil, err
	}
	return &pwmChannel{t: t, ch: ch}, nil
}

func (p *pwmChannel) Top() uint32     { return p.t.Top() }
func (p *pwmChannel) Set(duty uint32) { p.t.Set(p.ch, duty) }
