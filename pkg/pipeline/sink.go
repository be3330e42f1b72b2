package pipeline

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"tinygo.org/x/tinyfont"

	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/hal"
)

// Sink receives rendered frames from the presentation task. Show may block;
// it runs without the CPU and only delays the frames behind it.
type Sink interface {
	Show(f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f Frame) error

func (fn SinkFunc) Show(f Frame) error { return fn(f) }

// SerialSink writes each frame's line to a transmitter.
type SerialSink struct {
	W io.Writer
}

func (s SerialSink) Show(f Frame) error {
	if _, err := io.WriteString(s.W, f.Line); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	return nil
}

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// OLEDSink draws the light level and the actuator state on a display.
type OLEDSink struct {
	d    hal.Display
	font tinyfont.Fonter

	toggled bool
	active  bool
}

func NewOLEDSink(d hal.Display) *OLEDSink {
	return &OLEDSink{d: d, font: &tinyfont.TomThumb}
}

func (s *OLEDSink) Show(f Frame) error {
	if f.Kind == event.ActuatorToggled {
		s.toggled = true
		s.active = f.Active
	}

	s.d.ClearDisplay()
	tinyfont.WriteLine(s.d, s.font, 2, 10, "Light: "+strconv.FormatUint(uint64(f.Value), 10), white)
	if s.toggled {
		state := "LED: OFF"
		if s.active {
			state = "LED: ON"
		}
		tinyfont.WriteLine(s.d, s.font, 2, 22, state, white)
	}
	if err := s.d.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
