package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/event"
	"github.com/itohio/sensorpipe/pkg/hal"
)

const (
	togglePrefix = "LED TOGGLE, ADC: "
	stampLayout  = "[15:04:05] "
)

var ErrNotAFrame = errors.New("pipeline: not a frame line")

// FormatReading renders a DisplayUpdate line, e.g. "Sensor: 2500\r\n".
func FormatReading(label string, v uint32) string {
	return label + ": " + strconv.FormatUint(uint64(v), 10) + "\r\n"
}

// FormatToggle renders the button toggle line with the last shown reading.
func FormatToggle(last uint32) string {
	return togglePrefix + strconv.FormatUint(uint64(last), 10) + "\r\n"
}

// Stamp renders the "[hh:mm:ss] " line prefix.
func Stamp(t time.Time) string { return t.Format(stampLayout) }

// Line is a console line read back from a board.
type Line struct {
	Kind  event.Kind // DisplayUpdate or ActuatorToggled
	Label string
	Value uint32
	Clock string // hh:mm:ss when the line was stamped
}

// ParseLine parses a console line produced by the presentation task. The
// banner and anything else that is not a frame yield ErrNotAFrame.
// Examples:
//
//	Sensor: 2500
//	[12:00:05] ADC: 2500
//	LED TOGGLE, ADC: 2500
func ParseLine(s string) (Line, error) {
	s = strings.TrimSpace(s)
	var l Line

	if len(s) >= len(stampLayout) && s[0] == '[' && s[9] == ']' {
		if _, err := time.Parse("15:04:05", s[1:9]); err != nil {
			return Line{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		l.Clock = s[1:9]
		s = strings.TrimSpace(s[10:])
	}

	var digits string
	if rest, ok := strings.CutPrefix(s, togglePrefix); ok {
		l.Kind = event.ActuatorToggled
		l.Label = config.LabelADC
		digits = rest
	} else {
		label, rest, ok := strings.Cut(s, ": ")
		if !ok || (label != config.LabelSensor && label != config.LabelADC) {
			return Line{}, ErrNotAFrame
		}
		l.Kind = event.DisplayUpdate
		l.Label = label
		digits = rest
	}

	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return Line{}, fmt.Errorf("invalid reading: %w", err)
	}
	if v > hal.MaxReading {
		return Line{}, fmt.Errorf("reading out of range: %d (max %d)", v, hal.MaxReading)
	}
	l.Value = uint32(v)
	return l, nil
}
