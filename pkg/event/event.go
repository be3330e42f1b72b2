package event

import "fmt"

// Kind discriminates the payload carried by an Event.
type Kind uint8

const (
	// SensorReading carries a raw ADC magnitude.
	SensorReading Kind = iota
	// DisplayUpdate carries the magnitude to present, emitted by the logic task.
	DisplayUpdate
	// Error carries a Code. Reserved: nothing produces it unless
	// sensor.error_on_timeout is enabled.
	Error
	// ButtonPressed is injected by the button interrupt. Value is the press count.
	ButtonPressed
	// ActuatorToggled reports the actuator state after a button toggle (1 active, 0 inactive).
	ActuatorToggled
)

var kindNames = [...]string{
	SensorReading:   "sensor_reading",
	DisplayUpdate:   "display_update",
	Error:           "error",
	ButtonPressed:   "button_pressed",
	ActuatorToggled: "actuator_toggled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Code is the payload of an Error event.
type Code uint32

const (
	CodeNone Code = iota
	// CodeAcquisitionTimeout means the ADC conversion did not finish within its wait budget.
	CodeAcquisitionTimeout
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeAcquisitionTimeout:
		return "acquisition_timeout"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}

// Event is a tagged value passed between tasks through the event queue.
// It is copied by value; the queue never aliases it with another type.
type Event struct {
	Kind  Kind
	Value uint32
}

// Reading builds a SensorReading event.
func Reading(v uint16) Event { return Event{Kind: SensorReading, Value: uint32(v)} }

// Display builds a DisplayUpdate event.
func Display(v uint32) Event { return Event{Kind: DisplayUpdate, Value: v} }

// Fault builds an Error event.
func Fault(c Code) Event { return Event{Kind: Error, Value: uint32(c)} }

// Button builds a ButtonPressed event for n presses.
func Button(n uint32) Event { return Event{Kind: ButtonPressed, Value: n} }

// Toggled builds an ActuatorToggled event.
func Toggled(active bool) Event {
	if active {
		return Event{Kind: ActuatorToggled, Value: 1}
	}
	return Event{Kind: ActuatorToggled, Value: 0}
}

// Code interprets Value as an error code. Only meaningful for Error events.
func (e Event) Code() Code { return Code(e.Value) }

// Active interprets Value as an actuator state. Only meaningful for ActuatorToggled events.
func (e Event) Active() bool { return e.Value != 0 }

func (e Event) String() string {
	switch e.Kind {
	case Error:
		return fmt.Sprintf("%s{%s}", e.Kind, e.Code())
	case ActuatorToggled:
		return fmt.Sprintf("%s{%t}", e.Kind, e.Active())
	default:
		return fmt.Sprintf("%s{%d}", e.Kind, e.Value)
	}
}
