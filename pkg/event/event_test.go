package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		got  Event
		want Event
	}{
		{"reading", Reading(2500), Event{Kind: SensorReading, Value: 2500}},
		{"display", Display(1000), Event{Kind: DisplayUpdate, Value: 1000}},
		{"fault", Fault(CodeAcquisitionTimeout), Event{Kind: Error, Value: 1}},
		{"button", Button(1), Event{Kind: ButtonPressed, Value: 1}},
		{"toggled on", Toggled(true), Event{Kind: ActuatorToggled, Value: 1}},
		{"toggled off", Toggled(false), Event{Kind: ActuatorToggled, Value: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "sensor_reading{2500}", Reading(2500).String())
	assert.Equal(t, "error{acquisition_timeout}", Fault(CodeAcquisitionTimeout).String())
	assert.Equal(t, "actuator_toggled{true}", Toggled(true).String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.Equal(t, "code(9)", Code(9).String())
}

func TestPayloadAccessors(t *testing.T) {
	assert.Equal(t, CodeAcquisitionTimeout, Fault(CodeAcquisitionTimeout).Code())
	assert.True(t, Toggled(true).Active())
	assert.False(t, Toggled(false).Active())
}
