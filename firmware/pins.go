//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Light sensor divider on A1
	PIN_LIGHT = machine.A1

	// Outputs
	PIN_ACTUATOR = machine.D7 // LED driven by the threshold rule and the button
	PIN_STATUS   = machine.LED
	PIN_SERVO    = machine.D8

	// Push button to ground, internal pull-up
	PIN_BUTTON = machine.D9

	// SSD1306 128x64 on the default I2C bus
	OLED_ADDRESS = 0x3C

	// Console: two lines per period at 115200 leaves plenty of headroom
	UART_BAUD_RATE = 115200

	// Servo/PWM period in nanoseconds (50 Hz)
	PWM_PERIOD_NS = 20_000_000
)
