package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue topologies.
const (
	TopologyShared = "shared" // one queue for sensor, logic and presentation
	TopologySplit  = "split"  // logic inbox and presentation outbox
)

// Interrupt signal modes.
const (
	InterruptQueue  = "queue"
	InterruptPolled = "polled"
)

// PWM modes.
const (
	PWMNone   = "none"
	PWMLinear = "linear"
	PWMServo  = "servo"
)

// Display labels.
const (
	LabelSensor = "Sensor"
	LabelADC    = "ADC"
)

// Simulated waveforms.
const (
	WaveSine     = "sine"
	WaveScripted = "scripted"
	WaveConstant = "constant"
)

// MaxQueueCapacity bounds queue.capacity.
const MaxQueueCapacity = 256

var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Queue     QueueConfig     `yaml:"queue"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Logic     LogicConfig     `yaml:"logic"`
	Display   DisplayConfig   `yaml:"display"`
	Interrupt InterruptConfig `yaml:"interrupt"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	PWM       PWMConfig       `yaml:"pwm"`
	Sim       SimConfig       `yaml:"sim"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig contains serial port configuration. An empty port writes the
// console to stdout.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// QueueConfig sizes the event queue.
type QueueConfig struct {
	Capacity int    `yaml:"capacity"`
	Topology string `yaml:"topology"` // shared or split
}

// SensorConfig contains acquisition timing.
type SensorConfig struct {
	Period         time.Duration `yaml:"period"`
	SampleTimeout  time.Duration `yaml:"sample_timeout"`
	ErrorOnTimeout bool          `yaml:"error_on_timeout"` // post an Error event when a conversion times out
}

// LogicConfig contains the decision rule.
type LogicConfig struct {
	Threshold    uint32        `yaml:"threshold"`
	PollInterval time.Duration `yaml:"poll_interval"` // receive budget in polled interrupt mode
}

// DisplayConfig contains presentation options.
type DisplayConfig struct {
	Label     string `yaml:"label"`
	Timestamp bool   `yaml:"timestamp"`
	OLED      bool   `yaml:"oled"`
}

// InterruptConfig selects how the button reaches the logic task.
type InterruptConfig struct {
	Mode     string        `yaml:"mode"`
	Debounce time.Duration `yaml:"debounce"`
}

// ActuatorConfig contains output pin polarity.
type ActuatorConfig struct {
	ActiveLow bool `yaml:"active_low"`
}

// HeartbeatConfig controls the status blinker. A zero period disables it.
type HeartbeatConfig struct {
	Period time.Duration `yaml:"period"`
}

// PWMConfig maps readings to a PWM duty.
type PWMConfig struct {
	Mode string `yaml:"mode"`
	Top  uint32 `yaml:"top"` // counter top; servo mode assumes a 20ms period
}

// SimConfig contains simulated board configuration.
type SimConfig struct {
	Waveform       string        `yaml:"waveform"`        // sine, scripted or constant
	Offset         float32       `yaml:"offset"`          // counts
	Amplitude      float32       `yaml:"amplitude"`       // counts
	WavePeriod     time.Duration `yaml:"wave_period"`     // sine period
	Noise          float32       `yaml:"noise"`           // counts, uniform +/-
	Values         []uint16      `yaml:"values"`          // scripted readings, repeated
	ConversionTime time.Duration `yaml:"conversion_time"` // delay before the completion interrupt
	MissEvery      int           `yaml:"miss_every"`      // every Nth conversion never completes (0 = never)
	Seed           int64         `yaml:"seed"`
}

// LogConfig contains logging options.
type LogConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "",
			Baud: 115200,
		},
		Queue: QueueConfig{
			Capacity: 16,
			Topology: TopologyShared,
		},
		Sensor: SensorConfig{
			Period:        500 * time.Millisecond,
			SampleTimeout: 100 * time.Millisecond,
		},
		Logic: LogicConfig{
			Threshold:    2000,
			PollInterval: 10 * time.Millisecond,
		},
		Display: DisplayConfig{
			Label: LabelSensor,
			OLED:  true,
		},
		Interrupt: InterruptConfig{
			Mode:     InterruptQueue,
			Debounce: 50 * time.Millisecond,
		},
		Heartbeat: HeartbeatConfig{
			Period: 500 * time.Millisecond,
		},
		PWM: PWMConfig{
			Mode: PWMNone,
			Top:  20000,
		},
		Sim: SimConfig{
			Waveform:       WaveSine,
			Offset:         2048,
			Amplitude:      1500,
			WavePeriod:     10 * time.Second,
			Noise:          40,
			ConversionTime: 2 * time.Millisecond,
		},
		Log: LogConfig{
			Level:      "info",
			TimeFormat: "15:04:05.000",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the pipeline cannot be built with.
func (c *Config) Validate() error {
	if c.Queue.Capacity < 1 || c.Queue.Capacity > MaxQueueCapacity {
		return fmt.Errorf("%w: queue.capacity %d out of range 1..%d", ErrInvalid, c.Queue.Capacity, MaxQueueCapacity)
	}
	switch c.Queue.Topology {
	case TopologyShared, TopologySplit:
	default:
		return fmt.Errorf("%w: unknown queue.topology %q", ErrInvalid, c.Queue.Topology)
	}
	if c.Sensor.Period <= 0 {
		return fmt.Errorf("%w: sensor.period must be positive", ErrInvalid)
	}
	if c.Sensor.SampleTimeout <= 0 {
		return fmt.Errorf("%w: sensor.sample_timeout must be positive", ErrInvalid)
	}
	switch c.Display.Label {
	case LabelSensor, LabelADC:
	default:
		return fmt.Errorf("%w: unknown display.label %q", ErrInvalid, c.Display.Label)
	}
	switch c.Interrupt.Mode {
	case InterruptQueue:
	case InterruptPolled:
		if c.Logic.PollInterval <= 0 {
			return fmt.Errorf("%w: logic.poll_interval must be positive in polled mode", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown interrupt.mode %q", ErrInvalid, c.Interrupt.Mode)
	}
	if c.Interrupt.Debounce < 0 {
		return fmt.Errorf("%w: interrupt.debounce must not be negative", ErrInvalid)
	}
	if c.Heartbeat.Period < 0 {
		return fmt.Errorf("%w: heartbeat.period must not be negative", ErrInvalid)
	}
	switch c.PWM.Mode {
	case PWMNone:
	case PWMLinear, PWMServo:
		if c.PWM.Top == 0 {
			return fmt.Errorf("%w: pwm.top must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown pwm.mode %q", ErrInvalid, c.PWM.Mode)
	}
	switch c.Sim.Waveform {
	case WaveSine, WaveConstant:
	case WaveScripted:
		if len(c.Sim.Values) == 0 {
			return fmt.Errorf("%w: sim.values required for scripted waveform", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown sim.waveform %q", ErrInvalid, c.Sim.Waveform)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = def.Queue.Capacity
	}
	if c.Queue.Topology == "" {
		c.Queue.Topology = def.Queue.Topology
	}

	if c.Sensor.Period == 0 {
		c.Sensor.Period = def.Sensor.Period
	}
	if c.Sensor.SampleTimeout == 0 {
		c.Sensor.SampleTimeout = def.Sensor.SampleTimeout
	}

	if c.Logic.Threshold == 0 {
		c.Logic.Threshold = def.Logic.Threshold
	}
	if c.Logic.PollInterval == 0 {
		c.Logic.PollInterval = def.Logic.PollInterval
	}

	if c.Display.Label == "" {
		c.Display.Label = def.Display.Label
	}
	if c.Interrupt.Mode == "" {
		c.Interrupt.Mode = def.Interrupt.Mode
	}
	if c.PWM.Mode == "" {
		c.PWM.Mode = def.PWM.Mode
	}
	if c.PWM.Top == 0 {
		c.PWM.Top = def.PWM.Top
	}

	if c.Sim.Waveform == "" {
		c.Sim.Waveform = def.Sim.Waveform
	}
	if c.Sim.WavePeriod == 0 {
		c.Sim.WavePeriod = def.Sim.WavePeriod
	}
	if c.Sim.ConversionTime == 0 {
		c.Sim.ConversionTime = def.Sim.ConversionTime
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.TimeFormat == "" {
		c.Log.TimeFormat = def.Log.TimeFormat
	}
}
