//go:build !tinygo

package hal

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/sensorpipe/pkg/config"
)

var (
	_ ADC          = (*SimADC)(nil)
	_ Pin          = (*SimPin)(nil)
	_ InterruptPin = (*SimButton)(nil)
	_ PWM          = (*SimPWM)(nil)
	_ Transmitter  = (*SimSerial)(nil)
)

// SimADC simulates a 12-bit converter whose completion interrupt fires
// ConversionTime after StartConversion.
type SimADC struct {
	cfg config.SimConfig

	mu          sync.Mutex
	handler     func()
	timer       *time.Timer
	latched     uint16
	pending     uint16
	start       time.Time
	rng         *rand.Rand
	next        int
	conversions int
	forced      bool
	force       uint16
}

// NewSimADC creates a simulated converter. A nil cfg uses the default
// simulation settings.
func NewSimADC(cfg *config.SimConfig) *SimADC {
	if cfg == nil {
		def := config.Default().Sim
		cfg = &def
	}
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SimADC{
		cfg:   *cfg,
		start: time.Now(),
		rng:   rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

func (a *SimADC) SetConversionHandler(fn func()) {
	a.mu.Lock()
	a.handler = fn
	a.mu.Unlock()
}

// StartConversion samples the waveform and schedules the completion
// interrupt. Every MissEvery-th conversion never completes.
func (a *SimADC) StartConversion() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.conversions++
	a.pending = a.sampleLocked()
	if a.cfg.MissEvery > 0 && a.conversions%a.cfg.MissEvery == 0 {
		return nil
	}

	a.timer = time.AfterFunc(a.cfg.ConversionTime, a.complete)
	return nil
}

func (a *SimADC) complete() {
	a.mu.Lock()
	a.latched = a.pending
	a.timer = nil
	fn := a.handler
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (a *SimADC) Value() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latched
}

// Stop aborts a conversion in flight.
func (a *SimADC) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Force pins every following reading to v until Release.
func (a *SimADC) Force(v uint16) {
	a.mu.Lock()
	a.forced = true
	a.force = clampReading(float32(v))
	a.mu.Unlock()
}

// Release returns to the configured waveform.
func (a *SimADC) Release() {
	a.mu.Lock()
	a.forced = false
	a.mu.Unlock()
}

// Conversions returns how many conversions were started.
func (a *SimADC) Conversions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversions
}

func (a *SimADC) sampleLocked() uint16 {
	if a.forced {
		return a.force
	}

	switch a.cfg.Waveform {
	case config.WaveScripted:
		if len(a.cfg.Values) == 0 {
			return 0
		}
		v := a.cfg.Values[a.next%len(a.cfg.Values)]
		a.next++
		return clampReading(float32(v))
	case config.WaveConstant:
		return clampReading(a.cfg.Offset + a.noiseLocked())
	default:
		t := float32(time.Since(a.start).Seconds())
		period := float32(a.cfg.WavePeriod.Seconds())
		if period <= 0 {
			period = 1
		}
		v := a.cfg.Offset + a.cfg.Amplitude*math32.Sin(2*math32.Pi*t/period)
		return clampReading(v + a.noiseLocked())
	}
}

func (a *SimADC) noiseLocked() float32 {
	if a.cfg.Noise == 0 {
		return 0
	}
	return a.cfg.Noise * (2*a.rng.Float32() - 1)
}

func clampReading(v float32) uint16 {
	v = math32.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > MaxReading {
		return MaxReading
	}
	return uint16(v)
}

// SimPin is a digital output that records its level.
type SimPin struct {
	name    string
	level   atomic.Bool
	changes atomic.Uint64

	mu       sync.Mutex
	onChange func(high bool)
}

func NewSimPin(name string) *SimPin { return &SimPin{name: name} }

func (p *SimPin) Name() string { return p.name }

func (p *SimPin) Set(high bool) {
	if p.level.Swap(high) == high {
		return
	}
	p.changes.Add(1)

	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(high)
	}
}

func (p *SimPin) Get() bool { return p.level.Load() }

// Changes returns the number of level transitions.
func (p *SimPin) Changes() uint64 { return p.changes.Load() }

// OnChange registers a callback run on every level transition.
func (p *SimPin) OnChange(fn func(high bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SimButton is a pulled-up push button. Press drives it low and back, firing
// the registered interrupt on the matching edges in the caller's goroutine,
// which plays the part of interrupt context.
type SimButton struct {
	mu      sync.Mutex
	pressed bool
	edge    Edge
	handler func()
}

func NewSimButton() *SimButton { return &SimButton{} }

// Get reads the line level; idle is high.
func (b *SimButton) Get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.pressed
}

func (b *SimButton) SetIRQ(edge Edge, fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return ErrIRQBusy
	}
	b.edge = edge
	b.handler = fn
	return nil
}

func (b *SimButton) ClearIRQ() error {
	b.mu.Lock()
	b.handler = nil
	b.mu.Unlock()
	return nil
}

// Press performs a full press and release.
func (b *SimButton) Press() {
	b.set(true)
	b.set(false)
}

func (b *SimButton) set(pressed bool) {
	b.mu.Lock()
	if b.pressed == pressed {
		b.mu.Unlock()
		return
	}
	b.pressed = pressed
	fn := b.handler
	fire := b.edge == EdgeToggle ||
		(b.edge == EdgeFalling && pressed) ||
		(b.edge == EdgeRising && !pressed)
	b.mu.Unlock()

	if fire && fn != nil {
		fn()
	}
}

// SimPWM records the last duty written.
type SimPWM struct {
	top  uint32
	duty atomic.Uint32
}

func NewSimPWM(top uint32) *SimPWM { return &SimPWM{top: top} }

func (p *SimPWM) Top() uint32     { return p.top }
func (p *SimPWM) Set(duty uint32) { p.duty.Store(min(duty, p.top)) }
func (p *SimPWM) Duty() uint32    { return p.duty.Load() }

// SimSerial captures console output.
type SimSerial struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	onLine func(line string)
	line   []byte
}

func NewSimSerial() *SimSerial { return &SimSerial{} }

func (s *SimSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.buf.Write(p)
	var done []string
	for _, c := range p {
		s.line = append(s.line, c)
		if c == '\n' {
			done = append(done, string(s.line))
			s.line = s.line[:0]
		}
	}
	fn := s.onLine
	s.mu.Unlock()

	if fn != nil {
		for _, l := range done {
			fn(l)
		}
	}
	return len(p), nil
}

// String returns everything written so far.
func (s *SimSerial) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Lines returns the complete CRLF-terminated lines written so far.
func (s *SimSerial) Lines() []string {
	out := s.String()
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[:i+1]
	} else {
		return nil
	}
	lines := strings.SplitAfter(out, "\n")
	return lines[:len(lines)-1]
}

// OnLine registers a callback run for every complete line.
func (s *SimSerial) OnLine(fn func(line string)) {
	s.mu.Lock()
	s.onLine = fn
	s.mu.Unlock()
}

// SimBoard is a fully simulated board.
type SimBoard struct {
	ADC      *SimADC
	Actuator *SimPin
	Status   *SimPin
	Button   *SimButton
	PWM      *SimPWM
	Serial   *SimSerial
	OLED     *OLED
}

// NewSimBoard builds a simulated board for cfg.
func NewSimBoard(cfg *config.Config) *SimBoard {
	return &SimBoard{
		ADC:      NewSimADC(&cfg.Sim),
		Actuator: NewSimPin("actuator"),
		Status:   NewSimPin("status"),
		Button:   NewSimButton(),
		PWM:      NewSimPWM(cfg.PWM.Top),
		Serial:   NewSimSerial(),
		OLED:     NewOLED(OLEDWidth, OLEDHeight),
	}
}

// Board returns the peripherals as the pipeline sees them.
func (b *SimBoard) Board() Board {
	return Board{
		ADC:      b.ADC,
		Actuator: b.Actuator,
		Status:   b.Status,
		Button:   b.Button,
		PWM:      b.PWM,
		Serial:   b.Serial,
		Display:  b.OLED,
	}
}
