//go:build !tinygo

package hal

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sensorpipe/pkg/config"
)

func scripted(values ...uint16) *config.SimConfig {
	return &config.SimConfig{
		Waveform:       config.WaveScripted,
		Values:         values,
		ConversionTime: time.Millisecond,
		Seed:           1,
	}
}

func TestSimADC_ConversionInterrupt(t *testing.T) {
	adc := NewSimADC(scripted(2500, 1000))
	done := make(chan uint16, 2)
	adc.SetConversionHandler(func() { done <- adc.Value() })

	for _, want := range []uint16{2500, 1000} {
		require.NoError(t, adc.StartConversion())
		select {
		case v := <-done:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("conversion did not complete")
		}
	}
	assert.Equal(t, 2, adc.Conversions())
}

func TestSimADC_ScriptedRepeats(t *testing.T) {
	adc := NewSimADC(scripted(1, 2))
	var got []uint16
	for i := 0; i < 5; i++ {
		adc.mu.Lock()
		got = append(got, adc.sampleLocked())
		adc.mu.Unlock()
	}
	assert.Equal(t, []uint16{1, 2, 1, 2, 1}, got)
}

func TestSimADC_MissEvery(t *testing.T) {
	cfg := scripted(100)
	cfg.MissEvery = 2
	adc := NewSimADC(cfg)
	var fired atomic.Int32
	adc.SetConversionHandler(func() { fired.Add(1) })

	for i := 0; i < 4; i++ {
		require.NoError(t, adc.StartConversion())
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(2), fired.Load())
}

func TestSimADC_StopCancelsConversion(t *testing.T) {
	cfg := scripted(100)
	cfg.ConversionTime = 20 * time.Millisecond
	adc := NewSimADC(cfg)
	var fired atomic.Bool
	adc.SetConversionHandler(func() { fired.Store(true) })

	require.NoError(t, adc.StartConversion())
	adc.Stop()
	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestSimADC_SineStaysInRange(t *testing.T) {
	adc := NewSimADC(&config.SimConfig{
		Waveform:   config.WaveSine,
		Offset:     2048,
		Amplitude:  4000,
		WavePeriod: time.Millisecond,
		Noise:      500,
		Seed:       7,
	})
	for i := 0; i < 200; i++ {
		adc.mu.Lock()
		v := adc.sampleLocked()
		adc.mu.Unlock()
		assert.LessOrEqual(t, v, uint16(MaxReading))
	}
}

func TestSimADC_Force(t *testing.T) {
	adc := NewSimADC(scripted(1))
	adc.Force(9999)
	adc.mu.Lock()
	assert.Equal(t, uint16(MaxReading), adc.sampleLocked())
	adc.mu.Unlock()

	adc.Release()
	adc.mu.Lock()
	assert.Equal(t, uint16(1), adc.sampleLocked())
	adc.mu.Unlock()
}

func TestClampReading(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{-5, 0},
		{0, 0},
		{2000.4, 2000},
		{2000.6, 2001},
		{4095, 4095},
		{5000, 4095},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampReading(tt.in), "in=%v", tt.in)
	}
}

func TestSimPin(t *testing.T) {
	p := NewSimPin("led")
	var seen []bool
	p.OnChange(func(high bool) { seen = append(seen, high) })

	p.Set(true)
	p.Set(true)
	p.Set(false)

	assert.False(t, p.Get())
	assert.Equal(t, uint64(2), p.Changes())
	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, "led", p.Name())
}

func TestSimButton_Edges(t *testing.T) {
	tests := []struct {
		edge Edge
		want int
	}{
		{EdgeFalling, 1},
		{EdgeRising, 1},
		{EdgeToggle, 2},
	}
	for _, tt := range tests {
		t.Run(tt.edge.String(), func(t *testing.T) {
			b := NewSimButton()
			n := 0
			require.NoError(t, b.SetIRQ(tt.edge, func() { n++ }))
			assert.True(t, b.Get())

			b.Press()
			assert.Equal(t, tt.want, n)
			assert.True(t, b.Get())
		})
	}
}

func TestSimButton_IRQ(t *testing.T) {
	b := NewSimButton()
	require.NoError(t, b.SetIRQ(EdgeFalling, func() {}))
	assert.ErrorIs(t, b.SetIRQ(EdgeFalling, func() {}), ErrIRQBusy)

	require.NoError(t, b.ClearIRQ())
	assert.NoError(t, b.SetIRQ(EdgeRising, func() {}))
}

func TestSimPWM_ClampsToTop(t *testing.T) {
	p := NewSimPWM(1000)
	p.Set(500)
	assert.Equal(t, uint32(500), p.Duty())
	p.Set(5000)
	assert.Equal(t, uint32(1000), p.Duty())
}

func TestSimSerial_Lines(t *testing.T) {
	s := NewSimSerial()
	var got []string
	s.OnLine(func(l string) { got = append(got, l) })

	_, err := s.Write([]byte("Sensor: 25"))
	require.NoError(t, err)
	assert.Empty(t, s.Lines())

	_, err = s.Write([]byte("00\r\nADC: 1\r\npartial"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Sensor: 2500\r\n", "ADC: 1\r\n"}, s.Lines())
	assert.Equal(t, []string{"Sensor: 2500\r\n", "ADC: 1\r\n"}, got)
	assert.Equal(t, "Sensor: 2500\r\nADC: 1\r\npartial", s.String())
}

func TestNewSimBoard(t *testing.T) {
	sb := NewSimBoard(config.Default())
	b := sb.Board()

	assert.NotNil(t, b.ADC)
	assert.NotNil(t, b.PWM)
	assert.NotNil(t, b.Display)
	assert.Equal(t, uint32(20000), b.PWM.Top())
	w, h := b.Display.Size()
	assert.Equal(t, int16(OLEDWidth), w)
	assert.Equal(t, int16(OLEDHeight), h)
}
