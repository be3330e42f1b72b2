//go:build !tinygo

package hal

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSerial(t *testing.T) {
	s := NewSerial("/dev/ttyACM0", 9600, 10)
	require.NotNil(t, s)
	assert.Equal(t, "/dev/ttyACM0", s.port)
	assert.Equal(t, 9600, s.baudRate)
	assert.Equal(t, 10, cap(s.lines))
}

func TestNewSerial_Defaults(t *testing.T) {
	s := NewSerial("/dev/ttyACM0", 0, 0)
	assert.Equal(t, DefaultBaudRate, s.baudRate)
	assert.Equal(t, DefaultBufferSize, cap(s.lines))
}

func TestSerial_WriteNotConnected(t *testing.T) {
	s := NewSerial("/dev/ttyACM0", 0, 0)
	assert.False(t, s.IsConnected())

	_, err := s.Write([]byte("Sensor: 1\r\n"))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, s.Close())
}

func TestScanLines(t *testing.T) {
	in := "System Initialized\r\n\r\nSensor: 2500\r\n  LED TOGGLE, ADC: 2500\r\n"
	out := make(chan string, 10)

	scanLines(context.Background(), strings.NewReader(in), out, slog.Default())
	close(out)

	var got []string
	for l := range out {
		got = append(got, l)
	}
	assert.Equal(t, []string{"System Initialized", "Sensor: 2500", "LED TOGGLE, ADC: 2500"}, got)
}

func TestScanLines_DropsWhenFull(t *testing.T) {
	out := make(chan string, 1)

	scanLines(context.Background(), strings.NewReader("a\nb\nc\n"), out, slog.Default())

	assert.Len(t, out, 1)
	assert.Equal(t, "a", <-out)
}

func TestScanLines_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan string)

	scanLines(ctx, strings.NewReader("a\nb\n"), out, slog.Default())
	assert.Len(t, out, 0)
}
