package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Level: "warn", NoColor: true})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud", "task", "sensor")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "task=sensor")
}

func TestNew_Uptime(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{
		Level:   "info",
		Uptime:  true,
		Start:   time.Now().Add(-61 * time.Second),
		NoColor: true,
	})
	require.NoError(t, err)

	log.Info("tick")
	assert.Contains(t, buf.String(), "01:01.")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "00:00.50", Uptime(500*time.Millisecond))
	assert.Equal(t, "02:03.00", Uptime(2*time.Minute+3*time.Second))
}
