// Package logging builds the colored slog handlers used by every binary.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures a logger.
type Options struct {
	Level      string // debug, info, warn or error
	TimeFormat string
	// Uptime replaces wall-clock timestamps with mm:ss.ss since Start, the way
	// the board prints them.
	Uptime  bool
	Start   time.Time
	NoColor bool
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return l, nil
}

// New returns a tint-backed logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.TimeOnly
	}

	to := &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    opts.NoColor,
	}
	if opts.Uptime {
		start := opts.Start
		if start.IsZero() {
			start = time.Now()
		}
		to.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(Uptime(time.Since(start)))
			}
			return a
		}
	}

	return slog.New(tint.NewHandler(w, to)), nil
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(w io.Writer, opts Options) (*slog.Logger, error) {
	log, err := New(w, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

// Uptime formats an elapsed duration as mm:ss.ss.
func Uptime(elapsed time.Duration) string {
	mins := int(elapsed.Minutes())
	secs := elapsed.Seconds() - float64(mins*60)
	return fmt.Sprintf("%02d:%05.2f", mins, secs)
}
