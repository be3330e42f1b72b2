//go:build !tinygo

package hal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the console baud rate of the board.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size of the received lines channel.
	DefaultBufferSize = 100
)

var _ Transmitter = (*Serial)(nil)

var ErrNotConnected = errors.New("serial: not connected")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a console on a host serial port. As a Transmitter it carries the
// pipeline's output to a real terminal; Lines delivers what the other end
// prints, which is how the panel monitors a physical board.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	lines     chan string
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	log       *slog.Logger
}

// NewSerial creates a console for the given port, baud rate and line buffer size.
func NewSerial(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		lines:    make(chan string, bufSize),
		ctx:      ctx,
		cancel:   cancel,
		log:      slog.Default().With("service", "serial", "port", port),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}

// Connect opens the port and starts reading lines.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(s.port, &serial.Mode{
		BaudRate: s.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true

	go s.readLines(port)

	return nil
}

// Close closes the port and the lines channel.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("error closing serial port", "err", err)
		}
		s.conn = nil
	}

	s.connected = false

	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Write transmits p, blocking until the driver accepted all of it.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return 0, ErrNotConnected
	}
	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to %s: %w", s.port, err)
	}
	return n, nil
}

// Lines returns the channel of received lines. It is closed when reading stops.
func (s *Serial) Lines() <-chan string {
	return s.lines
}

func (s *Serial) readLines(conn io.Reader) {
	defer close(s.lines)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in readLines", "panic", r)
		}
	}()

	scanLines(s.ctx, conn, s.lines, s.log)
}

// scanLines forwards trimmed non-empty lines from r to out until r ends or ctx
// is cancelled. A full channel drops the line.
func scanLines(ctx context.Context, r io.Reader, out chan<- string, log *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case out <- line:
		case <-ctx.Done():
			return
		default:
			log.Debug("lines channel full, dropping line")
		}

		if ctx.Err() != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Warn("error reading from serial port", "err", err)
	}
}
