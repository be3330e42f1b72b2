// Command sim runs the pipeline headless on the simulated board. The console
// goes to stdout, or to a serial port with -p.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/logging"
	"github.com/itohio/sensorpipe/pkg/pipeline"
)

func main() {
	var (
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		portFlag     = flag.String("p", "", "Write the console to a serial port (e.g., COM3 or /dev/ttyUSB0)")
		levelFlag    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		durationFlag = flag.Duration("duration", 0, "Reset the board after this long (0 = run until interrupted)")
		portsFlag    = flag.Bool("ports", false, "List serial ports and exit")
	)
	flag.Parse()

	if *portsFlag {
		listPorts()
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *levelFlag != "" {
		cfg.Log.Level = *levelFlag
	}

	log, err := logging.Setup(os.Stderr, logging.Options{
		Level:      cfg.Log.Level,
		TimeFormat: cfg.Log.TimeFormat,
		Uptime:     true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *durationFlag, log); err != nil {
		log.Error("sim failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, duration time.Duration, log *slog.Logger) error {
	sb := hal.NewSimBoard(cfg)
	board := sb.Board()

	if cfg.Serial.Port != "" {
		port := hal.NewSerial(cfg.Serial.Port, cfg.Serial.Baud, hal.DefaultBufferSize)
		if err := port.Connect(); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", cfg.Serial.Port, err)
		}
		defer port.Close()
		board.Serial = port
		log.Info("console on serial port", "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)
	} else {
		sb.Serial.OnLine(func(line string) { fmt.Fprint(os.Stdout, line) })
	}

	rt, err := pipeline.Boot(pipeline.Options{
		Config: cfg,
		Board:  board,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := rt.Run(ctx); err != nil {
		return err
	}

	s := rt.Stats()
	log.Info("board reset",
		"samples", s.Samples,
		"lines", s.Lines,
		"toggles", s.Toggles,
		"acquisition_timeouts", s.AcquisitionTimeouts,
		"drops", s.Drops(),
		"inbox_high_water", s.InboxHighWater,
		"outbox_high_water", s.OutboxHighWater)
	return nil
}

func listPorts() {
	ports, err := hal.Ports()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
}
