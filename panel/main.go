package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/logging"
	"github.com/itohio/sensorpipe/pkg/pipeline"
	"github.com/itohio/sensorpipe/pkg/scope"
	"github.com/itohio/sensorpipe/pkg/trace"
)

const scopeWindow = 30 * time.Second

func main() {
	var (
		portFlag   = flag.String("p", "", "Monitor a physical board on this serial port instead of simulating one")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		levelFlag  = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *levelFlag != "" {
		cfg.Log.Level = *levelFlag
	}
	if _, err := logging.Setup(os.Stderr, logging.Options{Level: cfg.Log.Level, TimeFormat: cfg.Log.TimeFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	application := app.NewWithID("com.itohio.sensorpipe")

	window := application.NewWindow("Sensor Pipeline")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		monitor:    *portFlag,
		window:     window,
		recorder:   trace.New(scopeWindow),
		console:    newConsole(200),
		scope:      scope.New(cfg.Logic.Threshold, scopeWindow),
		scopeRate:  newThrottle(16 * time.Millisecond), // ~60 FPS
	}
	state.board = newBoardView(state)
	state.recorder.OnUpdate(func(points []trace.Point) {
		if !state.scopeRate.allow(time.Now()) {
			return
		}
		UpdateWidgetOnMainThread(func() {
			state.scope.UpdateData(points)
		})
	})

	toolbar := createToolbar(state)

	right := container.NewVSplit(state.scope, state.console.object())
	right.Offset = 0.7
	content := container.NewBorder(
		toolbar,
		nil,
		state.board.object(),
		nil,
		right,
	)

	window.SetContent(content)
	window.SetOnClosed(func() { handleStop(state) })
	window.ShowAndRun()
}

// session is one running boot, or one open monitor connection.
type session struct {
	cancel context.CancelFunc
	done   chan struct{} // closed when the session goroutines exit

	sim     *hal.SimBoard
	runtime *pipeline.Runtime
	port    *hal.Serial
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	monitor    string // serial port of a physical board, empty to simulate
	window     fyne.Window

	recorder  *trace.Recorder
	scope     *scope.ScopeWidget
	scopeRate *throttle
	console   *console
	board     *boardView

	startBtn  *widget.Button
	resetBtn  *widget.Button
	buttonBtn *widget.Button
	stats     *widget.Label

	mu      sync.Mutex
	current *session
}

// createToolbar creates the toolbar with Start, Reset, Settings and the board button.
func createToolbar(state *appState) fyne.CanvasObject {
	state.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		handleStart(state)
	})
	state.resetBtn = widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), func() {
		handleReset(state)
	})
	state.resetBtn.Disable()

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.buttonBtn = widget.NewButton("Button", func() {
		handleButton(state)
	})
	state.buttonBtn.Disable()

	state.stats = widget.NewLabel("")

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.startBtn, state.resetBtn, settingsBtn),
		container.NewHBox(state.stats, state.buttonBtn),
		nil,
	)
}

// handleStart boots a fresh simulated board, or connects to the monitored port.
func handleStart(state *appState) {
	state.mu.Lock()
	running := state.current != nil
	state.mu.Unlock()
	if running {
		return
	}

	state.recorder.Reset()
	state.console.clear()
	state.scope.SetThreshold(state.cfg.Logic.Threshold)

	var (
		s   *session
		err error
	)
	if state.monitor != "" {
		s, err = startMonitor(state)
	} else {
		s, err = startSimulation(state)
	}
	if err != nil {
		showError(state, err)
		return
	}

	state.mu.Lock()
	state.current = s
	state.mu.Unlock()

	state.startBtn.Disable()
	state.resetBtn.Enable()
	if s.sim != nil {
		state.buttonBtn.Enable()
	}
	go watchStats(state, s)
}

// handleStop ends the current session and waits for it to wind down.
func handleStop(state *appState) {
	state.mu.Lock()
	s := state.current
	state.current = nil
	state.mu.Unlock()
	if s == nil {
		return
	}

	s.cancel()
	if s.port != nil {
		s.port.Close()
	}
	<-s.done
}

// handleReset resets the board and boots it again.
func handleReset(state *appState) {
	handleStop(state)
	state.startBtn.Enable()
	state.resetBtn.Disable()
	state.buttonBtn.Disable()
	handleStart(state)
}

func handleButton(state *appState) {
	state.mu.Lock()
	s := state.current
	state.mu.Unlock()
	if s == nil || s.sim == nil {
		return
	}
	s.sim.Button.Press()
}

func startSimulation(state *appState) (*session, error) {
	sb := hal.NewSimBoard(state.cfg)
	state.board.attach(sb, state.cfg)
	sb.Serial.OnLine(state.console.append)

	rt, err := pipeline.Boot(pipeline.Options{
		Config: state.cfg,
		Board:  sb.Board(),
		Sinks:  []pipeline.Sink{state.recorder},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to boot simulated board: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		cancel:  cancel,
		done:    make(chan struct{}),
		sim:     sb,
		runtime: rt,
	}
	go func() {
		defer close(s.done)
		if err := rt.Run(ctx); err != nil {
			UpdateWidgetOnMainThread(func() { showError(state, err) })
		}
	}()
	return s, nil
}

func startMonitor(state *appState) (*session, error) {
	port := hal.NewSerial(state.monitor, state.cfg.Serial.Baud, hal.DefaultBufferSize)
	if err := port.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", state.monitor, err)
	}
	state.board.detach()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		cancel: cancel,
		done:   make(chan struct{}),
		port:   port,
	}

	lines := teeLines(ctx, port.Lines(), state.console.append)
	go func() {
		defer close(s.done)
		state.recorder.Process(lines)
	}()
	return s, nil
}

// teeLines hands every line to fn and forwards it until in is closed or ctx
// is cancelled.
func teeLines(ctx context.Context, in <-chan string, fn func(string)) <-chan string {
	out := make(chan string, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-in:
				if !ok {
					return
				}
				fn(line + "\n")
				select {
				case out <- line:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// watchStats refreshes the counters label while s runs.
func watchStats(state *appState, s *session) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		var text string
		if s.runtime != nil {
			st := s.runtime.Stats()
			text = fmt.Sprintf("samples %d  lines %d  toggles %d  drops %d  queue hw %d/%d",
				st.Samples, st.Lines, st.Toggles, st.Drops(), st.InboxHighWater, state.cfg.Queue.Capacity)
		} else {
			text = fmt.Sprintf("monitoring %s  points %d", state.monitor, len(state.recorder.Points()))
		}
		UpdateWidgetOnMainThread(func() { state.stats.SetText(text) })
	}
}
