package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/hal"
)

// showSettingsDialog displays a settings dialog with tabs for the configuration.
// Changes take effect on the next Start or Reset.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createPipelineTab(state),
		createLogicTab(state),
		createSimulationTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applySettings validates edit applied to a copy of the configuration, then
// adopts and saves it.
func applySettings(state *appState, edit func(c *config.Config)) {
	next := *state.cfg
	edit(&next)
	if err := next.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	*state.cfg = next
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab. The port is where the
// headless sim writes its console.
func createSerialTab(state *appState) *container.TabItem {
	var names []string
	if ports, err := hal.Ports(); err == nil {
		for _, p := range ports {
			names = append(names, p.Name)
		}
	}
	if cur := state.cfg.Serial.Port; cur != "" && !slices.Contains(names, cur) {
		names = append(names, cur)
	}

	portSelect := widget.NewSelectEntry(names)
	portSelect.SetText(state.cfg.Serial.Port)

	baudSelect := widget.NewSelect([]string{"9600", "57600", "115200", "230400"}, nil)
	baudSelect.SetSelected(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudSelect},
		},
		OnSubmit: func() {
			applySettings(state, func(c *config.Config) {
				c.Serial.Port = strings.TrimSpace(portSelect.Text)
				if baud, err := strconv.Atoi(baudSelect.Selected); err == nil {
					c.Serial.Baud = baud
				}
			})
		},
	}

	return container.NewTabItem("Serial", form)
}

// createPipelineTab creates the queue and interrupt configuration tab.
func createPipelineTab(state *appState) *container.TabItem {
	capacityEntry := widget.NewEntry()
	capacityEntry.SetText(strconv.Itoa(state.cfg.Queue.Capacity))

	topology := widget.NewRadioGroup([]string{config.TopologyShared, config.TopologySplit}, nil)
	topology.Horizontal = true
	topology.SetSelected(state.cfg.Queue.Topology)

	mode := widget.NewRadioGroup([]string{config.InterruptQueue, config.InterruptPolled}, nil)
	mode.Horizontal = true
	mode.SetSelected(state.cfg.Interrupt.Mode)

	debounceEntry := widget.NewEntry()
	debounceEntry.SetText(state.cfg.Interrupt.Debounce.String())

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Sensor.Period.String())

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Sensor.SampleTimeout.String())

	heartbeatEntry := widget.NewEntry()
	heartbeatEntry.SetText(state.cfg.Heartbeat.Period.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Queue Capacity", Widget: capacityEntry},
			{Text: "Topology", Widget: topology},
			{Text: "Button Delivery", Widget: mode},
			{Text: "Debounce", Widget: debounceEntry},
			{Text: "Sample Period", Widget: periodEntry},
			{Text: "Sample Timeout", Widget: timeoutEntry},
			{Text: "Heartbeat (0=off)", Widget: heartbeatEntry},
		},
		OnSubmit: func() {
			applySettings(state, func(c *config.Config) {
				if n, err := strconv.Atoi(capacityEntry.Text); err == nil {
					c.Queue.Capacity = n
				}
				c.Queue.Topology = topology.Selected
				c.Interrupt.Mode = mode.Selected
				if d, err := time.ParseDuration(debounceEntry.Text); err == nil {
					c.Interrupt.Debounce = d
				}
				if d, err := time.ParseDuration(periodEntry.Text); err == nil {
					c.Sensor.Period = d
				}
				if d, err := time.ParseDuration(timeoutEntry.Text); err == nil {
					c.Sensor.SampleTimeout = d
				}
				if d, err := time.ParseDuration(heartbeatEntry.Text); err == nil {
					c.Heartbeat.Period = d
				}
			})
		},
	}

	return container.NewTabItem("Pipeline", form)
}

// createLogicTab creates the decision and presentation configuration tab.
func createLogicTab(state *appState) *container.TabItem {
	thresholdEntry := widget.NewEntry()
	thresholdEntry.SetText(strconv.FormatUint(uint64(state.cfg.Logic.Threshold), 10))

	activeLow := widget.NewCheck("", nil)
	activeLow.SetChecked(state.cfg.Actuator.ActiveLow)

	label := widget.NewSelect([]string{config.LabelSensor, config.LabelADC}, nil)
	label.SetSelected(state.cfg.Display.Label)

	timestamp := widget.NewCheck("", nil)
	timestamp.SetChecked(state.cfg.Display.Timestamp)

	oled := widget.NewCheck("", nil)
	oled.SetChecked(state.cfg.Display.OLED)

	pwm := widget.NewSelect([]string{config.PWMNone, config.PWMLinear, config.PWMServo}, nil)
	pwm.SetSelected(state.cfg.PWM.Mode)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Threshold", Widget: thresholdEntry},
			{Text: "Actuator Active Low", Widget: activeLow},
			{Text: "Line Label", Widget: label},
			{Text: "Timestamp Lines", Widget: timestamp},
			{Text: "OLED", Widget: oled},
			{Text: "PWM", Widget: pwm},
		},
		OnSubmit: func() {
			applySettings(state, func(c *config.Config) {
				if th, err := strconv.ParseUint(thresholdEntry.Text, 10, 32); err == nil {
					c.Logic.Threshold = uint32(th)
				}
				c.Actuator.ActiveLow = activeLow.Checked
				c.Display.Label = label.Selected
				c.Display.Timestamp = timestamp.Checked
				c.Display.OLED = oled.Checked
				c.PWM.Mode = pwm.Selected
			})
		},
	}

	return container.NewTabItem("Logic", form)
}

// createSimulationTab creates the simulated sensor configuration tab.
func createSimulationTab(state *appState) *container.TabItem {
	waveform := widget.NewSelect([]string{config.WaveSine, config.WaveConstant, config.WaveScripted}, nil)
	waveform.SetSelected(state.cfg.Sim.Waveform)

	offsetEntry := widget.NewEntry()
	offsetEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Sim.Offset))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Sim.Amplitude))

	wavePeriodEntry := widget.NewEntry()
	wavePeriodEntry.SetText(state.cfg.Sim.WavePeriod.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Sim.Noise))

	missEntry := widget.NewEntry()
	missEntry.SetText(strconv.Itoa(state.cfg.Sim.MissEvery))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Waveform", Widget: waveform},
			{Text: "Offset (counts)", Widget: offsetEntry},
			{Text: "Amplitude (counts)", Widget: amplitudeEntry},
			{Text: "Wave Period", Widget: wavePeriodEntry},
			{Text: "Noise (counts)", Widget: noiseEntry},
			{Text: "Miss Every Nth (0=never)", Widget: missEntry},
		},
		OnSubmit: func() {
			applySettings(state, func(c *config.Config) {
				c.Sim.Waveform = waveform.Selected
				if f, err := strconv.ParseFloat(offsetEntry.Text, 32); err == nil {
					c.Sim.Offset = float32(f)
				}
				if f, err := strconv.ParseFloat(amplitudeEntry.Text, 32); err == nil {
					c.Sim.Amplitude = float32(f)
				}
				if d, err := time.ParseDuration(wavePeriodEntry.Text); err == nil {
					c.Sim.WavePeriod = d
				}
				if f, err := strconv.ParseFloat(noiseEntry.Text, 32); err == nil {
					c.Sim.Noise = float32(f)
				}
				if n, err := strconv.Atoi(missEntry.Text); err == nil {
					c.Sim.MissEvery = n
				}
			})
		},
	}

	return container.NewTabItem("Simulation", form)
}
