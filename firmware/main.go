//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"

	"github.com/itohio/sensorpipe/pkg/config"
	"github.com/itohio/sensorpipe/pkg/hal"
	"github.com/itohio/sensorpipe/pkg/logging"
	"github.com/itohio/sensorpipe/pkg/pipeline"
)

func main() {
	// give the USB console a moment so boot logs are not lost
	time.Sleep(2 * time.Second)

	log, err := logging.Setup(machine.Serial, logging.Options{
		Level:  "debug",
		Uptime: true,
		Start:  time.Now(),
	})
	if err != nil {
		panic(err)
	}

	cfg := config.Default()
	cfg.PWM.Mode = config.PWMServo

	board, err := initBoard(cfg, log)
	if err != nil {
		log.Error("board init failed", "err", err)
		halt()
	}

	rt, err := pipeline.Boot(pipeline.Options{
		Config: cfg,
		Board:  board,
		Logger: log,
	})
	if err != nil {
		log.Error("boot failed", "err", err)
		halt()
	}

	// Only returns on a fatal kernel error.
	if err := rt.Run(context.Background()); err != nil {
		log.Error("kernel stopped", "err", err)
	}
	halt()
}

// initBoard configures the hardware and returns it as the pipeline's board.
// Missing optional peripherals (PWM, display) are logged and left out.
func initBoard(cfg *config.Config, log *slog.Logger) (hal.Board, error) {
	PIN_LIGHT.Configure(machine.PinConfig{Mode: machine.PinInput})
	light := machine.ADC{Pin: PIN_LIGHT}
	light.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	PIN_ACTUATOR.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_STATUS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE}); err != nil {
		return hal.Board{}, err
	}

	board := hal.Board{
		ADC:      &adc{dev: light},
		Actuator: pin{PIN_ACTUATOR},
		Status:   pin{PIN_STATUS},
		Button:   &button{PIN_BUTTON},
		Serial:   uart,
	}

	if cfg.PWM.Mode != config.PWMNone {
		pwm, err := newPWM(machine.TCC0, PIN_SERVO)
		if err != nil {
			log.Warn("pwm unavailable", "err", err)
		} else {
			board.PWM = pwm
			cfg.PWM.Top = pwm.Top()
		}
	}

	if cfg.Display.OLED {
		if err := machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
			log.Warn("i2c unavailable", "err", err)
		} else {
			display := ssd1306.NewI2C(machine.I2C0)
			display.Configure(ssd1306.Config{
				Address: OLED_ADDRESS,
				Width:   hal.OLEDWidth,
				Height:  hal.OLEDHeight,
			})
			display.ClearDisplay()
			board.Display = &display
		}
	}

	return board, nil
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
