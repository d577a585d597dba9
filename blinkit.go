package blinkit

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/blinkit/drivers"
)

const defaultPollInterval = 10 * time.Millisecond

const defaultButtonPin = 17
const defaultLedPin = 27

// BlinkKit ties debounced buttons to blink sequences on leds. It owns
// the io drivers and the polling loop; both hardware lines are claimed
// at startup and released on Close.
type BlinkKit struct {
	Name   string
	PollMs uint

	Buttons []*Button
	Leds    []*Led

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver

	ioDrivers map[string]drivers.IoDriver
	ticker    *time.Ticker
}

type IO interface {
	Init(driver drivers.IoDriver) error
	GetDriverName() string
	Sync(ctx context.Context, now time.Time) error
}

// DefaultKit returns the wiring of the reference board: a pull-up
// button on GPIO 17 blinking a led on GPIO 27.
func DefaultKit() *BlinkKit {
	return &BlinkKit{
		Name: "blinkit",
		Gpio: &drivers.GpIO{InvertInputs: true},
		Buttons: []*Button{
			{Name: "button", DriverName: "gpio", InPin: defaultButtonPin, Blinks: []string{"led"}},
		},
		Leds: []*Led{
			{Name: "led", DriverName: "gpio", OutPin: defaultLedPin},
		},
	}
}

func (bk *BlinkKit) getInPins(driverName string) (pins []uint16) {
	for _, io := range bk.Buttons {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = append(pins, io.InPin)
		}
	}

	return
}

func (bk *BlinkKit) getOutPins(driverName string) (pins []uint16) {
	for _, io := range bk.Leds {
		if strings.EqualFold(io.DriverName, driverName) {
			pins = append(pins, io.OutPin)
		}
	}

	return
}

func (bk *BlinkKit) getIos() []IO {
	ios := []IO{}
	for _, but := range bk.Buttons {
		ios = append(ios, but)
	}
	for _, le := range bk.Leds {
		ios = append(ios, le)
	}

	return ios
}

func (bk *BlinkKit) InitDrivers(ctx context.Context) error {
	bk.ioDrivers = make(map[string]drivers.IoDriver)

	if bk.Gpio != nil {
		bk.ioDrivers[bk.Gpio.NameId()] = bk.Gpio
	}

	if bk.Mcp23017 != nil {
		bk.ioDrivers[bk.Mcp23017.NameId()] = bk.Mcp23017
	}

	if bk.FakeDriver != nil {
		bk.ioDrivers[bk.FakeDriver.NameId()] = bk.FakeDriver
	}

	for _, driver := range bk.ioDrivers {
		err := driver.Setup(ctx, bk.getInPins(driver.NameId()), bk.getOutPins(driver.NameId()))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver.NameId())
		}
	}

	for _, io := range bk.getIos() {
		_, driverFound := bk.ioDrivers[io.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", io.GetDriverName())
		}
	}

	return nil
}

func (bk *BlinkKit) InitIos() error {
	for _, io := range bk.getIos() {
		err := io.Init(bk.ioDrivers[io.GetDriverName()])
		if err != nil {
			return errors.Wrapf(err, "failed to init io")
		}
	}

	return nil
}

func (bk *BlinkKit) findLed(name string) *Led {
	for _, le := range bk.Leds {
		if strings.EqualFold(le.Name, name) {
			return le
		}
	}

	return nil
}

// MatchBlinkers binds every button to the leds named in its Blinks
// list. A button without a resolvable led is a configuration error.
func (bk *BlinkKit) MatchBlinkers() error {
	for _, but := range bk.Buttons {
		if len(but.Blinks) == 0 {
			return errors.Errorf("button %s has no leds to blink", but.Name)
		}

		for _, name := range but.Blinks {
			led := bk.findLed(name)
			if led == nil {
				return errors.Errorf("matching blinkers failed, no led named %s for button %s", name, but.Name)
			}
			but.blinkThis = append(but.blinkThis, led)
		}
	}

	return nil
}

func (bk *BlinkKit) pollInterval() time.Duration {
	if bk.PollMs == 0 {
		return defaultPollInterval
	}
	return time.Duration(bk.PollMs) * time.Millisecond
}

// Run polls every button until ctx is cancelled or a termination
// signal arrives. A blink sequence in progress finishes its current
// on/off cycle before the loop exits. Io errors are fatal and returned
// to the caller; the external supervisor owns any restart policy.
func (bk *BlinkKit) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c:
			signal.Stop(c)
			cancel()
		case <-ctx.Done():
		}
	}()

	bk.ticker = time.NewTicker(bk.pollInterval())
	defer bk.ticker.Stop()

	log.Info("watching for button presses", "poll", bk.pollInterval())

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping")
			return nil
		case now := <-bk.ticker.C:
			for _, io := range bk.getIos() {
				err := io.Sync(ctx, now)
				if err != nil {
					return errors.Wrap(err, "io sync failed")
				}
			}
		}
	}
}

func (bk *BlinkKit) Close() (err error) {
	for _, driver := range bk.ioDrivers {
		if driver != nil {
			closeErr := driver.Close()
			if closeErr != nil {
				err = stderrors.Join(err, errors.Wrapf(closeErr, "failed closing %s driver", driver.NameId()))
			}
		}
	}

	return
}

func (bk *BlinkKit) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range bk.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
