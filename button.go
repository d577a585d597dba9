package blinkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	drivers "github.com/hubertat/blinkit/drivers"
)

const defaultDebounce = 200 * time.Millisecond

// Button watches a single input line and fires one press event per
// physical press. A press is accepted only after the line has held the
// pressed state for the full debounce interval; chatter shorter than
// the interval never fires. After firing, the button stays armed until
// it observes the line released, so a held press fires exactly once.
type Button struct {
	Name       string
	State      bool
	DriverName string
	InPin      uint16
	DebounceMs uint

	// Blinks lists the names of Leds triggered by a press.
	Blinks []string

	blinkThis []BlinkableDevice
	input     drivers.DigitalInput
	driver    drivers.IoDriver

	candidateAt time.Time
	waiting     bool
	armed       bool
}

type BlinkableDevice interface {
	Blink(ctx context.Context) error
}

func (bu *Button) GetDriverName() string {
	return bu.DriverName
}

func (bu *Button) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.NameId(), bu.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	var err error

	bu.driver = driver
	bu.input, err = driver.GetInput(bu.InPin)
	if err != nil {
		return errors.Join(errors.New("Init failed on getting input"), err)
	}

	return nil
}

func (bu *Button) debounceInterval() time.Duration {
	if bu.DebounceMs == 0 {
		return defaultDebounce
	}
	return time.Duration(bu.DebounceMs) * time.Millisecond
}

// Sync takes one sample of the input line and advances the debounce
// state. When a press qualifies it triggers every bound blinker
// synchronously, so Sync does not return until the blink sequences
// finish; presses occurring in that window are dropped.
func (bu *Button) Sync(ctx context.Context, now time.Time) error {
	pressed, err := bu.input.GetState()
	if err != nil {
		return errors.Join(errors.New("failed reading button state"), err)
	}

	bu.State = pressed

	if !pressed {
		bu.waiting = false
		bu.armed = false
		return nil
	}

	if bu.armed {
		return nil
	}

	if !bu.waiting {
		bu.waiting = true
		bu.candidateAt = now
		return nil
	}

	if now.Sub(bu.candidateAt) < bu.debounceInterval() {
		return nil
	}

	bu.waiting = false
	bu.armed = true

	log.Info("button pressed", "button", bu.Name, "pin", bu.InPin)

	for _, blinkable := range bu.blinkThis {
		err = blinkable.Blink(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}
