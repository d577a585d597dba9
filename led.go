package blinkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	drivers "github.com/hubertat/blinkit/drivers"
)

const defaultBlinkCount = 3
const defaultBlinkDelay = 500 * time.Millisecond

// Led drives a single output line through a fixed blink sequence.
// The line is low outside an active sequence.
type Led struct {
	Name         string
	DriverName   string
	OutPin       uint16
	BlinkCount   uint
	BlinkDelayMs uint

	output drivers.DigitalOutput
	driver drivers.IoDriver
}

func (le *Led) GetDriverName() string {
	return le.DriverName
}

func (le *Led) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.NameId(), le.DriverName) {
		return fmt.Errorf("Init failed, mismatched or incorrect driver")
	}

	if !driver.IsReady() {
		return fmt.Errorf("Init failed, driver not ready")
	}

	var err error

	le.driver = driver
	le.output, err = driver.GetOutput(le.OutPin)
	if err != nil {
		return errors.Wrap(err, "Init failed on getting output")
	}

	err = le.output.Set(false)
	if err != nil {
		return errors.Wrap(err, "Init failed on clearing output")
	}

	return nil
}

func (le *Led) count() uint {
	if le.BlinkCount == 0 {
		return defaultBlinkCount
	}
	return le.BlinkCount
}

func (le *Led) delay() time.Duration {
	if le.BlinkDelayMs == 0 {
		return defaultBlinkDelay
	}
	return time.Duration(le.BlinkDelayMs) * time.Millisecond
}

// Blink runs the fixed on/off sequence, blocking until it completes.
// The line ends low on every path. Cancelling ctx stops the sequence
// after the on/off cycle in progress, not mid-phase.
func (le *Led) Blink(ctx context.Context) error {
	delay := le.delay()

	for cycle := uint(0); cycle < le.count(); cycle++ {
		err := le.output.Set(true)
		if err != nil {
			le.output.Set(false)
			return errors.Wrapf(err, "failed switching led %s on", le.Name)
		}
		time.Sleep(delay)

		err = le.output.Set(false)
		if err != nil {
			return errors.Wrapf(err, "failed switching led %s off", le.Name)
		}
		time.Sleep(delay)

		if ctx.Err() != nil {
			break
		}
	}

	return nil
}

func (le *Led) Sync(ctx context.Context, now time.Time) error {
	return nil
}
