package blinkit

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hubertat/blinkit/drivers"
)

func newTestKit(t testing.TB, debounceMs, blinkDelayMs uint) (*BlinkKit, *bytes.Buffer) {
	t.Helper()

	bk := &BlinkKit{
		PollMs:     1,
		FakeDriver: &drivers.MockIoDriver{},
		Buttons: []*Button{
			{Name: "button", DriverName: "mock_driver", InPin: 1, DebounceMs: debounceMs, Blinks: []string{"led"}},
		},
		Leds: []*Led{
			{Name: "led", DriverName: "mock_driver", OutPin: 2, BlinkCount: 3, BlinkDelayMs: blinkDelayMs},
		},
	}

	if err := bk.InitDrivers(context.Background()); err != nil {
		t.Fatalf("InitDrivers returned err: %v", err)
	}
	if err := bk.InitIos(); err != nil {
		t.Fatalf("InitIos returned err: %v", err)
	}
	if err := bk.MatchBlinkers(); err != nil {
		t.Fatalf("MatchBlinkers returned err: %v", err)
	}

	buf := &bytes.Buffer{}
	bk.FakeDriver.MonitorStateChanges(buf)

	return bk, buf
}

type failingCloseDriver struct {
	drivers.MockIoDriver
	name string
}

func (fd *failingCloseDriver) NameId() string {
	return fd.name
}

func (fd *failingCloseDriver) Close() error {
	return fmt.Errorf("%s refused to close", fd.name)
}

func TestCloseReportsEveryDriver(t *testing.T) {
	bk := &BlinkKit{}
	bk.ioDrivers = map[string]drivers.IoDriver{
		"first":  &failingCloseDriver{name: "first"},
		"second": &failingCloseDriver{name: "second"},
	}

	err := bk.Close()
	if err == nil {
		t.Fatal("got nil error from Close with failing drivers")
	}

	for _, name := range []string{"first", "second"} {
		if !strings.Contains(err.Error(), name+" refused to close") {
			t.Errorf("close error lost the %s driver failure: %v", name, err)
		}
	}
}

func TestInitDriversMissingDriver(t *testing.T) {
	bk := &BlinkKit{
		Buttons: []*Button{
			{Name: "button", DriverName: "gpio", InPin: 17, Blinks: []string{"led"}},
		},
	}

	if bk.InitDrivers(context.Background()) == nil {
		t.Error("got nil error when io claims a driver that is not set up")
	}
}

func TestMatchBlinkers(t *testing.T) {
	t.Run("no targets", func(t *testing.T) {
		bk := &BlinkKit{
			Buttons: []*Button{{Name: "button", DriverName: "mock_driver", InPin: 1}},
		}
		if bk.MatchBlinkers() == nil {
			t.Error("got nil error for button without blink targets")
		}
	})

	t.Run("unknown led", func(t *testing.T) {
		bk := &BlinkKit{
			Buttons: []*Button{{Name: "button", DriverName: "mock_driver", InPin: 1, Blinks: []string{"nope"}}},
			Leds:    []*Led{{Name: "led", DriverName: "mock_driver", OutPin: 2}},
		}
		if bk.MatchBlinkers() == nil {
			t.Error("got nil error for unknown led name")
		}
	})

	t.Run("ok", func(t *testing.T) {
		bk := &BlinkKit{
			Buttons: []*Button{{Name: "button", DriverName: "mock_driver", InPin: 1, Blinks: []string{"led"}}},
			Leds:    []*Led{{Name: "led", DriverName: "mock_driver", OutPin: 2}},
		}
		if err := bk.MatchBlinkers(); err != nil {
			t.Errorf("MatchBlinkers returned err: %v", err)
		}
		assertInts(t, len(bk.Buttons[0].blinkThis), 1)
	})
}

func TestDefaultKit(t *testing.T) {
	bk := DefaultKit()

	if bk.Gpio == nil {
		t.Fatal("default kit has no gpio driver")
	}
	if !bk.Gpio.InvertInputs {
		t.Error("default kit inputs not inverted for pull-up wiring")
	}

	assertInts(t, len(bk.Buttons), 1)
	assertInts(t, len(bk.Leds), 1)
	assertInts(t, int(bk.Buttons[0].InPin), defaultButtonPin)
	assertInts(t, int(bk.Leds[0].OutPin), defaultLedPin)

	if err := bk.MatchBlinkers(); err != nil {
		t.Errorf("MatchBlinkers on default kit returned err: %v", err)
	}
}

func TestKitPressToBlink(t *testing.T) {
	bk, buf := newTestKit(t, 20, 1)
	ctx := context.Background()
	but := bk.Buttons[0]
	base := time.Now()

	bk.FakeDriver.SetInput(1, true)
	but.Sync(ctx, base)
	but.Sync(ctx, base.Add(25*time.Millisecond))

	assertBlinkSequence(t, ledStates(buf), 3)

	// held past the end of the sequence, nothing more happens
	but.Sync(ctx, base.Add(100*time.Millisecond))
	assertBlinkSequence(t, ledStates(buf), 3)

	bk.FakeDriver.SetInput(1, false)
	but.Sync(ctx, base.Add(120*time.Millisecond))

	first := buf.String()
	buf.Reset()

	bk.FakeDriver.SetInput(1, true)
	but.Sync(ctx, base.Add(140*time.Millisecond))
	but.Sync(ctx, base.Add(165*time.Millisecond))

	if buf.String() != first {
		t.Errorf("second press produced a different sequence:\n%s\nvs\n%s", buf.String(), first)
	}
}

func TestKitRunDropsPressDuringBlink(t *testing.T) {
	bk, buf := newTestKit(t, 10, 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- bk.Run(ctx)
	}()

	// first press fires after ~10ms, the sequence then runs for ~180ms
	bk.FakeDriver.SetInput(1, true)
	time.Sleep(50 * time.Millisecond)

	// release and press again strictly inside the running sequence
	bk.FakeDriver.SetInput(1, false)
	time.Sleep(30 * time.Millisecond)
	bk.FakeDriver.SetInput(1, true)
	time.Sleep(30 * time.Millisecond)
	bk.FakeDriver.SetInput(1, false)

	time.Sleep(400 * time.Millisecond)
	cancel()

	err := <-done
	if err != nil {
		t.Errorf("Run returned err: %v", err)
	}

	assertBlinkSequence(t, ledStates(buf), 3)
}
