package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hubertat/blinkit"
	"github.com/hubertat/blinkit/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	var err error

	log.Println("blinkit started")
	log.Println("mock instance for testing purposes, should work without gpio hardware")

	bk := &blinkit.BlinkKit{PollMs: 25}

	bk.Buttons = append(bk.Buttons, &blinkit.Button{
		Name:       "fake button",
		DriverName: "mock_driver",
		InPin:      1,
		DebounceMs: 100,
		Blinks:     []string{"fake led"},
	})
	bk.Leds = append(bk.Leds, &blinkit.Led{
		Name:         "fake led",
		DriverName:   "mock_driver",
		OutPin:       2,
		BlinkDelayMs: 200,
	})
	bk.FakeDriver = &drivers.MockIoDriver{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("will init blinkit drivers...")
	err = bk.InitDrivers(ctx)
	defer bk.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init blinkit IOs...")
	err = bk.InitIos()
	if err != nil {
		panic(err)
	}

	log.Println("will match blinkers...")
	err = bk.MatchBlinkers()
	if err != nil {
		panic(err)
	}

	bk.FakeDriver.MonitorStateChanges(os.Stdout)

	bk.PrintIoStatus(os.Stdout)

	// a fake finger holds the button down every few seconds
	go func() {
		for {
			time.Sleep(5 * time.Second)
			bk.FakeDriver.SetInput(1, true)
			time.Sleep(300 * time.Millisecond)
			bk.FakeDriver.SetInput(1, false)
		}
	}()

	err = bk.Run(ctx)
	if err != nil {
		panic(err)
	}

	log.Println("blinkit stopped")
}
