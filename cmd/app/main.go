package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/hubertat/servicemaker"

	"github.com/hubertat/blinkit"
)

var (
	Version string
	Build   string

	config      = flag.String("config", "", "path of the configuration file, built-in defaults are used when empty")
	flagInstall = flag.Bool("install", false, "Install service in os")
	pollMs      = flag.Uint("poll", 0, "input poll interval in milliseconds (0 = default)")

	blinkitService = servicemaker.ServiceMaker{
		User:               "blinkit",
		UserGroups:         []string{"gpio"},
		ServicePath:        "/etc/systemd/system/blinkit.service",
		ServiceDescription: "blinkit service: press a button, blink a led. github.com/hubertat/blinkit",
		ExecDir:            "/srv/blinkit",
		ExecName:           "blinkit",
	}
)

func main() {
	log.Printf("blinkit %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := blinkitService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bk := blinkit.DefaultKit()
	if len(*config) > 0 {
		configFile, err := os.Open(*config)
		if err != nil {
			log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
		}
		cBuff, err := io.ReadAll(configFile)
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		bk = &blinkit.BlinkKit{}
		err = json.Unmarshal(cBuff, bk)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Println("no config file given, running reference defaults")
	}

	if *pollMs > 0 {
		bk.PollMs = *pollMs
	}

	log.Println("will init blinkit drivers...")
	err := bk.InitDrivers(ctx)
	defer bk.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init blinkit IOs...")
	err = bk.InitIos()
	if err != nil {
		panic(err)
	}

	log.Println("drivers OK!\nwill try to MatchBlinkers:")
	err = bk.MatchBlinkers()
	if err != nil {
		panic(err)
	}
	log.Println("MatchBlinkers OK!")

	bk.PrintIoStatus(os.Stdout)

	err = bk.Run(ctx)
	if err != nil {
		panic(err)
	}

	log.Println("blinkit stopped")
}
