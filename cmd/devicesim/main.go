package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/kaber420/mikroisp-manager-sub000/internal/sim"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Host to bind to")
	port := flag.Int("port", 8420, "Port to listen on")
	token := flag.String("token", "", "Require this API token (empty disables auth)")
	deviceID := flag.String("device", "sim-1", "ID of the simulated device")
	name := flag.String("name", "ap-simulated", "Name of the simulated device")
	refresh := flag.Duration("refresh", 15*time.Second, "Push refresh interval")
	noScan := flag.Bool("no-scan", false, "Simulate a device without spectral scan support")
	unconfigured := flag.Bool("unconfigured", false, "Simulate a device with no polling interval")
	flag.Parse()

	opts := sim.DefaultOptions()
	opts.DeviceID = *deviceID
	opts.DeviceName = *name
	opts.AuthToken = *token
	opts.RefreshInterval = *refresh
	opts.ScanSupported = !*noScan
	if *unconfigured {
		opts.PollIntervalSeconds = 0
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	srv := sim.NewServer(opts)
	if err := srv.ListenAndServe(context.Background(), addr); err != nil {
		log.Fatal(err)
	}
}
