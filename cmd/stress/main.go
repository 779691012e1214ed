package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/dest"
)

const (
	totalBursts    = 100
	linesPerBurst  = 500
	maxMessageSize = 10000
	numWorkers     = 50
)

// Stress the admission path: many producers bursting variable-size
// records against one writer, with periodic counter snapshots. CLI args
// are applied as key=value overrides, e.g.
//
//	go run ./cmd/stress discard_action=newest discard_threshold=2000
func main() {
	fmt.Println("--- Shipper Stress Test ---")

	cfg := relay.DefaultConfig()
	cfg.BatchDelayMs = 200
	cfg.DiscardThreshold = 5000
	cfg.InternalErrorsToStderr = true
	cfg.Destination = relay.DestinationConfig{
		Kind:      "http",
		Name:      "stress",
		URL:       "http://localhost:3100",
		TimeoutMs: 2000,
	}

	if err := cfg.ApplyString(os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "Bad override: %v\n", err)
		os.Exit(1)
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build shipper: %v\n", err)
		os.Exit(1)
	}

	// Flush on Ctrl-C as well as on normal completion
	interrupted := shipper.ShutdownOnSignal(10 * time.Second)

	// Counter snapshot every second while the bursts run
	stopTicker := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := shipper.Stats()
				fmt.Printf("[%s] depth=%d delivered=%d dropped=%d/%d retries=%d\n",
					stats.WriterState, shipper.QueueDepth(), stats.Delivered,
					stats.DroppedAdmit, stats.DroppedDelivery, stats.Retries)
			case <-stopTicker:
				return
			case <-interrupted:
				return
			}
		}
	}()

	var produced, rejected atomic.Int64
	bursts := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for burst := range bursts {
				for i := 0; i < linesPerBurst; i++ {
					size := 1 + rand.Intn(maxMessageSize)
					msg := fmt.Sprintf("w%d b%d i%d %s", worker, burst, i,
						strings.Repeat("x", size))
					if shipper.Enqueue(msg, 0) {
						produced.Add(1)
					} else {
						rejected.Add(1)
					}
				}
			}
		}(w)
	}

	start := time.Now()
	for b := 0; b < totalBursts; b++ {
		select {
		case bursts <- b:
		case <-interrupted:
			b = totalBursts
		}
	}
	close(bursts)
	wg.Wait()
	close(stopTicker)

	fmt.Printf("Produced %d records (%d rejected) in %v\n",
		produced.Load(), rejected.Load(), time.Since(start))

	fmt.Println("Shutting down...")
	if err := shipper.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown reported: %v\n", err)
	}

	stats := shipper.Stats()
	fmt.Printf("Final: delivered=%d batches=%d dropped=%d/%d retries=%d failures=%d\n",
		stats.Delivered, stats.BatchesSent,
		stats.DroppedAdmit, stats.DroppedDelivery,
		stats.Retries, stats.SendFailures)
}
