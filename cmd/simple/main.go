package main

import (
	"fmt"
	"os"
	"time"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/dest"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
[relay]
  batch_delay_ms = 500
  discard_threshold = 1000
  discard_action = "oldest"
  internal_errors_to_stderr = true

[relay.destination]
  kind = "http"
  name = "simple-{hostname}"
  url = "http://localhost:3100"
  timeout_ms = 2000
  # Other settings use the registered defaults
`

func main() {
	fmt.Println("--- Simple Shipper Example ---")
	fmt.Println("Run ./cmd/sink first to have a local destination.")

	// Create dummy config file
	err := os.WriteFile(configFile, []byte(tomlContent), 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
	} else {
		fmt.Printf("Created dummy config file: %s\n", configFile)
		// defer os.Remove(configFile) // Remove to keep the saved config file
	}

	cfg, err := relay.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build shipper: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Enqueueing 25 records...")
	for i := 0; i < 25; i++ {
		accepted := shipper.Enqueue(fmt.Sprintf("simple example line %d", i), 0)
		if !accepted {
			fmt.Printf("Record %d was discarded\n", i)
		}
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("Shutting down (flushes the queue)...")
	if err := shipper.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown reported: %v\n", err)
	}

	stats := shipper.Stats()
	fmt.Printf("Writer state: %s\n", stats.WriterState)
	fmt.Printf("Enqueued: %d  Delivered: %d  Batches: %d\n",
		stats.Enqueued, stats.Delivered, stats.BatchesSent)
	fmt.Printf("Dropped (admission/delivery): %d/%d  Retries: %d\n",
		stats.DroppedAdmit, stats.DroppedDelivery, stats.Retries)
}
