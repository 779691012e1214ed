// Minimal shipper usage with the fluent builder: no config file, no
// adapter, just rendered lines to a local stream endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/dest"
)

func main() {
	cfg, err := relay.NewBuilder().
		BatchDelayMs(500).
		DiscardThreshold(1000).
		DiscardAction(relay.DiscardOldest).
		InternalErrorsToStderr(true).
		Destination(relay.DestinationConfig{
			Kind: "http",
			Name: "raw-example",
			URL:  "http://localhost:3100",
		}).
		Config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipper: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < 10; i++ {
		shipper.Enqueue(fmt.Sprintf("raw line %d", i), 0)
	}

	if err := shipper.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	fmt.Printf("delivered %d records\n", shipper.Stats().Delivered)
}
