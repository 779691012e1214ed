// Layered configuration: defaults, then a TOML file, then key=value
// overrides from the command line, highest priority last.
//
//	go run ./example/overrides discard_action=newest destination.name=cli-stream
package main

import (
	"fmt"
	"os"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/dest"
)

const configFile = "overrides_config.toml"

var tomlContent = `
[relay]
  batch_delay_ms = 250
  discard_action = "oldest"

[relay.destination]
  kind = "http"
  name = "file-stream"
  url = "http://localhost:3100"
`

func main() {
	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write config: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(configFile)

	cfg, err := relay.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ApplyString(os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "apply overrides: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Effective config: delay=%dms action=%s destination=%s/%s\n",
		cfg.BatchDelayMs, cfg.DiscardAction, cfg.Destination.Kind, cfg.Destination.Name)

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipper: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < 5; i++ {
		shipper.Enqueue(fmt.Sprintf("override example %d", i), 0)
	}

	if err := shipper.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	fmt.Printf("delivered %d records\n", shipper.Stats().Delivered)
}
