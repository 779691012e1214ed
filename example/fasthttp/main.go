// A fasthttp server whose internal logger ships to a remote destination
// through the compat adapter. Request handling never blocks on delivery;
// the adapter enqueues and the background writer does the rest.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/compat"
	"github.com/relaylog/relay/dest"
)

func main() {
	cfg := relay.DefaultConfig()
	cfg.BatchDelayMs = 1000
	cfg.EagerStart = true
	cfg.InternalErrorsToStderr = true
	cfg.Destination = relay.DestinationConfig{
		Kind:      "http",
		Name:      "fasthttp-{hostname}",
		URL:       "http://localhost:3100",
		TimeoutMs: 5000,
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipper: %v\n", err)
		os.Exit(1)
	}
	defer shipper.Shutdown(10 * time.Second)

	logger := compat.NewFastHTTPAdapter(shipper,
		compat.WithDefaultLevel("info"),
	)

	server := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			logger.Printf("handled %s %s from %s",
				ctx.Method(), ctx.Path(), ctx.RemoteAddr())
			fmt.Fprintf(ctx, "hello from fasthttp\n")
		},
		Logger: logger,
		Name:   "relay-example",
	}

	fmt.Println("Serving on :8080, shipping server logs to localhost:3100")
	if err := server.ListenAndServe(":8080"); err != nil {
		logger.Printf("server failed: %v", err)
		os.Exit(1)
	}
}
