// Tee zap output: the console core keeps local visibility while the
// shipper core delivers the same entries to a remote destination.
package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/compat"
	"github.com/relaylog/relay/dest"
)

func main() {
	cfg := relay.DefaultConfig()
	cfg.BatchDelayMs = 500
	cfg.InternalErrorsToStderr = true
	cfg.Destination = relay.DestinationConfig{
		Kind:      "http",
		Name:      "zap-example",
		URL:       "http://localhost:3100",
		TimeoutMs: 5000,
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipper: %v\n", err)
		os.Exit(1)
	}

	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
	remote := compat.NewShipperCore(shipper, nil, zapcore.InfoLevel)

	logger := zap.New(zapcore.NewTee(console, remote))
	defer logger.Sync()

	logger.Info("service starting", zap.String("version", "1.4.2"))
	logger.Debug("debug stays local, below the remote core's level")
	logger.Warn("cache miss rate high", zap.Float64("rate", 0.37))
	logger.Error("downstream call failed",
		zap.String("endpoint", "billing"),
		zap.Duration("after", 1200*time.Millisecond),
	)

	if err := shipper.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	fmt.Printf("delivered %d entries remotely\n", shipper.Stats().Delivered)
}
