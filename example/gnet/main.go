// A gnet echo server wired to ship its framework logs through the
// compat adapter instead of writing them locally.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/panjf2000/gnet/v2"

	"github.com/relaylog/relay"
	"github.com/relaylog/relay/compat"
	"github.com/relaylog/relay/dest"
)

type echoServer struct {
	gnet.BuiltinEventEngine
	logger *compat.GnetAdapter
}

func (es *echoServer) OnBoot(eng gnet.Engine) gnet.Action {
	es.logger.Infof("echo server booted")
	return gnet.None
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, err := c.Next(-1)
	if err != nil {
		es.logger.Errorf("read from %s failed: %v", c.RemoteAddr(), err)
		return gnet.Close
	}
	if _, err := c.Write(buf); err != nil {
		es.logger.Errorf("write to %s failed: %v", c.RemoteAddr(), err)
		return gnet.Close
	}
	return gnet.None
}

func main() {
	cfg := relay.DefaultConfig()
	cfg.BatchDelayMs = 1000
	cfg.EagerStart = true
	cfg.InternalErrorsToStderr = true
	cfg.Destination = relay.DestinationConfig{
		Kind:      "http",
		Name:      "gnet-{hostname}",
		URL:       "http://localhost:3100",
		TimeoutMs: 5000,
	}

	shipper, err := dest.NewShipper(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipper: %v\n", err)
		os.Exit(1)
	}
	defer shipper.Shutdown(10 * time.Second)

	logger := compat.NewGnetAdapter(shipper)

	fmt.Println("Echo server on :9000, shipping gnet logs to localhost:3100")
	err = gnet.Run(&echoServer{logger: logger}, "tcp://:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(logger),
	)
	if err != nil {
		logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
