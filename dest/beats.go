// FILE: dest/beats.go
package dest

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"

	"github.com/relaylog/relay"
)

func init() {
	Register("beats", newBeatsFacade)
}

// The lumberjack window tops out well below HTTP batch sizes
var beatsDefaultLimits = relay.Limits{
	MaxRecords: 2048,
	MaxBytes:   4 * 1024 * 1024,
}

// beatsFacade ships batches over the lumberjack v2 protocol to a
// Beats-compatible endpoint (Logstash, etc). The protocol acknowledges
// whole windows, so one Send call is one remote call.
//
// The sync client holds a TCP connection; on a send failure the facade
// drops it and re-dials on the next call, reporting the failure as
// retryable.
type beatsFacade struct {
	cfg     relay.DestinationConfig
	limits  relay.Limits
	timeout time.Duration

	resolveOnce sync.Once
	stream      string

	mu     sync.Mutex
	client *lumberjack.SyncClient
}

func newBeatsFacade(cfg *relay.Config) (relay.Facade, error) {
	d := cfg.Destination
	if strings.TrimSpace(d.Address) == "" {
		return nil, relay.NewFacadeError("beats.open", relay.ReasonInvalidConfiguration, false, nil,
			"beats destination requires an address")
	}
	if _, _, err := net.SplitHostPort(d.Address); err != nil {
		return nil, relay.NewFacadeError("beats.open", relay.ReasonInvalidConfiguration, false, err,
			"beats address must be host:port, got '%s'", d.Address)
	}

	return &beatsFacade{
		cfg:     d,
		limits:  batchLimits(d, beatsDefaultLimits),
		timeout: d.CallTimeout(),
	}, nil
}

// streamName resolves destination-name substitutions once, on first use.
func (f *beatsFacade) streamName() string {
	f.resolveOnce.Do(func() {
		f.stream = relay.ResolveSubstitutions(f.cfg.Name)
	})
	return f.stream
}

// EnsureDestination dials the endpoint. The protocol has no notion of
// creating a stream; reachability is the readiness check.
func (f *beatsFacade) EnsureDestination(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.connLocked(ctx)
	return err
}

func (f *beatsFacade) SendBatch(ctx context.Context, batch []relay.Record) error {
	stream := f.streamName()
	events := make([]interface{}, len(batch))
	for i, r := range batch {
		events[i] = map[string]interface{}{
			"@timestamp": r.Timestamp,
			"message":    r.Text,
			"log": map[string]interface{}{
				"stream": stream,
			},
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	client, err := f.connLocked(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Send(events); err != nil {
		// Connection state is unknown after a failed window; force a
		// redial on the next call
		_ = client.Close()
		f.client = nil
		return relay.NewFacadeError("beats.send", relay.ReasonUnexpected, true, err,
			"window send of %d events failed", len(events))
	}
	return nil
}

func (f *beatsFacade) Limits() relay.Limits {
	return f.limits
}

func (f *beatsFacade) Describe() string {
	return "beats:" + f.cfg.Address
}

func (f *beatsFacade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

// connLocked returns the live client, dialing if needed. Caller holds mu.
func (f *beatsFacade) connLocked(ctx context.Context) (*lumberjack.SyncClient, error) {
	if f.client != nil {
		return f.client, nil
	}

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, relay.NewFacadeError("beats.dial", relay.ReasonUnexpected, true, ctx.Err(),
			"no time left to dial %s", f.cfg.Address)
	}

	client, err := lumberjack.SyncDial(f.cfg.Address,
		lumberjack.CompressionLevel(3),
		lumberjack.Timeout(timeout),
	)
	if err != nil {
		return nil, relay.NewFacadeError("beats.dial", relay.ReasonUnexpected, true, err,
			"failed connection to beats endpoint %s", f.cfg.Address)
	}
	f.client = client
	return client, nil
}
