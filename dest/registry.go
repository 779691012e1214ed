// FILE: dest/registry.go

// Package dest implements the destination facades: synchronous wrappers
// around concrete remote APIs that translate every failure into the
// relay reason/retryable taxonomy. Each facade is the only place that
// understands its remote's error surface.
package dest

import (
	"sort"
	"sync"

	"github.com/relaylog/relay"
)

// Factory builds a facade from the destination configuration.
type Factory func(cfg *relay.Config) (relay.Facade, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a destination kind available to Open. Kinds shipped with
// this package register themselves in init; external destinations can do
// the same before configuration is loaded.
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Kinds lists the registered destination kinds, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Open builds the facade named by cfg.Destination.Kind.
func Open(cfg *relay.Config) (relay.Facade, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Destination.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, relay.NewFacadeError("dest.open", relay.ReasonInvalidConfiguration, false, nil,
			"unknown destination kind '%s' (registered: %v)", cfg.Destination.Kind, Kinds())
	}
	return factory(cfg)
}

// NewShipper is the config-driven constructor: it opens the configured
// destination and wraps it in a shipper.
func NewShipper(cfg *relay.Config) (*relay.Shipper, error) {
	facade, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return relay.New(cfg, facade)
}

// batchLimits merges configured overrides onto a destination's defaults.
func batchLimits(d relay.DestinationConfig, defaults relay.Limits) relay.Limits {
	limits := defaults
	if d.MaxRecords > 0 {
		limits.MaxRecords = int(d.MaxRecords)
	}
	if d.MaxBytes > 0 {
		limits.MaxBytes = int(d.MaxBytes)
	}
	return limits
}
