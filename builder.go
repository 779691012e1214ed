// FILE: builder.go
package relay

// Builder provides a fluent API for building shipper configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg *Config
	err error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build validates the configuration and creates a Shipper over the given
// facade.
func (b *Builder) Build(facade Facade) (*Shipper, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.cfg, facade)
}

// Config returns the accumulated configuration without building a shipper,
// for callers that construct the facade from it first.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg.Clone(), nil
}

// BatchDelayMs sets the max wait before flushing a partial batch.
func (b *Builder) BatchDelayMs(ms int64) *Builder {
	b.cfg.BatchDelayMs = ms
	return b
}

// DiscardThreshold sets the queue capacity before the discard policy triggers.
func (b *Builder) DiscardThreshold(n int64) *Builder {
	b.cfg.DiscardThreshold = n
	return b
}

// DiscardAction sets the overload policy: oldest, newest, or none.
func (b *Builder) DiscardAction(action string) *Builder {
	b.cfg.DiscardAction = action
	return b
}

// TruncateOversize selects truncating vs rejecting an oversize record.
func (b *Builder) TruncateOversize(truncate bool) *Builder {
	b.cfg.TruncateOversize = truncate
	return b
}

// Synchronous selects inline sends over the background writer.
func (b *Builder) Synchronous(sync bool) *Builder {
	b.cfg.Synchronous = sync
	return b
}

// EagerStart starts the writer at construction instead of first enqueue.
func (b *Builder) EagerStart(eager bool) *Builder {
	b.cfg.EagerStart = eager
	return b
}

// DedicatedWriter selects exclusive vs shared destination write semantics.
func (b *Builder) DedicatedWriter(dedicated bool) *Builder {
	b.cfg.DedicatedWriter = dedicated
	return b
}

// InitTimeoutMs bounds the destination readiness phase.
func (b *Builder) InitTimeoutMs(ms int64) *Builder {
	b.cfg.InitTimeoutMs = ms
	return b
}

// MaxRetries bounds retry attempts for a retryable failure.
func (b *Builder) MaxRetries(n int64) *Builder {
	b.cfg.MaxRetries = n
	return b
}

// ShutdownTimeoutMs sets the grace window for the shutdown drain.
func (b *Builder) ShutdownTimeoutMs(ms int64) *Builder {
	b.cfg.ShutdownTimeoutMs = ms
	return b
}

// EnableMetrics registers prometheus delivery counters.
func (b *Builder) EnableMetrics(enable bool) *Builder {
	b.cfg.EnableMetrics = enable
	return b
}

// InternalErrorsToStderr enables internal diagnostics on stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Destination sets the full destination block.
func (b *Builder) Destination(d DestinationConfig) *Builder {
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = defaultConfig.Destination.TimeoutMs
	}
	b.cfg.Destination = d
	return b
}

// Example usage:
// cfg, err := relay.NewBuilder().
//
//	DiscardThreshold(5000).
//	DiscardAction(relay.DiscardOldest).
//	BatchDelayMs(1000).
//	Destination(relay.DestinationConfig{Kind: "http", Name: "app-{hostname}", URL: "http://collector:3100/push"}).
//	Config()
