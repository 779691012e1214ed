// FILE: config.go
package relay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds all shipper configuration values
type Config struct {
	// Batching
	BatchDelayMs int64 `toml:"batch_delay_ms"` // Max wait before flushing a partial batch

	// Admission
	DiscardThreshold int64  `toml:"discard_threshold"` // Queue capacity before discard policy triggers
	DiscardAction    string `toml:"discard_action"`    // "oldest", "newest", or "none"
	TruncateOversize bool   `toml:"truncate_oversize"` // Truncate vs reject an oversize single record

	// Writer
	Synchronous      bool  `toml:"synchronous"`         // Inline send, no background writer
	EagerStart       bool  `toml:"eager_start"`         // Start the writer at construction, not first enqueue
	DedicatedWriter  bool  `toml:"dedicated_writer"`    // Exclusive vs shared destination write semantics
	InitTimeoutMs    int64 `toml:"init_timeout_ms"`     // Max wait for destination readiness
	MaxRetries       int64 `toml:"max_retries"`         // Retry attempts for a retryable failure
	RetryBaseDelayMs int64 `toml:"retry_base_delay_ms"` // First backoff delay
	RetryMaxDelayMs  int64 `toml:"retry_max_delay_ms"`  // Backoff ceiling

	// Lifecycle
	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms"` // Grace window for the shutdown drain

	// Diagnostics
	EnableMetrics          bool `toml:"enable_metrics"`            // Register prometheus counters
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Write internal diagnostics to stderr

	// Destination
	Destination DestinationConfig `toml:"destination"`
}

// DestinationConfig identifies the remote destination. Which fields apply
// depends on Kind; the destination factory validates its own subset.
type DestinationConfig struct {
	Kind string `toml:"kind"` // "http", "beats", "mysql", "postgres"
	Name string `toml:"name"` // Stream/table name, may contain substitution tokens

	URL     string `toml:"url"`     // http: push endpoint
	Address string `toml:"address"` // beats: host:port
	DSN     string `toml:"dsn"`     // database: driver DSN

	TimeoutMs  int64 `toml:"timeout_ms"`  // Per remote call
	MaxRecords int64 `toml:"max_records"` // 0 = destination default
	MaxBytes   int64 `toml:"max_bytes"`   // 0 = destination default
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	BatchDelayMs: 2000,

	DiscardThreshold: 10000,
	DiscardAction:    DiscardOldest,
	TruncateOversize: true,

	Synchronous:      false,
	EagerStart:       false,
	DedicatedWriter:  true,
	InitTimeoutMs:    60000,
	MaxRetries:       3,
	RetryBaseDelayMs: 200,
	RetryMaxDelayMs:  5000,

	ShutdownTimeoutMs: 5000,

	EnableMetrics:          false,
	InternalErrorsToStderr: false,

	Destination: DestinationConfig{
		Kind:      "http",
		TimeoutMs: 10000,
	},
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from a TOML file and returns a
// validated Config
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Use lixenwraith/config as a loader
	loader := config.New()

	if err := loader.RegisterStruct("relay.", *cfg); err != nil {
		return nil, fmt.Errorf("failed to register config struct: %w", err)
	}
	if err := loader.RegisterStruct("relay.destination.", cfg.Destination); err != nil {
		return nil, fmt.Errorf("failed to register destination config struct: %w", err)
	}

	// Load from file (handles file not found gracefully)
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "relay.", cfg); err != nil {
		return nil, fmt.Errorf("failed to extract config values: %w", err)
	}
	if err := extractConfig(loader, "relay.destination.", &cfg.Destination); err != nil {
		return nil, fmt.Errorf("failed to extract destination config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into a flat struct
func extractConfig(loader *config.Config, prefix string, out any) error {
	v := reflect.ValueOf(out).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if fieldValue.Kind() == reflect.Struct {
			continue // Nested structs are extracted with their own prefix
		}

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue // Use default value
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	switch c.DiscardAction {
	case DiscardOldest, DiscardNewest, DiscardNone:
	default:
		return fmtErrorf("invalid discard_action: '%s' (use oldest, newest, or none)", c.DiscardAction)
	}

	if c.DiscardThreshold <= 0 {
		return fmtErrorf("discard_threshold must be positive: %d", c.DiscardThreshold)
	}

	if c.BatchDelayMs < 0 {
		return fmtErrorf("batch_delay_ms cannot be negative: %d", c.BatchDelayMs)
	}

	if c.InitTimeoutMs <= 0 || c.ShutdownTimeoutMs <= 0 {
		return fmtErrorf("timeout settings must be positive")
	}

	if c.MaxRetries < 0 {
		return fmtErrorf("max_retries cannot be negative: %d", c.MaxRetries)
	}

	if c.RetryBaseDelayMs <= 0 || c.RetryMaxDelayMs <= 0 {
		return fmtErrorf("retry delay settings must be positive")
	}

	if c.RetryBaseDelayMs > c.RetryMaxDelayMs {
		return fmtErrorf("retry_base_delay_ms (%d) cannot be greater than retry_max_delay_ms (%d)",
			c.RetryBaseDelayMs, c.RetryMaxDelayMs)
	}

	if strings.TrimSpace(c.Destination.Kind) == "" {
		return fmtErrorf("destination kind cannot be empty")
	}

	if c.Destination.TimeoutMs <= 0 {
		return fmtErrorf("destination timeout_ms must be positive: %d", c.Destination.TimeoutMs)
	}

	if c.Destination.MaxRecords < 0 || c.Destination.MaxBytes < 0 {
		return fmtErrorf("destination batch limits cannot be negative")
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// Duration accessors

func (c *Config) batchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

func (c *Config) initTimeout() time.Duration {
	return time.Duration(c.InitTimeoutMs) * time.Millisecond
}

func (c *Config) retryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Config) retryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func (c *Config) shutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// CallTimeout is the per-remote-call bound destinations should apply.
func (d *DestinationConfig) CallTimeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}
