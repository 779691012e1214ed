// FILE: config_test.go
package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, int64(2000), cfg.BatchDelayMs)
	assert.Equal(t, int64(10000), cfg.DiscardThreshold)
	assert.Equal(t, DiscardOldest, cfg.DiscardAction)
	assert.True(t, cfg.TruncateOversize)
	assert.True(t, cfg.DedicatedWriter)
	assert.False(t, cfg.Synchronous)
	assert.Equal(t, int64(3), cfg.MaxRetries)
	assert.Equal(t, "http", cfg.Destination.Kind)

	require.NoError(t, cfg.Validate())

	// Defaults are copied, not shared
	cfg.BatchDelayMs = 1
	assert.Equal(t, int64(2000), DefaultConfig().BatchDelayMs)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad discard action", func(c *Config) { c.DiscardAction = "drop" }},
		{"zero threshold", func(c *Config) { c.DiscardThreshold = 0 }},
		{"negative batch delay", func(c *Config) { c.BatchDelayMs = -1 }},
		{"zero init timeout", func(c *Config) { c.InitTimeoutMs = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero retry base", func(c *Config) { c.RetryBaseDelayMs = 0 }},
		{"base above max", func(c *Config) { c.RetryBaseDelayMs = 100; c.RetryMaxDelayMs = 10 }},
		{"empty destination kind", func(c *Config) { c.Destination.Kind = " " }},
		{"zero destination timeout", func(c *Config) { c.Destination.TimeoutMs = 0 }},
		{"negative batch limit", func(c *Config) { c.Destination.MaxBytes = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.toml")
	content := `
[relay]
batch_delay_ms = 500
discard_action = "newest"
discard_threshold = 250
internal_errors_to_stderr = true

[relay.destination]
kind = "beats"
name = "app-{hostname}"
address = "localhost:5044"
timeout_ms = 3000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.BatchDelayMs)
	assert.Equal(t, DiscardNewest, cfg.DiscardAction)
	assert.Equal(t, int64(250), cfg.DiscardThreshold)
	assert.True(t, cfg.InternalErrorsToStderr)

	assert.Equal(t, "beats", cfg.Destination.Kind)
	assert.Equal(t, "app-{hostname}", cfg.Destination.Name)
	assert.Equal(t, "localhost:5044", cfg.Destination.Address)
	assert.Equal(t, int64(3000), cfg.Destination.TimeoutMs)

	// Unset keys keep their defaults
	assert.Equal(t, int64(3), cfg.MaxRetries)
}

func TestNewConfigFromFileMissingUsesDefaults(t *testing.T) {
	cfg, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestNewConfigFromFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.toml")
	require.NoError(t, os.WriteFile(path, []byte("[relay]\ndiscard_action = \"sometimes\"\n"), 0644))

	_, err := NewConfigFromFile(path)
	assert.Error(t, err)
}

func TestConfigApplyString(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplyString(
		"batch_delay_ms=750",
		"discard_action=none",
		"truncate_oversize=false",
		"destination.kind=postgres",
		"destination.dsn=host=db user=relay",
	)
	require.NoError(t, err)

	assert.Equal(t, int64(750), cfg.BatchDelayMs)
	assert.Equal(t, DiscardNone, cfg.DiscardAction)
	assert.False(t, cfg.TruncateOversize)
	assert.Equal(t, "postgres", cfg.Destination.Kind)
	assert.Equal(t, "host=db user=relay", cfg.Destination.DSN)
}

func TestConfigApplyStringAccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplyString(
		"max_retries=many",
		"no_such_key=1",
		"discard_threshold=500",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")
	assert.Contains(t, err.Error(), "no_such_key")

	// Valid overrides in the same call still land
	assert.Equal(t, int64(500), cfg.DiscardThreshold)
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Destination.Name = "other"

	assert.Empty(t, cfg.Destination.Name)
}

func TestBuilder(t *testing.T) {
	cfg, err := NewBuilder().
		BatchDelayMs(100).
		DiscardThreshold(500).
		DiscardAction(DiscardNewest).
		Synchronous(true).
		Destination(DestinationConfig{Kind: "http", Name: "events", URL: "http://collector:3100"}).
		Config()
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.BatchDelayMs)
	assert.Equal(t, DiscardNewest, cfg.DiscardAction)
	assert.True(t, cfg.Synchronous)
	assert.Equal(t, "events", cfg.Destination.Name)
	assert.Equal(t, defaultConfig.Destination.TimeoutMs, cfg.Destination.TimeoutMs,
		"destination timeout falls back to the default when unset")
}

func TestBuilderRejectsInvalid(t *testing.T) {
	_, err := NewBuilder().DiscardAction("maybe").Config()
	assert.Error(t, err)

	_, err = NewBuilder().MaxRetries(-1).Build(newFakeFacade(Limits{}))
	assert.Error(t, err)
}
