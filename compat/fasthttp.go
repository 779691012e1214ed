// FILE: compat/fasthttp.go
package compat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/relaylog/relay"
)

// FastHTTPAdapter wraps a relay.Shipper to implement fasthttp's Logger
// interface.
type FastHTTPAdapter struct {
	shipper       *relay.Shipper
	defaultLevel  string
	levelDetector func(string) string // Function to detect log level from message
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(shipper *relay.Shipper, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		shipper:       shipper,
		defaultLevel:  "info",
		levelDetector: DetectLogLevel, // Default level detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls
func WithDefaultLevel(level string) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content
func WithLevelDetector(detector func(string) string) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected := a.levelDetector(msg); detected != "" {
			level = detected
		}
	}

	a.shipper.Enqueue(renderLine(level, "fasthttp", msg), 0)
}

// DetectLogLevel attempts to detect log level from message content
func DetectLogLevel(msg string) string {
	msgLower := strings.ToLower(msg)

	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return "error"
	}

	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "warning") ||
		strings.Contains(msgLower, "deprecated") {
		return "warn"
	}

	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return "debug"
	}

	return "info"
}

// renderLine produces the JSON line shape shared by the printf-style
// adapters.
func renderLine(level, source, msg string) string {
	line, err := json.Marshal(struct {
		Timestamp string `json:"ts"`
		Level     string `json:"level"`
		Source    string `json:"source"`
		Message   string `json:"msg"`
	}{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level,
		Source:    source,
		Message:   msg,
	})
	if err != nil {
		// Marshal of a flat string struct cannot fail; keep the record anyway
		return fmt.Sprintf(`{"level":%q,"msg":%q}`, level, msg)
	}
	return string(line)
}
