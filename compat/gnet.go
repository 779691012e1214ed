// FILE: compat/gnet.go

// Package compat adapts logging frameworks to a relay.Shipper, so an
// application's existing logger interface feeds the delivery pipeline.
// Formatting happens here, on the producer side; the shipper only ever
// sees rendered records.
package compat

import (
	"fmt"
	"os"
	"time"

	"github.com/relaylog/relay"
)

// GnetAdapter wraps a relay.Shipper to implement gnet's logging.Logger
// interface.
type GnetAdapter struct {
	shipper      *relay.Shipper
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(shipper *relay.Shipper, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		shipper: shipper,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.emit("debug", fmt.Sprintf(format, args...))
}

// Infof logs at info level with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.emit("info", fmt.Sprintf(format, args...))
}

// Warnf logs at warn level with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.emit("warn", fmt.Sprintf(format, args...))
}

// Errorf logs at error level with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.emit("error", fmt.Sprintf(format, args...))
}

// Fatalf logs at error level and triggers the fatal handler after a
// bounded flush attempt.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.emit("fatal", msg)

	// Give queued records a chance to leave before exit
	_ = a.shipper.Shutdown(2 * time.Second)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}

func (a *GnetAdapter) emit(level, msg string) {
	a.shipper.Enqueue(renderLine(level, "gnet", msg), 0)
}
