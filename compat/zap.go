// FILE: compat/zap.go
package compat

import (
	"go.uber.org/zap/zapcore"

	"github.com/relaylog/relay"
)

// ShipperCore is a zapcore.Core that renders each entry with the given
// encoder and enqueues the result for delivery. Plug it into a zap tee
// next to the application's console/file cores; admission follows the
// shipper's discard policy, so a slow destination can never stall zap.
type ShipperCore struct {
	zapcore.LevelEnabler
	enc     zapcore.Encoder
	shipper *relay.Shipper
}

// NewShipperCore creates a core delivering entries at or above the
// enabled level. Passing nil for the encoder selects a production JSON
// encoder.
func NewShipperCore(shipper *relay.Shipper, enc zapcore.Encoder, enab zapcore.LevelEnabler) *ShipperCore {
	if enc == nil {
		enc = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "ts",
			NameKey:        "logger",
			CallerKey:      "caller",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}
	return &ShipperCore{
		LevelEnabler: enab,
		enc:          enc,
		shipper:      shipper,
	}
}

// With adds structured context to the core.
func (c *ShipperCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.enc = c.enc.Clone()
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return &clone
}

// Check decides whether the entry should be written by this core.
func (c *ShipperCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write renders the entry and hands it to the shipper. A discarded
// record is not an error: delivery problems never propagate into zap.
func (c *ShipperCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := buf.String()
	size := buf.Len()
	buf.Free()

	// EncodeEntry appends the line ending; records carry bare text
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
		size--
	}

	c.shipper.Enqueue(line, size)
	return nil
}

// Sync flushes nothing: the shipper owns delivery timing.
func (c *ShipperCore) Sync() error {
	return nil
}
