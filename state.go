// FILE: state.go
package relay

import (
	"sync/atomic"
)

// Writer lifecycle states
const (
	StateNew int32 = iota
	StateInitializing
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

// StateName returns the display name of a writer state.
func StateName(s int32) string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// State encapsulates the runtime state of the shipper
type State struct {
	Started        atomic.Bool
	ShutdownCalled atomic.Bool
	WriterExited   atomic.Bool // Tracks whether the writer goroutine has exited

	WriterState atomic.Int32 // One of the State* constants

	// Counters
	Enqueued        atomic.Uint64 // Records admitted to the queue
	DroppedAdmit    atomic.Uint64 // Records rejected or evicted at admission
	DroppedDelivery atomic.Uint64 // Records dropped after exhausted retries or terminal failures
	Delivered       atomic.Uint64 // Records confirmed sent
	BatchesSent     atomic.Uint64 // Successful remote calls
	Retries         atomic.Uint64 // Retry attempts performed
	SendFailures    atomic.Uint64 // Batches that reached a terminal failure
}

// Stats is a point-in-time snapshot of the shipper counters.
type Stats struct {
	WriterState     string
	Enqueued        uint64
	DroppedAdmit    uint64
	DroppedDelivery uint64
	Delivered       uint64
	BatchesSent     uint64
	Retries         uint64
	SendFailures    uint64
}

// Stats returns a snapshot of the delivery counters.
func (s *Shipper) Stats() Stats {
	return Stats{
		WriterState:     StateName(s.state.WriterState.Load()),
		Enqueued:        s.state.Enqueued.Load(),
		DroppedAdmit:    s.state.DroppedAdmit.Load(),
		DroppedDelivery: s.state.DroppedDelivery.Load(),
		Delivered:       s.state.Delivered.Load(),
		BatchesSent:     s.state.BatchesSent.Load(),
		Retries:         s.state.Retries.Load(),
		SendFailures:    s.state.SendFailures.Load(),
	}
}
