// FILE: facade.go
package relay

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies a remote-call failure. The facade is the only layer
// that inspects raw remote errors; the writer dispatches on the reason
// code and retryable flag alone.
type Reason int

const (
	// ReasonUnexpected covers failures with no better classification.
	ReasonUnexpected Reason = iota
	// ReasonInvalidConfiguration marks a destination identity or credential
	// problem that no retry can fix.
	ReasonInvalidConfiguration
	// ReasonMissingDestination means the destination does not exist.
	ReasonMissingDestination
	// ReasonAlreadyExists is reported by destination creation when the
	// destination was already present. Callers treat it as success.
	ReasonAlreadyExists
	// ReasonThrottling means the remote rejected the call due to rate
	// limits. Always retryable.
	ReasonThrottling
	// ReasonConcurrentWriter marks a sequencing conflict with another
	// writer of the same destination.
	ReasonConcurrentWriter
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidConfiguration:
		return "INVALID_CONFIGURATION"
	case ReasonMissingDestination:
		return "MISSING_DESTINATION"
	case ReasonAlreadyExists:
		return "ALREADY_EXISTS"
	case ReasonThrottling:
		return "THROTTLING"
	case ReasonConcurrentWriter:
		return "CONCURRENT_WRITER"
	default:
		return "UNEXPECTED_EXCEPTION"
	}
}

// FacadeError is the only failure shape the writer understands. It carries
// enough context for a standalone diagnostic.
type FacadeError struct {
	Reason    Reason
	Retryable bool
	Message   string
	Op        string // facade operation that failed, e.g. "http.send"
	Cause     error
}

func (e *FacadeError) Error() string {
	msg := fmt.Sprintf("%s [%s, retryable=%t]", e.Message, e.Reason, e.Retryable)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FacadeError) Unwrap() error {
	return e.Cause
}

// NewFacadeError builds a classified error. THROTTLING is forced retryable
// and INVALID_CONFIGURATION forced non-retryable regardless of the flag,
// keeping the fixed taxonomy semantics in one place.
func NewFacadeError(op string, reason Reason, retryable bool, cause error, format string, args ...any) *FacadeError {
	switch reason {
	case ReasonThrottling:
		retryable = true
	case ReasonInvalidConfiguration:
		retryable = false
	}
	return &FacadeError{
		Reason:    reason,
		Retryable: retryable,
		Message:   fmt.Sprintf(format, args...),
		Op:        op,
		Cause:     cause,
	}
}

// AsFacadeError extracts the classification from any error returned by a
// facade. Unclassified errors come back as non-retryable UNEXPECTED.
func AsFacadeError(err error) *FacadeError {
	if err == nil {
		return nil
	}
	var fe *FacadeError
	if errors.As(err, &fe) {
		return fe
	}
	return &FacadeError{
		Reason:    ReasonUnexpected,
		Retryable: false,
		Message:   err.Error(),
		Cause:     err,
	}
}

// Limits are the destination-specific batch bounds.
type Limits struct {
	MaxRecords int // max records per remote call
	MaxBytes   int // max cumulative payload bytes per remote call
}

// Facade is the synchronous wrapper around one remote destination. Every
// failure it returns is a *FacadeError; raw remote errors never leak past
// it. Implementations live in the dest package.
type Facade interface {
	// EnsureDestination verifies or creates the destination. An
	// already-exists outcome is success and returns nil.
	EnsureDestination(ctx context.Context) error

	// SendBatch delivers the batch in a single remote call.
	SendBatch(ctx context.Context, batch []Record) error

	// Limits reports the destination's batch bounds.
	Limits() Limits

	// Describe identifies the destination for diagnostics.
	Describe() string

	// Close releases remote connections. Called once, after the writer
	// has stopped.
	Close() error
}

// SequencedFacade is an optional capability for destinations with write
// sequencing. A shared writer re-fetches sequencing state through it after
// a CONCURRENT_WRITER conflict. The writer probes for it once at start,
// not per call.
type SequencedFacade interface {
	Facade
	RefreshSequence(ctx context.Context) error
}
