// FILE: shipper.go
package relay

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Shipper is the producer-facing half of the delivery pipeline. Producers
// enqueue rendered records; a dedicated writer goroutine drains, batches
// and delivers them. Enqueue never blocks on network and never panics: a
// delivery problem can cost records, never the host application.
type Shipper struct {
	cfg    *Config
	facade Facade

	queue   *messageQueue
	state   State
	metrics *metricSet

	startMu sync.Mutex
	writer  *writerThread

	syncMu sync.Mutex // serializes synchronous-mode sends
}

// New creates a Shipper delivering to the given facade. Construction is
// configure-once: the config is validated here and not mutable afterwards.
// The writer starts lazily on first enqueue unless EagerStart is set.
func New(cfg *Config, facade Facade) (*Shipper, error) {
	if cfg == nil {
		return nil, fmtErrorf("configuration cannot be nil")
	}
	if facade == nil {
		return nil, fmtErrorf("facade cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmtErrorf("invalid configuration: %w", err)
	}

	cfg = cfg.Clone()

	s := &Shipper{
		cfg:    cfg,
		facade: facade,
	}
	s.state.WriterState.Store(StateNew)
	s.state.WriterExited.Store(true)

	if cfg.EnableMetrics {
		s.metrics = newMetricSet(facade.Describe())
	}

	s.queue = newMessageQueue(int(cfg.DiscardThreshold), cfg.DiscardAction)
	s.queue.dropped = func(n uint64) {
		s.state.DroppedAdmit.Add(n)
		s.metrics.addDroppedAdmit(n)
	}
	s.queue.highwater = func(depth int) {
		s.internalLog("queue backlog at %d records with discard disabled for %s\n",
			depth, facade.Describe())
	}

	if cfg.EagerStart && !cfg.Synchronous {
		s.ensureStarted()
	}

	return s, nil
}

// Enqueue renders admission for one event. It returns whether the record
// was accepted; it never returns an error and never blocks beyond the
// in-memory discard decision (synchronous mode excepted, where the remote
// send happens inline on the caller's stack).
func (s *Shipper) Enqueue(text string, sizeHint int) bool {
	return s.EnqueueRecord(NewRecord(text, sizeHint))
}

// EnqueueRecord admits a pre-built record.
func (s *Shipper) EnqueueRecord(r Record) bool {
	if s.state.ShutdownCalled.Load() {
		s.state.DroppedAdmit.Add(1)
		s.metrics.addDroppedAdmit(1)
		return false
	}

	if s.cfg.Synchronous {
		return s.sendInline(r)
	}

	s.ensureStarted()

	if !s.queue.enqueue(r) {
		return false
	}
	s.state.Enqueued.Add(1)
	s.metrics.addEnqueued()
	return true
}

// Start eagerly creates the writer instead of waiting for the first
// enqueue. No-op in synchronous mode and when already started.
func (s *Shipper) Start() {
	if !s.cfg.Synchronous {
		s.ensureStarted()
	}
}

// Shutdown stops admission, asks the writer to flush queued records
// within the grace window, and closes the facade. Records enqueued after
// the shutdown signal are rejected. The optional timeout overrides the
// configured wait for the writer to quiesce; on expiry the writer is
// abandoned and still-queued records are lost.
func (s *Shipper) Shutdown(timeout ...time.Duration) error {
	if !s.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	s.queue.close()

	var effectiveTimeout time.Duration
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	} else {
		// Grace window plus margin for an in-flight call to finish
		effectiveTimeout = s.cfg.shutdownTimeout() + s.cfg.Destination.CallTimeout()
	}

	var finalErr error

	s.startMu.Lock()
	w := s.writer
	s.startMu.Unlock()

	if w != nil && s.state.Started.Load() {
		w.stop()
		select {
		case <-w.doneCh:
		case <-time.After(effectiveTimeout):
			finalErr = fmtErrorf("writer did not stop within %v, %d records abandoned",
				effectiveTimeout, s.queue.depth())
		}
	}

	if err := s.facade.Close(); err != nil {
		finalErr = combineErrors(finalErr, fmtErrorf("failed to close facade: %w", err))
	}

	return finalErr
}

// WriterState reports the current lifecycle state name.
func (s *Shipper) WriterState() string {
	return StateName(s.state.WriterState.Load())
}

// QueueDepth reports the current backlog.
func (s *Shipper) QueueDepth() int {
	return s.queue.depth()
}

// ensureStarted lazily creates the writer goroutine on first use.
func (s *Shipper) ensureStarted() {
	if s.state.Started.Load() {
		return
	}
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.state.Started.Load() {
		return
	}

	s.writer = newWriterThread(s.cfg, s.queue, s.facade, &s.state, s.metrics, s.internalLog)
	s.state.WriterExited.Store(false)
	s.state.Started.Store(true)
	go s.writer.run()
}

// sendInline performs the synchronous-mode delivery on the producer's
// call stack. Concurrent callers are serialized on syncMu.
func (s *Shipper) sendInline(r Record) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	w := s.inlineWriter()

	switch s.state.WriterState.Load() {
	case StateFailed:
		s.state.DroppedDelivery.Add(1)
		s.metrics.addDroppedDelivery(1)
		return false
	case StateNew:
		if !w.initialize() {
			s.state.DroppedDelivery.Add(1)
			s.metrics.addDroppedDelivery(1)
			return false
		}
		s.state.WriterState.Store(StateRunning)
	}

	limits := s.facade.Limits()
	if limits.MaxBytes > 0 && r.Size > limits.MaxBytes {
		if !s.cfg.TruncateOversize {
			s.state.DroppedDelivery.Add(1)
			s.metrics.addDroppedDelivery(1)
			s.internalLog("oversize record rejected (%d bytes > %d byte batch limit) for %s\n",
				r.Size, limits.MaxBytes, s.facade.Describe())
			return false
		}
		r = r.truncate(limits.MaxBytes)
	}

	s.state.Enqueued.Add(1)
	s.metrics.addEnqueued()
	return w.sendWithRetry([]Record{r}, time.Time{})
}

// inlineWriter returns the writer used for classification and retry in
// synchronous mode. Its goroutine is never started.
func (s *Shipper) inlineWriter() *writerThread {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.writer == nil {
		s.writer = newWriterThread(s.cfg, s.queue, s.facade, &s.state, s.metrics, s.internalLog)
	}
	return s.writer
}

// internalLog writes internal shipper diagnostics to stderr, if enabled.
func (s *Shipper) internalLog(format string, args ...any) {
	if !s.cfg.InternalErrorsToStderr {
		return
	}
	if !strings.HasPrefix(format, "relay: ") {
		format = "relay: " + format
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
