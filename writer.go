// FILE: writer.go
package relay

import (
	"context"
	"time"
)

// writerThread is the dedicated worker for one destination. It owns the
// destination's write lifecycle: initialization, batch building, the
// send/retry loop, and the bounded shutdown drain. Exactly one goroutine
// runs per writer; the queue is its only link to producers, and no queue
// lock is ever held across a remote call.
type writerThread struct {
	cfg     *Config
	queue   *messageQueue
	facade  Facade
	builder *batchBuilder
	state   *State
	metrics *metricSet

	internalLog func(format string, args ...any)

	stopCh chan struct{} // closed to request STOPPING
	doneCh chan struct{} // closed once the writer reaches STOPPED or FAILED

	// Capability probed once at start; non-nil only for a shared writer
	// over a sequenced destination
	seq SequencedFacade

	// Deduplicates the destination-scoped diagnostic so a FAILED or
	// missing-destination condition is reported once, not per batch
	lastReported Reason
	anyReported  bool
}

func newWriterThread(cfg *Config, queue *messageQueue, facade Facade, state *State, metrics *metricSet, diag func(string, ...any)) *writerThread {
	w := &writerThread{
		cfg:         cfg,
		queue:       queue,
		facade:      facade,
		state:       state,
		metrics:     metrics,
		internalLog: diag,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	w.builder = &batchBuilder{
		queue:    queue,
		limits:   facade.Limits(),
		truncate: cfg.TruncateOversize,
		oversizeDropped: func(r Record) {
			state.DroppedDelivery.Add(1)
			metrics.addDroppedDelivery(1)
			diag("oversize record rejected (%d bytes > %d byte batch limit) for %s\n",
				r.Size, facade.Limits().MaxBytes, facade.Describe())
		},
	}
	return w
}

// run is the writer goroutine body.
func (w *writerThread) run() {
	defer w.state.WriterExited.Store(true)
	defer close(w.doneCh)

	if !w.initialize() {
		return // FAILED; diagnostic already emitted
	}

	w.state.WriterState.Store(StateRunning)

	for {
		select {
		case <-w.stopCh:
			w.drainAndStop()
			return
		default:
		}

		batch := w.builder.build(w.cfg.batchDelay())
		if len(batch) == 0 {
			continue
		}

		if !w.sendWithRetry(batch, time.Time{}) {
			if w.state.WriterState.Load() == StateFailed {
				return
			}
		}
	}
}

// initialize resolves the destination and verifies or creates it, bounded
// by the configured initialization timeout. Producers keep enqueueing
// while this runs. Returns false after transitioning to FAILED.
func (w *writerThread) initialize() bool {
	w.state.WriterState.Store(StateInitializing)

	// One-time capability probe; a shared writer needs sequence refresh
	// on conflict, a dedicated writer trusts its optimistic sequencing
	if !w.cfg.DedicatedWriter {
		if sf, ok := w.facade.(SequencedFacade); ok {
			w.seq = sf
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.initTimeout())
	defer cancel()

	attempt := 0
	for {
		err := w.facade.EnsureDestination(ctx)
		if err == nil {
			return true
		}

		fe := AsFacadeError(err)
		if fe.Reason == ReasonAlreadyExists {
			// Creation raced another writer; the destination is there
			return true
		}

		if ctx.Err() != nil {
			w.fail("destination %s not ready within %v: %v\n",
				w.facade.Describe(), w.cfg.initTimeout(), err)
			return false
		}

		if !fe.Retryable {
			w.fail("cannot initialize destination %s: %v\n", w.facade.Describe(), err)
			return false
		}

		delay := backoffDelay(w.cfg.retryBaseDelay(), w.cfg.retryMaxDelay(), attempt)
		attempt++
		select {
		case <-ctx.Done():
			w.fail("destination %s not ready within %v\n", w.facade.Describe(), w.cfg.initTimeout())
			return false
		case <-time.After(delay):
		}
	}
}

// sendWithRetry delivers one batch, retrying retryable failures with
// exponential backoff up to the configured attempt count. The same batch
// is retried; it is never re-enqueued, so an unsendable batch cannot grow
// the queue. A non-zero grace deadline (shutdown drain) bounds the total
// time spent. Returns true on delivery.
func (w *writerThread) sendWithRetry(batch []Record, grace time.Time) bool {
	attempt := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Destination.CallTimeout())
		err := w.facade.SendBatch(ctx, batch)
		cancel()

		if err == nil {
			w.recordSuccess(batch)
			return true
		}

		fe := AsFacadeError(err)

		retryable := fe.Retryable
		if fe.Reason == ReasonConcurrentWriter {
			// Shared writers re-fetch sequencing state and retry; a
			// dedicated writer owns the destination, so a conflict is a
			// one-off it only logs
			retryable = w.seq != nil
		}

		if retryable {
			if attempt >= int(w.cfg.MaxRetries) {
				w.dropBatch(batch, "retries exhausted after %d attempts for %s: %v\n",
					attempt+1, w.facade.Describe(), err)
				return false
			}

			delay := backoffDelay(w.cfg.retryBaseDelay(), w.cfg.retryMaxDelay(), attempt)
			if !grace.IsZero() && time.Now().Add(delay).After(grace) {
				w.dropBatch(batch, "shutdown grace window expired retrying %s: %v\n",
					w.facade.Describe(), err)
				return false
			}

			attempt++
			w.state.Retries.Add(1)
			w.metrics.addRetry()
			time.Sleep(delay)

			if w.seq != nil && fe.Reason == ReasonConcurrentWriter {
				refreshCtx, refreshCancel := context.WithTimeout(context.Background(), w.cfg.Destination.CallTimeout())
				if rerr := w.seq.RefreshSequence(refreshCtx); rerr != nil {
					w.internalLog("sequence refresh failed for %s: %v\n", w.facade.Describe(), rerr)
				}
				refreshCancel()
			}
			continue
		}

		switch fe.Reason {
		case ReasonInvalidConfiguration:
			w.dropBatch(batch, "")
			w.fail("destination %s misconfigured, writer disabled: %v\n", w.facade.Describe(), err)
			return false

		case ReasonMissingDestination:
			w.reportOnce(fe.Reason, "destination %s is missing, batch dropped: %v\n",
				w.facade.Describe(), err)
			w.dropBatch(batch, "")
			// Recreate before the next batch; only a configuration-level
			// refusal means the destination can never succeed again
			ensureCtx, ensureCancel := context.WithTimeout(context.Background(), w.cfg.Destination.CallTimeout())
			eerr := w.facade.EnsureDestination(ensureCtx)
			ensureCancel()
			if eerr != nil {
				if efe := AsFacadeError(eerr); efe.Reason == ReasonInvalidConfiguration {
					w.fail("cannot recreate destination %s: %v\n", w.facade.Describe(), eerr)
				}
			}
			return false

		default:
			// A single bad batch must never terminate the writer
			w.dropBatch(batch, "unexpected send failure for %s, batch dropped: %v\n",
				w.facade.Describe(), err)
			return false
		}
	}
}

// drainAndStop flushes currently queued records within the grace window,
// then stops regardless of outcome.
func (w *writerThread) drainAndStop() {
	w.state.WriterState.Store(StateStopping)
	grace := time.Now().Add(w.cfg.shutdownTimeout())

	for time.Now().Before(grace) {
		batch := w.builder.build(0)
		if len(batch) == 0 {
			break
		}
		w.sendWithRetry(batch, grace)
		if w.state.WriterState.Load() == StateFailed {
			return
		}
	}

	if depth := w.queue.depth(); depth > 0 {
		w.internalLog("%d records abandoned at shutdown for %s\n", depth, w.facade.Describe())
		w.state.DroppedDelivery.Add(uint64(depth))
		w.metrics.addDroppedDelivery(uint64(depth))
	}

	w.state.WriterState.Store(StateStopped)
}

// stop requests the STOPPING transition. Safe to call once.
func (w *writerThread) stop() {
	close(w.stopCh)
}

func (w *writerThread) recordSuccess(batch []Record) {
	w.state.Delivered.Add(uint64(len(batch)))
	w.state.BatchesSent.Add(1)
	w.metrics.addDelivered(uint64(len(batch)))
	w.anyReported = false // Destination recovered; report the next condition again
}

func (w *writerThread) dropBatch(batch []Record, format string, args ...any) {
	w.state.DroppedDelivery.Add(uint64(len(batch)))
	w.state.SendFailures.Add(1)
	w.metrics.addDroppedDelivery(uint64(len(batch)))
	w.metrics.addSendFailure()
	if format != "" {
		w.internalLog(format, args...)
	}
}

// reportOnce emits a destination-scoped diagnostic once per condition,
// not once per batch.
func (w *writerThread) reportOnce(reason Reason, format string, args ...any) {
	if w.anyReported && w.lastReported == reason {
		return
	}
	w.anyReported = true
	w.lastReported = reason
	w.internalLog(format, args...)
}

// fail transitions to FAILED with a single diagnostic. The writer
// goroutine exits right after, so the condition is never re-reported.
func (w *writerThread) fail(format string, args ...any) {
	w.state.WriterState.Store(StateFailed)
	w.internalLog(format, args...)
}
