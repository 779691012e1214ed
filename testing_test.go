// FILE: testing_test.go
package relay

import (
	"context"
	"sync"
	"time"
)

// fakeFacade scripts remote outcomes for writer and shipper tests. Each
// SendBatch call consumes the next scripted error; past the script it
// succeeds. Batches are copied so later mutation cannot hide ordering
// bugs.
type fakeFacade struct {
	mu sync.Mutex

	limits      Limits
	ensureErrs  []error
	sendErrs    []error
	ensureCalls int
	sendCalls   int
	refreshes   int
	closed      bool

	batches [][]Record
}

func newFakeFacade(limits Limits) *fakeFacade {
	if limits.MaxRecords == 0 && limits.MaxBytes == 0 {
		limits = Limits{MaxRecords: 100, MaxBytes: 1 << 20}
	}
	return &fakeFacade{limits: limits}
}

func (f *fakeFacade) scriptEnsure(errs ...error) {
	f.mu.Lock()
	f.ensureErrs = append(f.ensureErrs, errs...)
	f.mu.Unlock()
}

func (f *fakeFacade) scriptSend(errs ...error) {
	f.mu.Lock()
	f.sendErrs = append(f.sendErrs, errs...)
	f.mu.Unlock()
}

func (f *fakeFacade) EnsureDestination(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if len(f.ensureErrs) > 0 {
		err := f.ensureErrs[0]
		f.ensureErrs = f.ensureErrs[1:]
		return err
	}
	return ctx.Err()
}

func (f *fakeFacade) SendBatch(ctx context.Context, batch []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	cp := make([]Record, len(batch))
	copy(cp, batch)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeFacade) Limits() Limits   { return f.limits }
func (f *fakeFacade) Describe() string { return "fake:test" }
func (f *fakeFacade) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeFacade) sentBatches() [][]Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]Record, len(f.batches))
	copy(out, f.batches)
	return out
}

func (f *fakeFacade) sentTexts() []string {
	var texts []string
	for _, b := range f.sentBatches() {
		for _, r := range b {
			texts = append(texts, r.Text)
		}
	}
	return texts
}

func (f *fakeFacade) counts() (ensure, send int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureCalls, f.sendCalls
}

// sequencedFakeFacade adds the sequence-refresh capability.
type sequencedFakeFacade struct {
	*fakeFacade
}

func (f *sequencedFakeFacade) RefreshSequence(ctx context.Context) error {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	return nil
}

// fastConfig returns a config with millisecond-scale timings so tests
// stay quick.
func fastConfig() *Config {
	cfg := DefaultConfig()
	cfg.BatchDelayMs = 20
	cfg.InitTimeoutMs = 500
	cfg.MaxRetries = 2
	cfg.RetryBaseDelayMs = 5
	cfg.RetryMaxDelayMs = 20
	cfg.ShutdownTimeoutMs = 500
	cfg.Destination.TimeoutMs = 200
	return cfg
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func throttled() error {
	return NewFacadeError("fake.send", ReasonThrottling, true, nil, "slow down")
}

func misconfigured() error {
	return NewFacadeError("fake.send", ReasonInvalidConfiguration, false, nil, "bad credentials")
}

func missingDest() error {
	return NewFacadeError("fake.send", ReasonMissingDestination, false, nil, "stream deleted")
}
