// FILE: queue.go
package relay

import (
	"sync"
	"time"
)

// Discard actions applied when the queue sits at its threshold.
const (
	DiscardOldest = "oldest"
	DiscardNewest = "newest"
	DiscardNone   = "none"
)

// messageQueue is the bounded FIFO shared between producers and the writer.
// A mutex+cond deque rather than a channel: drain needs a timed wait plus
// putBack of an over-limit record, and DiscardOldest needs head eviction
// under the same lock as the admission decision.
type messageQueue struct {
	mu      sync.Mutex
	notify  *sync.Cond
	records []Record

	threshold int
	action    string
	closed    bool

	// High-water reporting for DiscardNone, fires when the backlog
	// doubles past the threshold
	highWater int

	dropped   func(n uint64) // admission drop callback, must not re-enter the queue
	highwater func(depth int)
}

func newMessageQueue(threshold int, action string) *messageQueue {
	q := &messageQueue{
		threshold: threshold,
		action:    action,
		highWater: threshold,
	}
	q.notify = sync.NewCond(&q.mu)
	return q
}

// enqueue admits a record subject to the discard policy. It never blocks
// beyond the in-memory admission decision. Returns false when the record
// was rejected or the queue is closed.
func (q *messageQueue) enqueue(r Record) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.reportDrop(1)
		return false
	}

	if q.threshold > 0 && len(q.records) >= q.threshold {
		switch q.action {
		case DiscardNewest:
			q.reportDrop(1)
			return false
		case DiscardNone:
			if len(q.records) >= q.highWater {
				if q.highwater != nil {
					q.highwater(len(q.records))
				}
				q.highWater *= 2
			}
		default: // DiscardOldest
			q.records = q.records[1:]
			q.reportDrop(1)
		}
	}

	q.records = append(q.records, r)
	q.notify.Signal()
	return true
}

// drain removes up to maxCount records totalling at most maxBytes,
// blocking up to maxWait only while the queue is empty. The first record
// is always returned even if it alone exceeds maxBytes; the caller owns
// the oversize decision.
func (q *messageQueue) drain(maxCount, maxBytes int, maxWait time.Duration) []Record {
	deadline := time.Now().Add(maxWait)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.records) == 0 && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		q.timedWait(remaining)
	}
	if len(q.records) == 0 {
		return nil
	}

	n := 0
	bytes := 0
	for n < len(q.records) && (maxCount <= 0 || n < maxCount) {
		sz := q.records[n].Size
		if n > 0 && maxBytes > 0 && bytes+sz > maxBytes {
			break
		}
		bytes += sz
		n++
	}

	out := make([]Record, n)
	copy(out, q.records[:n])
	q.records = q.records[n:]
	if len(q.records) == 0 {
		// Release the backing array so a drained burst does not pin memory
		q.records = nil
	}
	return out
}

// putBack returns a record to the head, preserving order for the next drain.
func (q *messageQueue) putBack(r Record) {
	q.mu.Lock()
	q.records = append([]Record{r}, q.records...)
	q.notify.Signal()
	q.mu.Unlock()
}

// depth reports the current backlog.
func (q *messageQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// close rejects all further enqueues and wakes any blocked drain.
// Records already queued remain drainable.
func (q *messageQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.notify.Broadcast()
	q.mu.Unlock()
}

func (q *messageQueue) reportDrop(n uint64) {
	if q.dropped != nil {
		q.dropped(n)
	}
}

// timedWait waits on the condition for at most d. Cond has no native
// timeout; an AfterFunc broadcast bounds the wait, and the caller's loop
// absorbs the spurious wakeup.
func (q *messageQueue) timedWait(d time.Duration) {
	t := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.notify.Broadcast()
		q.mu.Unlock()
	})
	q.notify.Wait()
	t.Stop()
}
