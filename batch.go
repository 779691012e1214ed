// FILE: batch.go
package relay

import (
	"time"
)

// batchBuilder drains the queue into batches bounded by the destination's
// limits. One builder per writer; never shared.
type batchBuilder struct {
	queue    *messageQueue
	limits   Limits
	truncate bool

	oversizeDropped func(r Record) // diagnostic hook for rejected oversize records
}

// build accumulates the next batch, waiting up to maxWait in total for
// records to arrive. It returns early once the batch is full, and returns
// nil when the queue stayed empty for the whole window. maxWait of zero
// polls without blocking (synchronous mode and the shutdown drain).
//
// A record that would push the batch past a limit is put back at the head
// for the next batch. A single record above the byte limit is truncated
// and sent alone when configured, otherwise dropped with a diagnostic.
// It is never split across calls.
func (b *batchBuilder) build(maxWait time.Duration) []Record {
	deadline := time.Now().Add(maxWait)

	var batch []Record
	bytes := 0

	for {
		if b.limits.MaxRecords > 0 && len(batch) >= b.limits.MaxRecords {
			return batch
		}
		if b.limits.MaxBytes > 0 && bytes >= b.limits.MaxBytes {
			return batch
		}

		needCount := 0
		if b.limits.MaxRecords > 0 {
			needCount = b.limits.MaxRecords - len(batch)
		}
		needBytes := 0
		if b.limits.MaxBytes > 0 {
			needBytes = b.limits.MaxBytes - bytes
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			if len(batch) > 0 {
				return batch
			}
			wait = 0
		}

		got := b.queue.drain(needCount, needBytes, wait)
		if len(got) == 0 {
			// Queue stayed empty for the remaining window
			if len(batch) == 0 {
				return nil
			}
			return batch
		}

		// The queue always releases its head record, so got[0] may exceed
		// the remaining byte budget; it then arrives alone.
		if needBytes > 0 && got[0].Size > needBytes {
			if len(batch) > 0 {
				// Fits a fresh batch, just not this one
				b.queue.putBack(got[0])
				return batch
			}
			if !b.truncate {
				if b.oversizeDropped != nil {
					b.oversizeDropped(got[0])
				}
				continue
			}
			return []Record{got[0].truncate(b.limits.MaxBytes)}
		}

		batch = append(batch, got...)
		for _, r := range got {
			bytes += r.Size
		}
	}
}
