// FILE: record.go
package relay

import (
	"time"
)

// Record is a single rendered log event awaiting delivery.
// It is immutable once enqueued: the queue owns it until drained,
// then the batch under construction owns it until a terminal outcome.
type Record struct {
	Timestamp time.Time
	Text      string
	Size      int // byte length used for batch accounting
}

// NewRecord builds a Record from rendered text. A non-positive size hint
// falls back to the text length.
func NewRecord(text string, sizeHint int) Record {
	if sizeHint <= 0 {
		sizeHint = len(text)
	}
	return Record{
		Timestamp: time.Now(),
		Text:      text,
		Size:      sizeHint,
	}
}

// truncate returns a copy of the record cut down to at most maxBytes,
// avoiding a split inside a UTF-8 sequence.
func (r Record) truncate(maxBytes int) Record {
	if r.Size <= maxBytes || maxBytes <= 0 {
		return r
	}
	cut := maxBytes
	if cut > len(r.Text) {
		cut = len(r.Text)
	}
	for cut > 0 && r.Text[cut-1]&0xC0 == 0x80 {
		cut--
	}
	return Record{
		Timestamp: r.Timestamp,
		Text:      r.Text[:cut],
		Size:      cut,
	}
}
