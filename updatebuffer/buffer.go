// Package updatebuffer implements the Update Buffer (spec.md §4.A): it
// accumulates built Solr documents and delete directives, and forces a
// dispatch to the Solr worker pool (or to a dump file) once a size or count
// threshold is crossed.
package updatebuffer

import "encoding/json"

// deleteBatchThreshold is the fixed delete-batching size (spec.md §4.A:
// "Delete batching threshold: 1000 ids").
const deleteBatchThreshold = 1000

// Sink receives flushed batches. In a live run this dispatches to the Solr
// worker pool; DumpSink below instead appends to a numbered dump file
// (spec.md §4.A, §4.I dump mode).
type Sink interface {
	SendUpdates(docs []map[string][]string) error
	SendDeletes(ids []string) error
}

// Buffer accumulates documents and delete ids and forces a flush once
// MaxRecords or MaxSizeBytes is crossed, matching spec.md §4.A's state:
// "an accumulating JSON fragment, byte length, item count, and a separate
// list of delete directives". It belongs to the flushing goroutine and is
// not safe for concurrent use (spec.md §8: "no lock is needed ... used
// single-threadedly by the Coordinator").
type Buffer struct {
	MaxRecords   int
	MaxSizeBytes int
	Sink         Sink

	docs     []map[string][]string
	docBytes int
	deletes  []string
}

// Append adds a built document to the buffer, forcing a flush of pending
// updates if either threshold is now exceeded.
func (b *Buffer) Append(doc map[string][]string) error {
	size, err := jsonSize(doc)
	if err != nil {
		return err
	}
	b.docs = append(b.docs, doc)
	b.docBytes += size

	if b.shouldFlushUpdates() {
		return b.flushUpdates()
	}
	return nil
}

// Delete records an id for deletion, forcing a flush once 1000 ids have
// accumulated.
func (b *Buffer) Delete(id string) error {
	b.deletes = append(b.deletes, id)
	if len(b.deletes) >= deleteBatchThreshold {
		return b.flushDeletes()
	}
	return nil
}

// Flush unconditionally dispatches any pending updates and deletes,
// regardless of threshold. Called on the commit interval and at stream
// drain (spec.md §4.A, §4.I).
func (b *Buffer) Flush() error {
	if err := b.flushUpdates(); err != nil {
		return err
	}
	return b.flushDeletes()
}

func (b *Buffer) shouldFlushUpdates() bool {
	if b.MaxRecords > 0 && len(b.docs) >= b.MaxRecords {
		return true
	}
	if b.MaxSizeBytes > 0 && b.docBytes >= b.MaxSizeBytes {
		return true
	}
	return false
}

func (b *Buffer) flushUpdates() error {
	if len(b.docs) == 0 {
		return nil
	}
	docs := b.docs
	b.docs = nil
	b.docBytes = 0
	return b.Sink.SendUpdates(docs)
}

func (b *Buffer) flushDeletes() error {
	if len(b.deletes) == 0 {
		return nil
	}
	ids := b.deletes
	b.deletes = nil
	return b.Sink.SendDeletes(ids)
}

// Pending reports the current in-memory item counts, for progress display.
func (b *Buffer) Pending() (docs, deletes int) {
	return len(b.docs), len(b.deletes)
}

func jsonSize(doc map[string][]string) (int, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
