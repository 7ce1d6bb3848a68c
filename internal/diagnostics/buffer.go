// Package diagnostics accumulates session-emitted events: console output,
// page exceptions, and failed network loads. The buffer is process-wide,
// append-only during a session's life, and cleared on session reset. It is a
// capped ring so a long-lived session cannot grow it without bound; when
// full, the oldest entries are overwritten and the drop count is reported in
// snapshots.
package diagnostics

import (
	"fmt"
	"sync"
	"time"
)

// Source identifies where an entry originated.
type Source string

const (
	SourceConsole   Source = "console"
	SourceException Source = "exception"
	SourceNetwork   Source = "network"
	SourceSession   Source = "session"
)

// Entry is one recorded diagnostic event.
type Entry struct {
	Time    time.Time `json:"time"`
	Source  Source    `json:"source"`
	Message string    `json:"message"`
}

// String renders an entry the way the console_logs tool presents it.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.UTC().Format(time.RFC3339Nano), e.Source, e.Message)
}

// Buffer is a fixed-capacity ring of entries, safe for concurrent append
// and read. Snapshot does not clear; Clear is explicit.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	start    int // index of the oldest entry
	size     int // number of valid entries
	recorded uint64
}

// NewBuffer creates a buffer holding at most capacity entries. Capacity
// must be positive.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// Record appends an entry, evicting the oldest when the ring is full.
func (b *Buffer) Record(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.size) % len(b.entries)
	b.entries[idx] = e
	if b.size < len(b.entries) {
		b.size++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
	b.recorded++
}

// Recordf formats and records an entry with the current time.
func (b *Buffer) Recordf(src Source, format string, args ...any) {
	b.Record(Entry{Source: src, Message: fmt.Sprintf(format, args...)})
}

// Snapshot returns the buffered entries in record order plus the number of
// entries dropped by ring eviction. It does not clear the buffer.
func (b *Buffer) Snapshot() (entries []Entry, dropped uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries = make([]Entry, b.size)
	for i := 0; i < b.size; i++ {
		entries[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return entries, b.recorded - uint64(b.size)
}

// Clear discards all buffered entries and the drop counter.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.size = 0
	b.recorded = 0
}

// Len reports the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}
