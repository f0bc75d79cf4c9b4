package rfid

import (
	"sync"
	"time"
)

// Debouncer drops repeated reads of the same tag inside a sliding window.
// It is safe for concurrent use.
type Debouncer struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// Option configures a Debouncer
type Option func(*Debouncer)

// WithClock replaces the wall clock. Tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(d *Debouncer) { d.now = now }
}

func NewDebouncer(opts ...Option) *Debouncer {
	d := &Debouncer{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ShouldProcess reports whether epc was last accepted more than window ago.
// A read exactly one window later is still a duplicate. Only accepted reads
// refresh the recorded time, so a tag held in front of a reader is accepted
// once per window.
func (d *Debouncer) ShouldProcess(epc string, window time.Duration) bool {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[epc]; ok && now.Sub(last) <= window {
		return false
	}
	d.seen[epc] = now
	return true
}

// Sweep forgets tags last accepted more than olderThan ago and returns how many were removed.
func (d *Debouncer) Sweep(olderThan time.Duration) int {
	cutoff := d.now().Add(-olderThan)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for epc, last := range d.seen {
		if last.Before(cutoff) {
			delete(d.seen, epc)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tags.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
