package sched

import (
	"sync"
	"time"

	"github.com/mhollis/baselint/internal/report"
)

// Debouncer coalesces bursts of calls per key. Each Schedule resets the
// key's timer, so fn fires once per burst, with whatever the latest
// call closed over. Callbacks run on timer goroutines; the caller that
// scheduled them is long gone, so panics are recovered and reported
// instead of crashing the timer goroutine.
type Debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	reporter report.Reporter
}

// NewDebouncer returns an empty Debouncer. A nil reporter drops panic
// reports.
func NewDebouncer(reporter report.Reporter) *Debouncer {
	if reporter == nil {
		reporter = report.Nop()
	}
	return &Debouncer{timers: make(map[string]*time.Timer), reporter: reporter}
}

// Schedule arranges for fn to run after delay, replacing any pending
// callback for the same key.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				d.reporter.Report(report.CategoryUnknown, report.SeverityHigh,
					"debounced callback panicked", map[string]any{
						"key":   key,
						"panic": r,
					})
			}
		}()
		fn()
	})
}

// Cancel drops the pending callback for key, reporting whether one was
// pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[key]
	if ok {
		t.Stop()
		delete(d.timers, key)
	}
	return ok
}

// Stop cancels every pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending returns how many keys have a callback scheduled.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
