package sched

import (
	"sync"

	"github.com/mhollis/baselint/internal/report"
)

// MemoryTracker keeps an additive estimate of bytes held by in-flight
// operations, keyed by operation id. The threshold is soft: crossing it
// raises one report per crossing, nothing is enforced here.
type MemoryTracker struct {
	mu        sync.Mutex
	ops       map[string]int64
	total     int64
	threshold int64
	over      bool
	reporter  report.Reporter
}

// NewMemoryTracker returns a tracker with the given soft threshold.
// A nil reporter drops threshold alerts.
func NewMemoryTracker(threshold int64, reporter report.Reporter) *MemoryTracker {
	if reporter == nil {
		reporter = report.Nop()
	}
	return &MemoryTracker{
		ops:       make(map[string]int64),
		threshold: threshold,
		reporter:  reporter,
	}
}

// Track records size bytes held by the operation. Tracking an id again
// replaces its previous size.
func (t *MemoryTracker) Track(opID string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += size - t.ops[opID]
	t.ops[opID] = size
	t.checkLocked()
}

// Release drops the operation's bytes and returns how many it held.
func (t *MemoryTracker) Release(opID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	size, ok := t.ops[opID]
	if !ok {
		return 0
	}
	delete(t.ops, opID)
	t.total -= size
	if t.total <= t.threshold {
		t.over = false
	}
	return size
}

// Used returns the current estimate across all in-flight operations.
func (t *MemoryTracker) Used() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// InFlight returns how many operations are currently tracked.
func (t *MemoryTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// SetThreshold replaces the soft threshold.
func (t *MemoryTracker) SetThreshold(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threshold = n
	t.over = t.total > t.threshold
}

// OverThreshold reports whether the estimate exceeds the threshold.
func (t *MemoryTracker) OverThreshold() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total > t.threshold
}

// checkLocked raises one report each time the total crosses the
// threshold from below.
func (t *MemoryTracker) checkLocked() {
	if t.total <= t.threshold || t.over {
		return
	}
	t.over = true
	t.reporter.Report(report.CategoryResource, report.SeverityHigh,
		"tracked memory over soft threshold", map[string]any{
			"used_bytes":      t.total,
			"threshold_bytes": t.threshold,
			"operations":      len(t.ops),
		})
}
