// Package compat answers support queries for canonical feature ids.
//
// Lookups fail open: an id the bundled dataset does not know resolves as
// supported, so a stale or trimmed dataset never turns into a wall of
// false positives. Every verdict is memoized, which also keeps repeat
// misses from flooding the reporter.
package compat

import (
	"sync"
	"sync/atomic"

	"github.com/mhollis/baselint/internal/catalog"
	"github.com/mhollis/baselint/internal/report"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithReporter routes resolver diagnostics through rep.
func WithReporter(rep report.Reporter) Option {
	return func(r *Resolver) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// Resolver resolves feature ids against a catalog and memoizes the
// support verdicts. The zero value is not usable; call New.
type Resolver struct {
	cat      *catalog.Catalog
	reporter report.Reporter

	mu      sync.Mutex
	verdict map[string]bool

	hits   atomic.Uint64
	misses atomic.Uint64

	warnOnce sync.Once
}

// New builds a Resolver over cat. A nil cat is tolerated: the resolver
// reports the condition once and answers every query as supported.
func New(cat *catalog.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		cat:      cat,
		reporter: report.Nop(),
		verdict:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record returns the catalog record for id, or false when the dataset
// does not carry it.
func (r *Resolver) Record(id string) (*catalog.Record, bool) {
	if r.cat == nil {
		r.warnUninitialized()
		return nil, false
	}
	return r.cat.Get(id)
}

// Supported reports whether id is safe to ship against the Baseline
// bar: anything except an explicit baseline=false record passes.
func (r *Resolver) Supported(id string) bool {
	if r.cat == nil {
		r.warnUninitialized()
		return true
	}

	r.mu.Lock()
	if v, ok := r.verdict[id]; ok {
		r.mu.Unlock()
		r.hits.Add(1)
		return v
	}
	r.mu.Unlock()

	rec, known := r.cat.Get(id)
	v := true
	if known {
		v = rec.Status.Baseline != catalog.LevelNone
	} else {
		r.misses.Add(1)
		r.reporter.Report(report.CategoryData, report.SeverityLow,
			"feature id not in dataset, failing open",
			map[string]any{"id": id})
	}

	r.mu.Lock()
	r.verdict[id] = v
	r.mu.Unlock()
	return v
}

// Stats returns how many verdicts were served from the memo and how
// many ids were missing from the dataset.
func (r *Resolver) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}

func (r *Resolver) warnUninitialized() {
	r.warnOnce.Do(func() {
		r.reporter.Report(report.CategoryValidation, report.SeverityHigh,
			"feature catalog unavailable, failing open", nil)
	})
}
