package sched

import (
	"math"
	"sort"
	"sync"
	"time"
)

// evictFraction is the share of entries dropped when the memo fills.
// Evicting in batches keeps the sort cost off the hot path.
const evictFraction = 0.25

type memoEntry[V any] struct {
	value       V
	lastAccess  time.Time
	accessCount uint64
}

// MemoStats is a point-in-time view of a Memo's counters.
type MemoStats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Memo is a bounded memoization cache keyed by string. When an insert
// would push it past capacity, the least used quarter (fewest
// accesses, oldest access breaking ties) is evicted in one sweep.
type Memo[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*memoEntry[V]
	onEvict  func(key string, value V)

	hits      uint64
	misses    uint64
	evictions uint64

	// now is a test seam.
	now func() time.Time
}

// NewMemo returns a Memo holding at most capacity entries.
func NewMemo[V any](capacity int) *Memo[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Memo[V]{
		capacity: capacity,
		entries:  make(map[string]*memoEntry[V]),
		now:      time.Now,
	}
}

// OnEvict registers fn to run for every entry the memo removes, on any
// path: batch eviction, idle sweep, delete, purge. fn runs with the
// memo locked and must not call back into it.
func (m *Memo[V]) OnEvict(fn func(key string, value V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// SetCapacity changes the memo's bound, evicting in batches until the
// contents fit. Capacities below one are raised to one.
func (m *Memo[V]) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = capacity
	for len(m.entries) > m.capacity {
		m.evictBatchLocked()
	}
}

// Shrink forces one batch eviction and returns how many entries were
// dropped. Callers use it to shed cache weight under memory pressure.
func (m *Memo[V]) Shrink() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictBatchLocked()
}

// Get returns the cached value for key, bumping its access stats.
func (m *Memo[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		var zero V
		return zero, false
	}
	m.hits++
	e.lastAccess = m.now()
	e.accessCount++
	return e.value, true
}

// GetOrCompute returns the cached value for key, computing and storing
// it on a miss. Compute errors are returned and nothing is cached.
// Concurrent misses on one key may compute twice; the last write wins,
// which is harmless for pure computations.
func (m *Memo[V]) GetOrCompute(key string, fn func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}
	m.Put(key, v)
	return v, nil
}

// Put stores value under key, evicting a batch first if the memo is at
// capacity and key is new.
func (m *Memo[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.value = value
		e.lastAccess = m.now()
		return
	}
	if len(m.entries) >= m.capacity {
		m.evictBatchLocked()
	}
	m.entries[key] = &memoEntry[V]{value: value, lastAccess: m.now(), accessCount: 1}
}

// removeLocked drops one entry, firing the eviction callback first.
func (m *Memo[V]) removeLocked(key string, e *memoEntry[V]) {
	if m.onEvict != nil {
		m.onEvict(key, e.value)
	}
	delete(m.entries, key)
}

// Delete removes key, reporting whether it was present.
func (m *Memo[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	m.removeLocked(key, e)
	return true
}

// DeletePrefix removes every entry whose key starts with prefix and
// returns how many were dropped. Content-hashed keys share their
// document's uri as a prefix, so this is how a closed document leaves
// the cache.
func (m *Memo[V]) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped int
	for key, e := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			m.removeLocked(key, e)
			dropped++
		}
	}
	return dropped
}

// EvictIdle removes entries untouched for longer than maxAge and
// returns how many were dropped.
func (m *Memo[V]) EvictIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	var dropped int
	for key, e := range m.entries {
		if e.lastAccess.Before(cutoff) {
			m.removeLocked(key, e)
			dropped++
		}
	}
	m.evictions += uint64(dropped)
	return dropped
}

// Purge empties the memo.
func (m *Memo[V]) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onEvict != nil {
		for key, e := range m.entries {
			m.onEvict(key, e.value)
		}
	}
	m.entries = make(map[string]*memoEntry[V])
}

// Len returns the number of cached entries.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns the current counters.
func (m *Memo[V]) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{Len: len(m.entries), Hits: m.hits, Misses: m.misses, Evictions: m.evictions}
}

func (m *Memo[V]) evictBatchLocked() int {
	if len(m.entries) == 0 {
		return 0
	}
	n := int(math.Ceil(float64(len(m.entries)) * evictFraction))
	if n < 1 {
		n = 1
	}

	type candidate struct {
		key   string
		count uint64
		last  time.Time
	}
	cands := make([]candidate, 0, len(m.entries))
	for key, e := range m.entries {
		cands = append(cands, candidate{key: key, count: e.accessCount, last: e.lastAccess})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].count != cands[j].count {
			return cands[i].count < cands[j].count
		}
		return cands[i].last.Before(cands[j].last)
	})

	for _, c := range cands[:n] {
		if m.onEvict != nil {
			m.onEvict(c.key, m.entries[c.key].value)
		}
		delete(m.entries, c.key)
	}
	m.evictions += uint64(n)
	return n
}
