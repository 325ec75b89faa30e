// Package sched holds the scheduling and caching primitives the
// analyzer runs on: a keyed debouncer, a bounded memo cache, deadline
// execution, a soft memory tracker and a background sweeper.
package sched

import (
	"sync"
	"time"
)

// Config carries the runtime tunables. The zero value is not useful;
// start from DefaultConfig.
type Config struct {
	// DebounceInterval is the quiet period before a scheduled analysis
	// fires.
	DebounceInterval time.Duration
	// ParseTimeout bounds one parse pass.
	ParseTimeout time.Duration
	// MaxFileSize is the largest document, in bytes, accepted for
	// analysis.
	MaxFileSize int64
	// LargeFileThreshold is the size, in bytes, above which analysis
	// yields between its parse and resolve phases.
	LargeFileThreshold int64
	// MemoCapacity is the entry cap of the parse memo.
	MemoCapacity int
	// MemoryThreshold is the soft cap, in bytes, on tracked in-flight
	// analysis memory. Crossing it raises a report, nothing more.
	MemoryThreshold int64
	// SweepInterval is how often the sweeper scans for idle entries.
	SweepInterval time.Duration
	// MemoMaxAge is how long an untouched memo entry survives a sweep.
	MemoMaxAge time.Duration
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		DebounceInterval:   300 * time.Millisecond,
		ParseTimeout:       5 * time.Second,
		MaxFileSize:        5 << 20,
		LargeFileThreshold: 100 << 10,
		MemoCapacity:       10000,
		MemoryThreshold:    64 << 20,
		SweepInterval:      time.Minute,
		MemoMaxAge:         5 * time.Minute,
	}
}

// withDefaults replaces non-positive fields with their defaults and
// reports which fields were corrected.
func (c Config) withDefaults() (Config, []string) {
	def := DefaultConfig()
	var fixed []string
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = def.DebounceInterval
		fixed = append(fixed, "debounce_interval")
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = def.ParseTimeout
		fixed = append(fixed, "parse_timeout")
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = def.MaxFileSize
		fixed = append(fixed, "max_file_size")
	}
	if c.LargeFileThreshold <= 0 {
		c.LargeFileThreshold = def.LargeFileThreshold
		fixed = append(fixed, "large_file_threshold")
	}
	if c.MemoCapacity <= 0 {
		c.MemoCapacity = def.MemoCapacity
		fixed = append(fixed, "memo_capacity")
	}
	if c.MemoryThreshold <= 0 {
		c.MemoryThreshold = def.MemoryThreshold
		fixed = append(fixed, "memory_threshold")
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
		fixed = append(fixed, "sweep_interval")
	}
	if c.MemoMaxAge <= 0 {
		c.MemoMaxAge = def.MemoMaxAge
		fixed = append(fixed, "memo_max_age")
	}
	return c, fixed
}

// Settings is a concurrency-safe holder for a Config that can be
// swapped while the analyzer is running.
type Settings struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSettings normalizes cfg and wraps it.
func NewSettings(cfg Config) *Settings {
	cfg, _ = cfg.withDefaults()
	return &Settings{cfg: cfg}
}

// Load returns the current config snapshot.
func (s *Settings) Load() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Store replaces the config. Non-positive fields fall back to their
// defaults; the corrected field names are returned so the caller can
// report them.
func (s *Settings) Store(cfg Config) (Config, []string) {
	cfg, fixed := cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, fixed
}
