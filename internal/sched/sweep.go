package sched

import (
	"sync"
	"time"
)

// Sweeper periodically runs an eviction pass in the background.
type Sweeper struct {
	interval time.Duration
	maxAge   time.Duration
	sweep    func(maxAge time.Duration) int

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSweeper returns a Sweeper that calls sweep(maxAge) every interval
// once started. sweep returns how many entries it evicted; the count is
// only used by tests and callers that wrap sweep.
func NewSweeper(interval, maxAge time.Duration, sweep func(time.Duration) int) *Sweeper {
	return &Sweeper{
		interval: interval,
		maxAge:   maxAge,
		sweep:    sweep,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. Subsequent calls are no-ops.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop halts the loop and waits for it to exit. Stopping a Sweeper that
// never started is safe.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(s.maxAge)
		case <-s.stop:
			return
		}
	}
}
