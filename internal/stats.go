package internal

import (
	"sync/atomic"
	"time"
)

// ScanStats atomic counters for totals
type ScanStats struct {
	start         time.Time
	Entries       atomic.Int64
	Skipped       atomic.Int64
	ProbeFailures atomic.Int64
	WalkFailures  atomic.Int64
	Hidden        atomic.Int64
	Extracted     atomic.Int64
	Created       atomic.Int64
	Failed        atomic.Int64
}

func (s *ScanStats) Start() {
	s.start = time.Now()
}

func (s *ScanStats) Elapsed() time.Duration {
	return time.Since(s.start)
}
