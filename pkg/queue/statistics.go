package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks queue activity. Counters use atomics; depth tracking is
// mutex-protected alongside the high-water mark.
type Statistics struct {
	pushes int64
	pops   int64
	peeks  int64

	mu           sync.RWMutex
	startTime    time.Time
	currentDepth int64
	maxDepth     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Push records a push operation.
func (s *Statistics) Push() {
	atomic.AddInt64(&s.pushes, 1)
}

// Pop records a pop operation.
func (s *Statistics) Pop() {
	atomic.AddInt64(&s.pops, 1)
}

// Peek records a peek operation.
func (s *Statistics) Peek() {
	atomic.AddInt64(&s.peeks, 1)
}

// UpdateDepth updates the current queue depth and high-water mark.
func (s *Statistics) UpdateDepth(depth int64) {
	s.mu.Lock()
	s.currentDepth = depth
	if depth > s.maxDepth {
		s.maxDepth = depth
	}
	s.mu.Unlock()
}

// Pushes returns the total number of push operations.
func (s *Statistics) Pushes() int64 {
	return atomic.LoadInt64(&s.pushes)
}

// Pops returns the total number of pop operations.
func (s *Statistics) Pops() int64 {
	return atomic.LoadInt64(&s.pops)
}

// Peeks returns the total number of peek operations.
func (s *Statistics) Peeks() int64 {
	return atomic.LoadInt64(&s.peeks)
}

// CurrentDepth returns the current number of items in the queue.
func (s *Statistics) CurrentDepth() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDepth
}

// MaxDepth returns the deepest the queue has been.
func (s *Statistics) MaxDepth() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxDepth
}

// Uptime returns how long the queue has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// StatsSummary is a point-in-time snapshot of queue statistics.
type StatsSummary struct {
	Pushes       int64         `json:"pushes"`
	Pops         int64         `json:"pops"`
	Peeks        int64         `json:"peeks"`
	CurrentDepth int64         `json:"current_depth"`
	MaxDepth     int64         `json:"max_depth"`
	Uptime       time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Pushes:       s.Pushes(),
		Pops:         s.Pops(),
		Peeks:        s.Peeks(),
		CurrentDepth: s.CurrentDepth(),
		MaxDepth:     s.MaxDepth(),
		Uptime:       s.Uptime(),
	}
}
