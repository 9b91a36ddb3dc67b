package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks accumulator activity. Counters may be read from any
// goroutine while the owner keeps appending.
type Statistics struct {
	appends  int64
	drains   int64
	resets   int64
	bytesIn  int64
	bytesOut int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Append records an append of n bytes.
func (s *Statistics) Append(n int) {
	atomic.AddInt64(&s.appends, 1)
	atomic.AddInt64(&s.bytesIn, int64(n))
}

// Drain records a drain of n bytes.
func (s *Statistics) Drain(n int) {
	atomic.AddInt64(&s.drains, 1)
	atomic.AddInt64(&s.bytesOut, int64(n))
}

// RecordReset records an explicit buffer reset.
func (s *Statistics) RecordReset() {
	atomic.AddInt64(&s.resets, 1)
}

// UpdateSize updates the current size and the high water mark.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Appends returns the number of append calls that copied bytes.
func (s *Statistics) Appends() int64 {
	return atomic.LoadInt64(&s.appends)
}

// Drains returns the number of drains.
func (s *Statistics) Drains() int64 {
	return atomic.LoadInt64(&s.drains)
}

// Resets returns the number of explicit resets.
func (s *Statistics) Resets() int64 {
	return atomic.LoadInt64(&s.resets)
}

// BytesIn returns the total bytes appended.
func (s *Statistics) BytesIn() int64 {
	return atomic.LoadInt64(&s.bytesIn)
}

// BytesOut returns the total bytes drained.
func (s *Statistics) BytesOut() int64 {
	return atomic.LoadInt64(&s.bytesOut)
}

// CurrentSize returns the last recorded size.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the largest size seen.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the statistics have been collected.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// InputRate returns the average bytes appended per second.
func (s *Statistics) InputRate() float64 {
	elapsed := s.Uptime().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.BytesIn()) / elapsed
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Appends     int64         `json:"appends"`
	Drains      int64         `json:"drains"`
	Resets      int64         `json:"resets"`
	BytesIn     int64         `json:"bytes_in"`
	BytesOut    int64         `json:"bytes_out"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	InputRate   float64       `json:"input_rate"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Appends:     s.Appends(),
		Drains:      s.Drains(),
		Resets:      s.Resets(),
		BytesIn:     s.BytesIn(),
		BytesOut:    s.BytesOut(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		InputRate:   s.InputRate(),
		Uptime:      s.Uptime(),
	}
}
