package engine

import (
	"sync"
	"time"
)

// SafeMode stops the engine from hammering a failing backend. After maxFailures
// consecutive fetch failures, cycles are skipped for cooldown.
type SafeMode struct {
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	failures int
	until    time.Time
}

// NewSafeMode returns a breaker; maxFailures <= 0 disables it.
func NewSafeMode(maxFailures int, cooldown time.Duration) *SafeMode {
	return &SafeMode{maxFailures: maxFailures, cooldown: cooldown}
}

// Active reports whether now falls inside a cooldown window.
func (s *SafeMode) Active(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.until)
}

// RecordFailure counts one failure and reports whether it started a cooldown.
func (s *SafeMode) RecordFailure(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	if s.maxFailures <= 0 || s.failures < s.maxFailures {
		return false
	}
	s.until = now.Add(s.cooldown)
	s.failures = 0
	return true
}

// RecordSuccess resets the failure streak.
func (s *SafeMode) RecordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

// Failures returns the current streak.
func (s *SafeMode) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// Until returns the end of the current (or last) cooldown.
func (s *SafeMode) Until() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.until
}
